package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		json.NewEncoder(w).Encode(map[string]any{
			"id": "msg-1",
			"content": []map[string]any{
				{"type": "text", "text": "the indemnity "},
				{"type": "text", "text": "clause is mutual"},
			},
			"usage": map[string]int{"input_tokens": 12, "output_tokens": 6},
		})
	}))
	defer srv.Close()

	a := NewAnthropic("anthropic", "claude-sonnet", WithAnthropicEndpoint(srv.URL))
	res, err := a.Complete(context.Background(), testCall(`[{"role":"user","content":"review"}]`))
	require.NoError(t, err)
	assert.Equal(t, "the indemnity clause is mutual", res.Content)
	assert.Equal(t, 18, res.Usage.TotalTokens)
}

func TestAnthropicDefaultsMaxTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 4096, req["max_tokens"])
		json.NewEncoder(w).Encode(map[string]any{"content": []any{}})
	}))
	defer srv.Close()

	a := NewAnthropic("anthropic", "claude-sonnet", WithAnthropicEndpoint(srv.URL))
	call := testCall(`[]`)
	call.MaxTokens = 0
	_, err := a.Complete(context.Background(), call)
	require.NoError(t, err)
}

func TestAnthropicUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	a := NewAnthropic("anthropic", "claude-sonnet", WithAnthropicEndpoint(srv.URL))
	_, err := a.Complete(context.Background(), testCall(`[]`))
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusServiceUnavailable, ue.StatusCode())
}
