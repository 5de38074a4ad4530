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

	"github.com/lexgate/lexgate/internal/router"
)

func testCall(payload string) router.Call {
	return router.Call{
		Payload:     json.RawMessage(payload),
		Credential:  "test-key",
		MaxTokens:   128,
		Temperature: 0.2,
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req["model"])
		assert.EqualValues(t, 128, req["max_tokens"])

		json.NewEncoder(w).Encode(map[string]any{
			"id": "cmpl-1",
			"choices": []map[string]any{
				{"message": map[string]any{"content": "clause 4 is unenforceable"}},
			},
			"usage": map[string]int{
				"prompt_tokens":     10,
				"completion_tokens": 7,
				"total_tokens":      17,
			},
		})
	}))
	defer srv.Close()

	a := NewOpenAI("openai", "gpt-4o", WithEndpoint(srv.URL))
	res, err := a.Complete(context.Background(), testCall(`[{"role":"user","content":"review"}]`))
	require.NoError(t, err)
	assert.Equal(t, "clause 4 is unenforceable", res.Content)
	assert.Equal(t, 10, res.Usage.InputTokens)
	assert.Equal(t, 7, res.Usage.OutputTokens)
	assert.Equal(t, 17, res.Usage.TotalTokens)
}

func TestOpenAIAzureAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	a := NewOpenAI("azure", "gpt-4o", WithEndpoint(srv.URL), WithAzureAuth())
	res, err := a.Complete(context.Background(), testCall(`[]`))
	require.NoError(t, err)
	assert.Empty(t, res.Content)
}

func TestOpenAIUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit reached"}}`))
	}))
	defer srv.Close()

	a := NewOpenAI("openai", "gpt-4o", WithEndpoint(srv.URL))
	_, err := a.Complete(context.Background(), testCall(`[]`))
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode())
	assert.Contains(t, ue.Error(), "rate limit reached")
}

func TestOpenAIContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewOpenAI("openai", "gpt-4o", WithEndpoint(srv.URL))
	_, err := a.Complete(ctx, testCall(`[]`))
	assert.Error(t, err)
}
