package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lexgate/lexgate/internal/router"
	"github.com/lexgate/lexgate/pkg/models"
)

// OpenAIEmbeddings is an embeddings adapter for OpenAI-compatible
// endpoints. The result content is the JSON-encoded vector list —
// the gateway treats it as opaquely as any completion text.
type OpenAIEmbeddings struct {
	name     string
	model    string
	endpoint string
	client   *http.Client
}

// NewOpenAIEmbeddings creates an embeddings adapter.
func NewOpenAIEmbeddings(name, model string, opts ...OpenAIOption) *OpenAIEmbeddings {
	// Reuse the chat adapter's options for endpoint/client overrides.
	base := NewOpenAI(name, model, opts...)
	return &OpenAIEmbeddings{
		name:     name,
		model:    model,
		endpoint: base.endpoint,
		client:   base.client,
	}
}

type embeddingsRequest struct {
	Model string          `json:"model"`
	Input json.RawMessage `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete computes embeddings for the raw input payload.
func (a *OpenAIEmbeddings) Complete(ctx context.Context, call router.Call) (*router.Result, error) {
	body, err := json.Marshal(embeddingsRequest{Model: a.model, Input: call.Payload})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", a.name, err)
	}

	url := a.endpoint + "/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", a.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+call.Credential)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", a.name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, &UpstreamError{Provider: a.name, Status: httpResp.StatusCode, Body: string(respBody)}
	}

	var embResp embeddingsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", a.name, err)
	}

	vectors := make([][]float64, 0, len(embResp.Data))
	for _, d := range embResp.Data {
		vectors = append(vectors, d.Embedding)
	}
	content, err := json.Marshal(vectors)
	if err != nil {
		return nil, fmt.Errorf("%s: encode embeddings: %w", a.name, err)
	}

	return &router.Result{
		Content: string(content),
		Usage: models.TokenUsage{
			InputTokens: embResp.Usage.PromptTokens,
			TotalTokens: embResp.Usage.TotalTokens,
		},
	}, nil
}
