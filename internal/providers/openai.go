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

// OpenAI is a chat-completions adapter for OpenAI and any
// OpenAI-compatible endpoint (Azure OpenAI, Ollama, vLLM).
type OpenAI struct {
	name     string
	model    string
	endpoint string // defaults to https://api.openai.com/v1
	azure    bool
	client   *http.Client
}

// OpenAIOption configures the adapter.
type OpenAIOption func(*OpenAI)

// WithEndpoint points the adapter at a compatible endpoint, e.g. an
// Ollama instance or a proxy.
func WithEndpoint(endpoint string) OpenAIOption {
	return func(a *OpenAI) { a.endpoint = endpoint }
}

// WithAzureAuth switches to Azure OpenAI's api-key header.
func WithAzureAuth() OpenAIOption {
	return func(a *OpenAI) { a.azure = true }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(a *OpenAI) { a.client = client }
}

// NewOpenAI creates an OpenAI-compatible chat adapter. The name is
// used in errors only; per-attempt deadlines come from the context.
func NewOpenAI(name, model string, opts ...OpenAIOption) *OpenAI {
	a := &OpenAI{
		name:     name,
		model:    model,
		endpoint: "https://api.openai.com/v1",
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    json.RawMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends one chat completion. The payload is the raw messages
// array the caller supplied.
func (a *OpenAI) Complete(ctx context.Context, call router.Call) (*router.Result, error) {
	body, err := json.Marshal(openAIRequest{
		Model:       a.model,
		Messages:    call.Payload,
		MaxTokens:   call.MaxTokens,
		Temperature: call.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", a.name, err)
	}

	url := a.endpoint + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", a.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.azure {
		httpReq.Header.Set("api-key", call.Credential)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+call.Credential)
	}

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", a.name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, &UpstreamError{Provider: a.name, Status: httpResp.StatusCode, Body: string(respBody)}
	}

	var oaiResp openAIResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&oaiResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", a.name, err)
	}

	content := ""
	if len(oaiResp.Choices) > 0 {
		content = oaiResp.Choices[0].Message.Content
	}

	return &router.Result{
		Content: content,
		Usage: models.TokenUsage{
			InputTokens:  oaiResp.Usage.PromptTokens,
			OutputTokens: oaiResp.Usage.CompletionTokens,
			TotalTokens:  oaiResp.Usage.TotalTokens,
		},
	}, nil
}
