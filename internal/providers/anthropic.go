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

const anthropicVersion = "2023-06-01"

// Anthropic is a messages-API adapter for Anthropic backends.
type Anthropic struct {
	name     string
	model    string
	endpoint string // defaults to https://api.anthropic.com
	client   *http.Client
}

// AnthropicOption configures the adapter.
type AnthropicOption func(*Anthropic)

// WithAnthropicEndpoint sets a custom API endpoint.
func WithAnthropicEndpoint(endpoint string) AnthropicOption {
	return func(a *Anthropic) { a.endpoint = endpoint }
}

// WithAnthropicHTTPClient overrides the HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(a *Anthropic) { a.client = client }
}

// NewAnthropic creates an Anthropic messages adapter.
func NewAnthropic(name, model string, opts ...AnthropicOption) *Anthropic {
	a := &Anthropic{
		name:     name,
		model:    model,
		endpoint: "https://api.anthropic.com",
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type anthropicRequest struct {
	Model       string          `json:"model"`
	Messages    json.RawMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends one messages call. Anthropic requires max_tokens, so
// an unset budget falls back to 4096.
func (a *Anthropic) Complete(ctx context.Context, call router.Call) (*router.Result, error) {
	maxTokens := call.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       a.model,
		Messages:    call.Payload,
		MaxTokens:   maxTokens,
		Temperature: call.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", a.name, err)
	}

	url := a.endpoint + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", a.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", call.Credential)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", a.name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, &UpstreamError{Provider: a.name, Status: httpResp.StatusCode, Body: string(respBody)}
	}

	var anthResp anthropicResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&anthResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", a.name, err)
	}

	content := ""
	for _, c := range anthResp.Content {
		if c.Type == "text" {
			content += c.Text
		}
	}

	return &router.Result{
		Content: content,
		Usage: models.TokenUsage{
			InputTokens:  anthResp.Usage.InputTokens,
			OutputTokens: anthResp.Usage.OutputTokens,
			TotalTokens:  anthResp.Usage.InputTokens + anthResp.Usage.OutputTokens,
		},
	}, nil
}
