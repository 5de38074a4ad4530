// Package models defines the shared domain types for the LexGate AI
// provider gateway: requests, responses, and provider health snapshots.
package models

import (
	"encoding/json"
	"time"
)

// ── Requests ─────────────────────────────────────────────────

// RequestType identifies the kind of work a request carries.
// The gateway never interprets the payload itself; the type only
// influences routing.
type RequestType string

const (
	RequestChat      RequestType = "chat"
	RequestEmbedding RequestType = "embedding"
	RequestAnalysis  RequestType = "analysis"
)

// Priority orders requests for batch scheduling. Lower is more urgent.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// Request is one logical completion/embedding request entering the
// gateway. The payload is opaque to the router — it is handed to the
// selected provider adapter verbatim.
type Request struct {
	ID          string          `json:"id"`
	Payload     json.RawMessage `json:"payload"`
	Type        RequestType     `json:"type"`
	Priority    Priority        `json:"priority"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`

	// Timeout optionally tightens the per-attempt bound below the
	// provider's configured timeout. Zero means "use the provider's".
	Timeout time.Duration `json:"timeout,omitempty"`

	// RetryCount is advanced by the router as it moves through the
	// candidate list. Callers should leave it zero.
	RetryCount int `json:"retry_count,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// ── Responses ────────────────────────────────────────────────

// TokenUsage reports upstream token consumption for one request.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response is the single outcome of routing one Request. The router
// never raises errors across its boundary — a failed request is a
// Response with Success=false and Error set.
type Response struct {
	ID           string            `json:"id"`
	Success      bool              `json:"success"`
	Content      string            `json:"content,omitempty"`
	Provider     string            `json:"provider,omitempty"`
	ResponseTime time.Duration     `json:"response_time"`
	Usage        TokenUsage        `json:"usage"`
	Error        string            `json:"error,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ── Provider health ──────────────────────────────────────────

// Status is the coarse health classification of one provider.
type Status string

const (
	StatusHealthy       Status = "healthy"
	StatusDegraded      Status = "degraded"
	StatusQuotaExceeded Status = "quota_exceeded"
	StatusUnavailable   Status = "unavailable"
	StatusError         Status = "error"
)

// CircuitState is the externally visible circuit breaker state.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// HealthSnapshot is the read-only per-provider view returned by the
// gateway's health endpoint for operational dashboards.
type HealthSnapshot struct {
	Enabled             bool          `json:"enabled"`
	Status              Status        `json:"status"`
	TotalRequests       int64         `json:"total_requests"`
	SuccessRate         float64       `json:"success_rate"`
	AverageResponseTime time.Duration `json:"average_response_time"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	CircuitBreakerState CircuitState  `json:"circuit_breaker_state"`
	LastRequestAt       time.Time     `json:"last_request_at"`
	QuotaResetAt        *time.Time    `json:"quota_reset_at,omitempty"`
}
