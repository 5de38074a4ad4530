package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lexgate/lexgate/pkg/models"
)

// ── Adapter contract ─────────────────────────────────────────

// Call carries everything an adapter needs for one upstream attempt.
// The payload is passed through untouched; credential selection and
// token capping have already happened in the router.
type Call struct {
	Payload     json.RawMessage
	Credential  string
	MaxTokens   int
	Temperature float64
}

// Result is a successful adapter outcome.
type Result struct {
	Content string
	Usage   models.TokenUsage
}

// Adapter performs one completion/embedding call against one backend.
// Implementations are supplied per provider by the composition root;
// the router only cares about success/failure, content, and usage.
// The context carries the per-attempt deadline.
type Adapter interface {
	Complete(ctx context.Context, call Call) (*Result, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, call Call) (*Result, error)

func (f AdapterFunc) Complete(ctx context.Context, call Call) (*Result, error) {
	return f(ctx, call)
}

// ── Provider configuration ───────────────────────────────────

// ProviderConfig is the static, load-time description of one provider.
// It is immutable after registration.
type ProviderConfig struct {
	Name    string
	Tier    int // priority rank, 1 = primary
	Enabled bool

	// Credentials is an ordered, non-empty pool of opaque tokens.
	// The active index advances on failure, wrapping around.
	Credentials []string

	MaxRequestsPerMinute int
	MaxTokensPerRequest  int
	Timeout              time.Duration
	MaxRetryAttempts     int

	CircuitFailureThreshold int
	CircuitResetTimeout     time.Duration

	// ClassifyRule optionally replaces the default quota heuristic
	// with a provider-specific expr rule over {Message, Code}.
	ClassifyRule string
}

func (c ProviderConfig) validate() error {
	if c.Name == "" {
		return errors.New("provider name is required")
	}
	if len(c.Credentials) == 0 {
		return fmt.Errorf("provider %s: at least one credential is required", c.Name)
	}
	return nil
}

const (
	defaultTimeout          = 30 * time.Second
	defaultFailureThreshold = 5
	defaultResetTimeout     = 60 * time.Second
	degradedThreshold       = 3
)

func (c ProviderConfig) withDefaults() ProviderConfig {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.CircuitFailureThreshold <= 0 {
		c.CircuitFailureThreshold = defaultFailureThreshold
	}
	if c.CircuitResetTimeout <= 0 {
		c.CircuitResetTimeout = defaultResetTimeout
	}
	return c
}

// ── Runtime state ────────────────────────────────────────────

// healthState is the mutable per-provider record, updated only by the
// router after each attempt. Invariant: Successful+Failed == Total.
type healthState struct {
	Total               int64
	Successful          int64
	Failed              int64
	ConsecutiveFailures int
	AverageResponseTime time.Duration
	Status              models.Status
	QuotaResetAt        time.Time
	LastRequestAt       time.Time
}

// provider bundles one backend's configuration with its runtime state.
// mu guards the health record and the credential index together, so a
// failure's bookkeeping and its credential rotation are one atomic
// step. Different providers never share a lock.
type provider struct {
	cfg      ProviderConfig
	adapter  Adapter
	classify Classifier
	breaker  *CircuitBreaker

	mu        sync.Mutex
	health    healthState
	credIndex int
}

func (p *provider) credential() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.Credentials[p.credIndex]
}

// rotateCredential advances the active credential after a failure.
// Concurrent failures may both advance the index; credential selection
// is best-effort, not request-pinned.
func (p *provider) rotateCredential() {
	if len(p.cfg.Credentials) < 2 {
		return
	}
	p.mu.Lock()
	p.credIndex = (p.credIndex + 1) % len(p.cfg.Credentials)
	p.mu.Unlock()
}

// updateAverage folds one completed attempt into the running mean.
// Caller holds p.mu and has already incremented Total.
func (h *healthState) updateAverage(d time.Duration) {
	if h.Total <= 1 {
		h.AverageResponseTime = d
		return
	}
	h.AverageResponseTime += (d - h.AverageResponseTime) / time.Duration(h.Total)
}

func (p *provider) recordSuccess(d time.Duration, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health.Total++
	p.health.Successful++
	p.health.ConsecutiveFailures = 0
	p.health.updateAverage(d)
	p.health.Status = models.StatusHealthy
	p.health.LastRequestAt = now
}

func (p *provider) recordFailure(d time.Duration, class ErrorClass, cooldown time.Duration, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health.Total++
	p.health.Failed++
	p.health.ConsecutiveFailures++
	p.health.updateAverage(d)
	p.health.LastRequestAt = now

	if class == ClassQuota {
		p.health.Status = models.StatusQuotaExceeded
		p.health.QuotaResetAt = now.Add(cooldown)
	} else if p.health.ConsecutiveFailures >= degradedThreshold {
		p.health.Status = models.StatusDegraded
	}
}

// snapshot renders the read-only dashboard view.
func (p *provider) snapshot() models.HealthSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := models.HealthSnapshot{
		Enabled:             p.cfg.Enabled,
		Status:              p.health.Status,
		TotalRequests:       p.health.Total,
		AverageResponseTime: p.health.AverageResponseTime,
		ConsecutiveFailures: p.health.ConsecutiveFailures,
		CircuitBreakerState: p.breaker.State(),
		LastRequestAt:       p.health.LastRequestAt,
	}
	if p.health.Total > 0 {
		snap.SuccessRate = float64(p.health.Successful) / float64(p.health.Total)
	}
	if !p.health.QuotaResetAt.IsZero() {
		t := p.health.QuotaResetAt
		snap.QuotaResetAt = &t
	}
	return snap
}
