// Package router implements the LexGate multi-provider AI request
// router.
//
// The router accepts a logical "complete this prompt" or "compute this
// embedding" request and dispatches it to one of several
// interchangeable, independently unreliable providers, using
// health-aware candidate ordering, per-provider throttling, circuit
// breaking, credential rotation, and ordered fallback. Payloads are
// opaque: only request metadata participates in routing decisions.
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/telemetry"
	"github.com/lexgate/lexgate/pkg/models"
)

var tracer = otel.Tracer("lexgate-router")

// Options tunes routing behavior shared by all providers.
type Options struct {
	// LowLatencyProvider, if set and available, is moved to the front
	// of the candidate list for high-priority requests.
	LowLatencyProvider string

	// EmbeddingProvider, if set and available, is moved to the front
	// for embedding requests.
	EmbeddingProvider string

	// HealthCheckInterval rate-limits the opportunistic reconcile
	// pass. Default 5 minutes.
	HealthCheckInterval time.Duration

	// QuotaCooldown suspends a provider after quota exhaustion.
	// Default 15 minutes.
	QuotaCooldown time.Duration

	// Audit, if non-nil, receives one record per routed request.
	Audit *audit.Log
}

const (
	defaultHealthCheckInterval = 5 * time.Minute
	defaultQuotaCooldown       = 15 * time.Minute
)

// Router owns all per-provider state and routes requests across the
// registered providers. There is no global lock across a request; the
// only shared mutable state is per-provider.
type Router struct {
	opts      Options
	now       func() time.Time
	providers map[string]*provider
	order     []string
	throttle  *Throttle

	monitorMu     sync.Mutex
	lastReconcile time.Time
}

// New creates an empty router. Providers are added with Register
// before serving begins; the provider set is fixed afterwards.
func New(opts Options) *Router {
	if opts.HealthCheckInterval <= 0 {
		opts.HealthCheckInterval = defaultHealthCheckInterval
	}
	if opts.QuotaCooldown <= 0 {
		opts.QuotaCooldown = defaultQuotaCooldown
	}
	return &Router{
		opts:      opts,
		now:       time.Now,
		providers: make(map[string]*provider),
		throttle:  NewThrottle(nil),
	}
}

// Register adds one provider with its adapter. Called at startup only.
func (r *Router) Register(cfg ProviderConfig, adapter Adapter) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if adapter == nil {
		return fmt.Errorf("provider %s: adapter is required", cfg.Name)
	}
	if _, exists := r.providers[cfg.Name]; exists {
		return fmt.Errorf("provider %s: already registered", cfg.Name)
	}
	cfg = cfg.withDefaults()

	classifier := DefaultClassifier
	if cfg.ClassifyRule != "" {
		rc, err := NewRuleClassifier(cfg.ClassifyRule)
		if err != nil {
			return err
		}
		classifier = rc
	}

	p := &provider{
		cfg:      cfg,
		adapter:  adapter,
		classify: classifier,
		breaker:  NewCircuitBreaker(cfg.CircuitFailureThreshold, cfg.CircuitResetTimeout),
	}
	p.health.Status = models.StatusHealthy
	p.breaker.now = func() time.Time { return r.now() }

	r.providers[cfg.Name] = p
	r.order = append(r.order, cfg.Name)
	r.throttle.windows[cfg.Name] = &throttleWindow{limit: cfg.MaxRequestsPerMinute}

	log.Info().
		Str("provider", cfg.Name).
		Int("tier", cfg.Tier).
		Bool("enabled", cfg.Enabled).
		Int("credentials", len(cfg.Credentials)).
		Msg("Provider registered")
	return nil
}

// ── Single-request entry point ───────────────────────────────

// Process routes one request. It never returns an error: every failure
// path funnels into a failure-flagged Response.
func (r *Router) Process(ctx context.Context, req *models.Request) *models.Response {
	ctx, span := tracer.Start(ctx, "router.process",
		oteltrace.WithAttributes(
			attribute.String("lexgate.request.id", req.ID),
			attribute.String("lexgate.request.type", string(req.Type)),
			attribute.Int("lexgate.request.priority", int(req.Priority)),
		),
	)
	defer span.End()

	start := time.Now()
	r.reconcile()

	candidates := r.selectCandidates(req)
	if len(candidates) == 0 {
		return r.finish(req, &models.Response{
			ID:           req.ID,
			Success:      false,
			Error:        "no available providers",
			ResponseTime: time.Since(start),
		})
	}

	var lastErr error
	var lastProvider string
	for _, p := range candidates {
		name := p.cfg.Name

		// Admission denial is not a provider fault: skip without
		// touching the breaker or health counters.
		if !r.throttle.Admit(name) {
			telemetry.ThrottleRejected(name)
			log.Debug().Str("provider", name).Msg("Throttled, skipping candidate")
			continue
		}

		res, elapsed, err := r.attempt(ctx, p, req)
		now := r.now()

		if err == nil {
			p.recordSuccess(elapsed, now)
			p.breaker.RecordSuccess()
			telemetry.ObserveAttempt(name, elapsed, "success")
			telemetry.SetBreakerState(name, p.breaker.State())

			return r.finish(req, &models.Response{
				ID:           req.ID,
				Success:      true,
				Content:      res.Content,
				Provider:     name,
				ResponseTime: time.Since(start),
				Usage:        res.Usage,
				Metadata: map[string]string{
					"attempts": strconv.Itoa(req.RetryCount + 1),
				},
			})
		}

		class := p.classify.Classify(err)
		p.recordFailure(elapsed, class, r.opts.QuotaCooldown, now)
		p.breaker.RecordFailure()
		p.rotateCredential()
		telemetry.ObserveAttempt(name, elapsed, "failure")
		telemetry.SetBreakerState(name, p.breaker.State())

		log.Warn().
			Str("provider", name).
			Bool("quota", class == ClassQuota).
			Err(err).
			Msg("Provider attempt failed, trying next")

		lastErr = err
		lastProvider = name
		req.RetryCount++
	}

	errMsg := "no available providers"
	if lastErr != nil {
		errMsg = fmt.Sprintf("all providers failed, last error from %s: %v", lastProvider, lastErr)
	}
	return r.finish(req, &models.Response{
		ID:           req.ID,
		Success:      false,
		Provider:     lastProvider,
		Error:        errMsg,
		ResponseTime: time.Since(start),
	})
}

// attempt runs one candidate attempt, retrying transient errors up to
// the provider's MaxRetryAttempts with exponential backoff. Quota
// errors and per-invocation timeouts are advanced past, not retried.
// The whole attempt counts once against the breaker and health state.
func (r *Router) attempt(ctx context.Context, p *provider, req *models.Request) (*Result, time.Duration, error) {
	ctx, span := tracer.Start(ctx, "router.attempt",
		oteltrace.WithAttributes(attribute.String("lexgate.provider", p.cfg.Name)),
	)
	defer span.End()

	start := time.Now()

	timeout := p.cfg.Timeout
	if req.Timeout > 0 && req.Timeout < timeout {
		timeout = req.Timeout
	}

	maxTokens := req.MaxTokens
	if p.cfg.MaxTokensPerRequest > 0 && (maxTokens <= 0 || maxTokens > p.cfg.MaxTokensPerRequest) {
		maxTokens = p.cfg.MaxTokensPerRequest
	}

	call := Call{
		Payload:     req.Payload,
		Credential:  p.credential(),
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	var res *Result
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		out, err := p.adapter.Complete(attemptCtx, call)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			if p.classify.Classify(err) == ClassQuota {
				return backoff.Permanent(err)
			}
			return err
		}
		res = out
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.cfg.MaxRetryAttempts)),
		ctx,
	)
	err := backoff.Retry(op, policy)
	if err != nil {
		span.SetAttributes(attribute.Bool("lexgate.attempt.failed", true))
	}
	return res, time.Since(start), err
}

func (r *Router) finish(req *models.Request, resp *models.Response) *models.Response {
	if r.opts.Audit != nil {
		r.opts.Audit.Append(audit.Record{
			RequestID: req.ID,
			Type:      req.Type,
			Priority:  req.Priority,
			Provider:  resp.Provider,
			Success:   resp.Success,
			Error:     resp.Error,
			Latency:   resp.ResponseTime,
			Tokens:    resp.Usage.TotalTokens,
			At:        r.now(),
		})
	}
	return resp
}

// ── Candidate selection ──────────────────────────────────────

// selectCandidates builds the priority-ordered provider list for one
// request: enabled providers whose breaker admits a call and whose
// status permits traffic, sorted by (tier, consecutive failures), then
// re-ranked for designated low-latency/embedding providers. Expired
// quota cooldowns are healed here as a side effect.
func (r *Router) selectCandidates(req *models.Request) []*provider {
	now := r.now()

	type candidate struct {
		p  *provider
		cf int
	}
	var candidates []candidate

	for _, name := range r.order {
		p := r.providers[name]
		if !p.cfg.Enabled {
			continue
		}
		if !p.breaker.Allow() {
			continue
		}

		p.mu.Lock()
		switch p.health.Status {
		case models.StatusUnavailable:
			p.mu.Unlock()
			continue
		case models.StatusQuotaExceeded:
			if now.Before(p.health.QuotaResetAt) {
				p.mu.Unlock()
				continue
			}
			p.health.Status = models.StatusHealthy
			p.health.QuotaResetAt = time.Time{}
		}
		cf := p.health.ConsecutiveFailures
		p.mu.Unlock()

		candidates = append(candidates, candidate{p: p, cf: cf})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].p.cfg.Tier != candidates[j].p.cfg.Tier {
			return candidates[i].p.cfg.Tier < candidates[j].p.cfg.Tier
		}
		if candidates[i].cf != candidates[j].cf {
			return candidates[i].cf < candidates[j].cf
		}
		return candidates[i].p.cfg.Name < candidates[j].p.cfg.Name
	})

	out := make([]*provider, len(candidates))
	for i, c := range candidates {
		out[i] = c.p
	}

	// Re-ranks are overrides: the front changes, the rest of the
	// sorted order is preserved.
	if req.Priority == models.PriorityHigh && r.opts.LowLatencyProvider != "" {
		out = moveToFront(out, r.opts.LowLatencyProvider)
	}
	if req.Type == models.RequestEmbedding && r.opts.EmbeddingProvider != "" {
		out = moveToFront(out, r.opts.EmbeddingProvider)
	}
	return out
}

func moveToFront(list []*provider, name string) []*provider {
	for i, p := range list {
		if p.cfg.Name == name {
			if i == 0 {
				return list
			}
			moved := list[i]
			copy(list[1:i+1], list[:i])
			list[0] = moved
			return list
		}
	}
	return list
}

// ── Introspection ────────────────────────────────────────────

// Health returns the per-provider snapshot map for dashboards.
func (r *Router) Health() map[string]models.HealthSnapshot {
	out := make(map[string]models.HealthSnapshot, len(r.providers))
	for name, p := range r.providers {
		out[name] = p.snapshot()
	}
	return out
}
