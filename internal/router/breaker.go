package router

import (
	"sync"
	"time"

	"github.com/lexgate/lexgate/pkg/models"
)

// CircuitBreaker isolates a repeatedly failing provider. It is the
// pre-call gate: Allow is evaluated strictly before the adapter is
// invoked, and the open→half-open transition happens inside Allow once
// the reset timeout has elapsed, not after a call.
type CircuitBreaker struct {
	mu            sync.Mutex
	threshold     int
	resetTimeout  time.Duration
	state         models.CircuitState
	failureCount  int
	lastFailureAt time.Time
	now           func() time.Time
}

// NewCircuitBreaker creates a closed breaker that opens after
// threshold consecutive failures and admits a single trial call once
// resetTimeout has passed.
func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		state:        models.CircuitClosed,
		now:          time.Now,
	}
}

// Allow reports whether a call may be attempted right now. While open,
// it returns true only once the reset timeout has elapsed, in which
// case the breaker moves to half-open and the single trial call is
// permitted.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case models.CircuitOpen:
		if cb.now().Sub(cb.lastFailureAt) > cb.resetTimeout {
			cb.state = models.CircuitHalfOpen
			return true
		}
		return false
	default:
		// Closed and half-open both permit the call.
		return true
	}
}

// RecordSuccess resets the failure count and closes the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = models.CircuitClosed
}

// RecordFailure counts one failure. While closed it opens the breaker
// at the threshold; while half-open a single failure reopens
// immediately (the failure count is deliberately not reset, so the
// trial call does not earn the provider a fresh budget).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case models.CircuitHalfOpen:
		cb.lastFailureAt = cb.now()
		cb.state = models.CircuitOpen
	default:
		cb.failureCount++
		if cb.failureCount >= cb.threshold {
			cb.lastFailureAt = cb.now()
			cb.state = models.CircuitOpen
		}
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() models.CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
