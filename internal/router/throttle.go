package router

import (
	"sync"
	"time"
)

// throttleWindow is one provider's sliding 60-second admission window.
// Each provider owns its window and its lock, so throttling one
// provider never contends with another.
type throttleWindow struct {
	mu     sync.Mutex
	limit  int
	stamps []time.Time
}

// Throttle is a per-provider sliding-window admission gate. It never
// blocks: a denied call simply returns false and records nothing, and
// the caller decides what to do about it.
type Throttle struct {
	now     func() time.Time
	windows map[string]*throttleWindow
}

// NewThrottle builds a throttle for a fixed set of providers mapped to
// their requests-per-minute limits. The provider set is immutable after
// construction.
func NewThrottle(limits map[string]int) *Throttle {
	t := &Throttle{
		now:     time.Now,
		windows: make(map[string]*throttleWindow, len(limits)),
	}
	for name, limit := range limits {
		t.windows[name] = &throttleWindow{limit: limit}
	}
	return t
}

const throttleWindowSize = time.Minute

// Admit reports whether one more call to the named provider is within
// its per-minute budget, recording the call timestamp iff admitted.
// Unknown providers are always admitted.
func (t *Throttle) Admit(provider string) bool {
	w, ok := t.windows[provider]
	if !ok || w.limit <= 0 {
		return true
	}

	now := t.now()
	cutoff := now.Add(-throttleWindowSize)

	w.mu.Lock()
	defer w.mu.Unlock()

	// Trim entries that have aged out of the window.
	keep := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	w.stamps = keep

	if len(w.stamps) >= w.limit {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Pending returns the number of admissions currently inside the
// provider's window. Used by tests and introspection.
func (t *Throttle) Pending(provider string) int {
	w, ok := t.windows[provider]
	if !ok {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.stamps)
}
