// Package providers implements HTTP adapters for the upstream AI
// backends LexGate routes to. Each adapter performs exactly one call;
// retries, fallback, and health tracking live in the router.
package providers

import "fmt"

// UpstreamError is a non-2xx response from a backend. It carries the
// HTTP status so error classifiers can recognize rate limiting without
// parsing prose.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Body)
}

// StatusCode returns the upstream HTTP status.
func (e *UpstreamError) StatusCode() int {
	return e.Status
}
