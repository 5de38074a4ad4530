package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lexgate/lexgate/pkg/models"
)

var (
	metricAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lexgate",
		Name:      "router_attempts_total",
		Help:      "Provider attempts by outcome.",
	}, []string{"provider", "outcome"})

	metricAttemptLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lexgate",
		Name:      "router_attempt_duration_seconds",
		Help:      "Provider attempt latency.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"provider"})

	metricThrottled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lexgate",
		Name:      "router_throttle_rejections_total",
		Help:      "Candidate skips caused by the per-provider throttle.",
	}, []string{"provider"})

	metricBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lexgate",
		Name:      "router_circuit_state",
		Help:      "Circuit breaker state per provider (0=closed, 1=half-open, 2=open).",
	}, []string{"provider"})
)

// ObserveAttempt records one completed provider attempt.
func ObserveAttempt(provider string, d time.Duration, outcome string) {
	metricAttempts.WithLabelValues(provider, outcome).Inc()
	metricAttemptLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// ThrottleRejected counts a throttle-denied candidate skip.
func ThrottleRejected(provider string) {
	metricThrottled.WithLabelValues(provider).Inc()
}

// SetBreakerState exports the breaker state as a gauge.
func SetBreakerState(provider string, state models.CircuitState) {
	var v float64
	switch state {
	case models.CircuitHalfOpen:
		v = 1
	case models.CircuitOpen:
		v = 2
	}
	metricBreakerState.WithLabelValues(provider).Set(v)
}
