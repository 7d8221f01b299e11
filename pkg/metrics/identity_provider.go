package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IdentityProviderMetrics records latency and outcome of calls made to the
// identity provider, labelled by operation.
type IdentityProviderMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewIdentityProviderMetrics registers the identity provider metrics on the
// provided registerer. A nil registerer yields a no-op recorder.
func NewIdentityProviderMetrics(reg prometheus.Registerer) *IdentityProviderMetrics {
	if reg == nil {
		return &IdentityProviderMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "identity_provider_request_duration_seconds",
		Help:    "Duration of identity provider calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_provider_requests_total",
		Help: "Identity provider calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(duration, requests)
	return &IdentityProviderMetrics{
		duration: duration,
		requests: requests,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *IdentityProviderMetrics) ObserveDuration(op string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (m *IdentityProviderMetrics) IncSuccess(op string) {
	m.inc(op, "success")
}

// IncFailure increments the failure counter for the named operation.
func (m *IdentityProviderMetrics) IncFailure(op string) {
	m.inc(op, "failure")
}

// Track observes the elapsed time since started and counts the outcome.
func (m *IdentityProviderMetrics) Track(op string, started time.Time, err error) {
	m.ObserveDuration(op, time.Since(started))
	if err != nil {
		m.IncFailure(op)
		return
	}
	m.IncSuccess(op)
}

func (m *IdentityProviderMetrics) inc(op, outcome string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(op), outcome).Inc()
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
