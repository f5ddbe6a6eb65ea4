package metrics

import "github.com/prometheus/client_golang/prometheus"

// RateLimitMetrics holds Prometheus metrics for the sliding-window limiter.
type RateLimitMetrics struct {
	Checks            *prometheus.CounterVec
	TrackedIdentities prometheus.Gauge
}

// NewRateLimitMetrics creates and registers rate limiter metrics on the given registry.
func NewRateLimitMetrics(reg prometheus.Registerer) *RateLimitMetrics {
	m := &RateLimitMetrics{
		Checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "checks_total",
			Help:      "Total number of rate limit checks, by scope and decision.",
		}, []string{"scope", "decision"}),
		TrackedIdentities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "tracked_identities",
			Help:      "Number of identities with a live sliding window.",
		}),
	}

	reg.MustRegister(m.Checks, m.TrackedIdentities)
	return m
}
