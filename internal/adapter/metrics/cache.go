package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics holds Prometheus metrics for the hybrid result cache,
// including the durable-backend circuit breaker.
type CacheMetrics struct {
	Hits               *prometheus.CounterVec
	Misses             *prometheus.CounterVec
	Invalidations      prometheus.Counter
	FlightsShared      prometheus.Counter
	BreakerState       prometheus.Gauge
	BreakerTransitions *prometheus.CounterVec
}

// NewCacheMetrics creates and registers cache metrics on the given registry.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "result_cache",
			Name:      "hits_total",
			Help:      "Total number of result cache hits, by backend.",
		}, []string{"backend"}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "result_cache",
			Name:      "misses_total",
			Help:      "Total number of result cache misses, by backend.",
		}, []string{"backend"}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "result_cache",
			Name:      "invalidations_total",
			Help:      "Total number of explicit result cache invalidations.",
		}),
		FlightsShared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "result_cache",
			Name:      "flights_shared_total",
			Help:      "Total number of callers that shared another caller's in-flight computation.",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "result_cache",
			Name:      "breaker_state",
			Help:      "Durable backend circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		BreakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "result_cache",
			Name:      "breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions, by new state.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.Hits, m.Misses, m.Invalidations, m.FlightsShared, m.BreakerState, m.BreakerTransitions)
	return m
}
