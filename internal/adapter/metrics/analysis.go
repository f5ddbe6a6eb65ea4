package metrics

import "github.com/prometheus/client_golang/prometheus"

// AnalysisMetrics holds Prometheus metrics for the analysis pipeline.
type AnalysisMetrics struct {
	AnalysesTotal  *prometheus.CounterVec
	Duration       prometheus.Histogram
	PillarFailures *prometheus.CounterVec
}

// NewAnalysisMetrics creates and registers analysis metrics on the given registry.
func NewAnalysisMetrics(reg prometheus.Registerer) *AnalysisMetrics {
	m := &AnalysisMetrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of completed analyses, by signal.",
		}, []string{"signal"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of fresh analysis computations in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
		PillarFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pillar_failures_total",
			Help:      "Total number of pillar fetches degraded to missing, by pillar and kind.",
		}, []string{"pillar", "kind"}),
	}

	reg.MustRegister(m.AnalysesTotal, m.Duration, m.PillarFailures)
	return m
}
