package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// scoring pipeline and its upstream providers.
type Metrics struct {
	// Provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider={nominatim,overpass,moenv,tdx}, outcome={ok,error}
	ProviderDuration *prometheus.HistogramVec // labels: provider
	ProviderCache    *prometheus.CounterVec   // labels: provider, result={hit,miss}

	// Scoring metrics.
	ScoresComputed prometheus.Counter
	ScoreTotal     prometheus.Histogram

	// Background refresh metrics.
	TasksEnqueued  prometheus.Counter
	TasksProcessed *prometheus.CounterVec // labels: outcome={success,error}
	SweepRuns      *prometheus.CounterVec // labels: outcome={success,error}
	SweepEnqueued  prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tranquiltaiwan",
			Name:      "provider_requests_total",
			Help:      "Upstream provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tranquiltaiwan",
			Name:      "provider_request_duration_seconds",
			Help:      "Upstream provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		ProviderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tranquiltaiwan",
			Name:      "provider_cache_total",
			Help:      "Provider response cache lookups by provider and result.",
		}, []string{"provider", "result"}),
		ScoresComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tranquiltaiwan",
			Name:      "scores_computed_total",
			Help:      "Total livability scores computed.",
		}),
		ScoreTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tranquiltaiwan",
			Name:      "score_total",
			Help:      "Distribution of computed total scores.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		TasksEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tranquiltaiwan",
			Name:      "recalculate_tasks_enqueued_total",
			Help:      "Total recalculation tasks enqueued.",
		}),
		TasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tranquiltaiwan",
			Name:      "recalculate_tasks_processed_total",
			Help:      "Recalculation tasks processed by outcome.",
		}, []string{"outcome"}),
		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tranquiltaiwan",
			Name:      "sweep_runs_total",
			Help:      "Stale-score sweep passes by outcome.",
		}, []string{"outcome"}),
		SweepEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tranquiltaiwan",
			Name:      "sweep_enqueued_total",
			Help:      "Total refreshes enqueued by the sweep worker.",
		}),
	}

	prometheus.MustRegister(
		m.ProviderRequests,
		m.ProviderDuration,
		m.ProviderCache,
		m.ScoresComputed,
		m.ScoreTotal,
		m.TasksEnqueued,
		m.TasksProcessed,
		m.SweepRuns,
		m.SweepEnqueued,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so parallel
// tests do not trip "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tranquiltaiwan", Name: "provider_requests_total"}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "tranquiltaiwan", Name: "provider_request_duration_seconds"}, []string{"provider"}),
		ProviderCache:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tranquiltaiwan", Name: "provider_cache_total"}, []string{"provider", "result"}),
		ScoresComputed:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tranquiltaiwan", Name: "scores_computed_total"}),
		ScoreTotal:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tranquiltaiwan", Name: "score_total"}),
		TasksEnqueued:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tranquiltaiwan", Name: "recalculate_tasks_enqueued_total"}),
		TasksProcessed:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tranquiltaiwan", Name: "recalculate_tasks_processed_total"}, []string{"outcome"}),
		SweepRuns:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tranquiltaiwan", Name: "sweep_runs_total"}, []string{"outcome"}),
		SweepEnqueued:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tranquiltaiwan", Name: "sweep_enqueued_total"}),
	}
}
