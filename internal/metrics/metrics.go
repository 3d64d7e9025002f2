// Package metrics provides Prometheus metrics for tgforge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts pages returned by the page source.
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tgforge",
			Name:      "pages_fetched_total",
			Help:      "Total number of pages fetched",
		},
		[]string{"kind"},
	)

	// ItemsCollected counts items kept after date filtering.
	ItemsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tgforge",
			Name:      "items_collected_total",
			Help:      "Total number of items collected",
		},
		[]string{"kind"},
	)

	// RateLimitWaits counts flood-wait retries.
	RateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tgforge",
			Name:      "rate_limit_waits_total",
			Help:      "Total number of rate limit waits",
		},
	)

	// SourceErrors counts sources that ended with an error.
	SourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tgforge",
			Name:      "source_errors_total",
			Help:      "Total number of per-source errors",
		},
		[]string{"kind", "reason"},
	)

	// RunDuration measures whole pipeline runs.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tgforge",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"kind", "outcome"},
	)

	// ActiveRuns tracks runs in progress.
	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tgforge",
			Name:      "active_runs",
			Help:      "Number of pipeline runs in progress",
		},
	)
)

// RecordPage records one fetched page and the items kept from it.
func RecordPage(kind string, kept int) {
	PagesFetched.WithLabelValues(kind).Inc()
	ItemsCollected.WithLabelValues(kind).Add(float64(kept))
}

// RecordSourceError records a failed source.
func RecordSourceError(kind, reason string) {
	SourceErrors.WithLabelValues(kind, reason).Inc()
}

// RecordRun records a finished run.
func RecordRun(kind, outcome string, seconds float64) {
	RunDuration.WithLabelValues(kind, outcome).Observe(seconds)
}
