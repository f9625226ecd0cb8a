// Package metrics exposes Prometheus collectors for the librarian core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_navcache_hits_total",
			Help: "Navigation cache lookups served from the window",
		},
		[]string{"kind"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_navcache_misses_total",
			Help: "Navigation cache lookups that fell through to the store",
		},
		[]string{"kind"},
	)

	CacheRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_navcache_rebuilds_total",
			Help: "Full window rebuilds",
		},
		[]string{"kind"},
	)

	LockTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_lock_timeouts_total",
			Help: "Lock acquisitions that gave up after their timeout",
		},
		[]string{"lock"},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_store_operations_total",
			Help: "Record store operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_jobs_total",
			Help: "Completed background jobs",
		},
		[]string{"kind", "success"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "librarian_job_duration_seconds",
			Help:    "Background job run time",
			Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
		},
		[]string{"kind"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "librarian_job_queue_depth",
			Help: "Jobs waiting for the worker",
		},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_provider_requests_total",
			Help: "Collaborator HTTP requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	CircuitBreakerOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "librarian_circuit_breaker_open",
			Help: "Circuit breaker state (1 = open, 0 = closed)",
		},
		[]string{"provider"},
	)
)

// Outcome renders an error as the outcome label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
