// Package metrics declares the Prometheus collectors exported on /metrics.
// All collectors are registered with the default registry through promauto
// and live under the "shorturl" namespace.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shorturl"

var (
	// ==================== HTTP METRICS ====================

	// HTTPRequestDuration is labelled by chi route pattern, never the raw path
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of handled HTTP requests.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled, by route and status.",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		},
	)

	// ==================== CACHE METRICS ====================

	// CacheLookupsTotal counts short id cache reads by result (hit, miss)
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Short id cache lookups, by result.",
		},
		[]string{"result"},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operation_duration_seconds",
			Help:      "Latency of Redis calls made by the record cache.",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05},
		},
		[]string{"operation"}, // get, set, delete
	)

	// ==================== SHORTENER METRICS ====================

	// URLsCreatedTotal excludes idempotent repeats
	URLsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_created_total",
			Help:      "New URL records stored.",
		},
	)

	RedirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Short ids resolved to a stored URL.",
		},
	)

	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Submitted URLs rejected, by validation policy.",
		},
		[]string{"policy"},
	)

	IDCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "id_collisions_total",
			Help:      "Generated short ids that were already taken.",
		},
	)

	// ==================== STORE METRICS ====================

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency of record store operations.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend", "operation"},
	)

	// StoreErrorsTotal leaves out uniqueness violations
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Failed record store operations.",
		},
		[]string{"backend", "operation"},
	)
)

func RecordCacheHit() {
	CacheLookupsTotal.WithLabelValues("hit").Inc()
}

func RecordCacheMiss() {
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}

func RecordURLCreated() {
	URLsCreatedTotal.Inc()
}

func RecordRedirect() {
	RedirectsTotal.Inc()
}

// RecordValidationFailure increments the rejection counter for a policy
func RecordValidationFailure(policy string) {
	ValidationFailuresTotal.WithLabelValues(policy).Inc()
}

func RecordIDCollision() {
	IDCollisionsTotal.Inc()
}

// ObserveStore records the latency of a store operation started at start.
// failed should be false for expected outcomes such as a constraint violation.
func ObserveStore(backend, operation string, start time.Time, failed bool) {
	StoreQueryDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if failed {
		StoreErrorsTotal.WithLabelValues(backend, operation).Inc()
	}
}
