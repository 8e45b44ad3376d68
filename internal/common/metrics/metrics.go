// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP request handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_cache_hits_total",
			Help: "Total number of conversion cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_cache_misses_total",
			Help: "Total number of conversion cache misses",
		},
		[]string{"backend"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_cache_errors_total",
			Help: "Total number of failed cache operations",
		},
		[]string{"backend", "operation"},
	)

	CacheSharedResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversion_cache_shared_results_total",
			Help: "Total number of misses served by an in-flight computation for the same key",
		},
	)

	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversions_total",
			Help: "Total number of conversions computed by kind",
		},
		[]string{"kind"},
	)

	ConversionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_errors_total",
			Help: "Total number of failed conversion requests by error code and category",
		},
		[]string{"code", "category"},
	)
)
