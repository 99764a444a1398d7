package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Location resolution metrics
	ResolutionsTotal *prometheus.CounterVec // by detection method
	GeocodeAttempts  *prometheus.CounterVec // by provider and outcome
	PositionErrors   *prometheus.CounterVec // by error kind

	// Exchange rate metrics
	RateFetchesTotal *prometheus.CounterVec // by provider and outcome
	RateFallbacks    prometheus.Counter

	// Cache metrics
	CacheResults *prometheus.CounterVec // by cache name and hit/miss

	// Classifier metrics
	ClassificationsTotal *prometheus.CounterVec // by winning rule
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "endpoint", "status"},
		),

		ResolutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "location_resolutions_total",
				Help: "Total number of location resolutions by detection method",
			},
			[]string{"method"},
		),

		GeocodeAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geocode_attempts_total",
				Help: "Reverse geocoding attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),

		PositionErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "position_errors_total",
				Help: "Positioning failures by error kind",
			},
			[]string{"kind"},
		),

		RateFetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_fetches_total",
				Help: "Exchange rate fetch attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),

		RateFallbacks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_fallbacks_total",
				Help: "Times every rate provider failed and the static table was used",
			},
		),

		CacheResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_results_total",
				Help: "Cache reads by cache name and result (hit/miss/expired)",
			},
			[]string{"cache", "result"},
		),

		ClassificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agreement_classifications_total",
				Help: "Agreement currency classifications by winning rule",
			},
			[]string{"rule"},
		),
	}
}
