package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts monitored requests by matched URL pattern
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmon_requests_total",
			Help: "Total number of monitored HTTP requests by URL pattern",
		},
		[]string{"pattern", "method", "code"},
	)

	// RequestErrors counts monitored requests answered with a 5xx status
	RequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmon_request_errors_total",
			Help: "Total number of monitored HTTP requests answered with a server error",
		},
		[]string{"pattern"},
	)

	// RequestDuration tracks monitored request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webmon_request_duration_seconds",
			Help:    "Monitored HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pattern", "method"},
	)

	// PatternsLoaded reports the size of the published pattern table
	PatternsLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "webmon_patterns_loaded",
			Help: "Number of URL patterns in the published table by category",
		},
		[]string{"category"},
	)

	PatternReloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webmon_pattern_reloads_total",
			Help: "Total number of pattern table reloads",
		},
	)

	// ErrorsTotal counts collaborator errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmon_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type", "source"},
	)
)

// Error type constants
const (
	ErrorTypePatternFetch = "pattern_fetch"
	ErrorTypePatternWatch = "pattern_watch"
	ErrorTypeProxy        = "proxy"
)
