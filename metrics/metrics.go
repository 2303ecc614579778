// Package metrics provides Prometheus metrics for the HTTP server and the
// import pipeline:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - medicine_imports_total: Counter with result label
//   - medicine_import_duration_seconds: Histogram of committed imports
//   - graph_nodes_created_total / graph_relationships_created_total
//   - scan_stage_failures_total: Counter with stage label
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Import results used as label values.
const (
	ResultImported   = "imported"
	ResultInvalid    = "invalid"
	ResultStoreError = "store_error"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets",
		},
	)

	ImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medicine_imports_total",
			Help: "Medicine record imports by result",
		},
		[]string{"result"},
	)

	ImportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medicine_import_duration_seconds",
			Help:    "Duration of committed medicine imports",
			Buckets: prometheus.DefBuckets,
		},
	)

	NodesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_nodes_created_total",
			Help: "Graph nodes created by imports",
		},
	)

	RelationshipsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_relationships_created_total",
			Help: "Graph relationships created by imports",
		},
	)

	ScanStageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_stage_failures_total",
			Help: "Pipeline failures by stage",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(ImportsTotal)
	prometheus.MustRegister(ImportDuration)
	prometheus.MustRegister(NodesCreatedTotal)
	prometheus.MustRegister(RelationshipsCreatedTotal)
	prometheus.MustRegister(ScanStageFailures)
}
