// Package metrics provides Prometheus metrics for the sync job and the
// serve mode. HTTP metrics:
//   - nvc_http_request_total: Counter with method, path, and status labels
//   - nvc_http_request_duration_seconds: Histogram with method and path labels
//   - nvc_http_request_in_flight: Gauge for concurrent requests
//
// Sync metrics:
//   - nvc_sync_runs_total: Counter with an outcome label (changed, unchanged, failed)
//   - nvc_sync_fetch_duration_seconds: Histogram of bundle download time
//   - nvc_sync_table_entries: Gauge with the size of the last table built
//   - nvc_sync_last_success_timestamp_seconds: Gauge set after each successful run
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "nvc"

// Run outcomes used as the outcome label of SyncRunsTotal.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_request_in_flight",
			Help:      "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limiter_buckets_total",
			Help:      "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	SyncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by outcome",
		},
		[]string{"outcome"},
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent downloading and decoding the bundle",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	TableEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "table_entries",
			Help:      "Number of vaccine records in the last table built",
		},
	)

	LastSuccessTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed without error",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(SyncRunsTotal)
	prometheus.MustRegister(FetchDuration)
	prometheus.MustRegister(TableEntries)
	prometheus.MustRegister(LastSuccessTimestamp)
}
