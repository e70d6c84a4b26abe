// Package metrics registers the service's Prometheus collectors on the
// default registry. Importing it is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// EmailsDispatchedTotal counts per-recipient outcomes, labelled delivered or failed.
	EmailsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailer_emails_dispatched_total",
			Help: "Per-recipient dispatch outcomes.",
		},
		[]string{"outcome"},
	)

	DispatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailer_dispatch_runs_total",
			Help: "Finished bulk dispatch runs by final status.",
		},
		[]string{"status"},
	)

	DispatchRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailer_dispatch_run_duration_seconds",
			Help:    "Wall-clock duration of bulk dispatch runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailer_runs_in_flight",
			Help: "Background dispatch runs currently executing.",
		},
	)

	StatusSyncFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailer_status_sync_failures_total",
			Help: "Runs whose delivery status could not be written back to the record store.",
		},
	)
)
