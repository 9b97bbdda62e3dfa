// Package metrics declares the Prometheus collectors of the service.
// All of them register with the default registry served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qfeedback_http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qfeedback_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Submissions counts submission attempts by outcome: accepted, or the
	// error code that rejected them.
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qfeedback_submissions_total",
			Help: "Response submissions by outcome.",
		},
		[]string{"outcome"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qfeedback_notifications_total",
			Help: "Notifications by type and delivery result.",
		},
		[]string{"type", "result"},
	)

	SweptRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qfeedback_janitor_deleted_total",
			Help: "Expired records deleted by the janitor.",
		},
		[]string{"kind"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qfeedback_rate_limited_total",
			Help: "Requests rejected by the submission rate limiter.",
		},
	)
)
