// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_http_requests_total",
		Help: "Total number of HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketplace_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})

	// OutboxEvents counts dispatcher outcomes; result is delivered,
	// duplicate or failed.
	OutboxEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_outbox_events_total",
		Help: "Outbox events processed by kind and result",
	}, []string{"kind", "result"})

	OutboxPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_outbox_pending",
		Help: "Undelivered outbox events with attempts left, as of the last dispatcher run",
	})

	RealtimePublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_realtime_publish_failures_total",
		Help: "Notifications that could not be pushed to the realtime channel",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
