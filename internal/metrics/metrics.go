package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelview_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parcelview_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AuditWritesTotal counts access-audit pipeline outcomes; result is "ok" or the failing stage.
	AuditWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelview_audit_writes_total",
			Help: "Access audit writes by event type and result",
		},
		[]string{"event_type", "result"},
	)

	AccessEventsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelview_access_events_stored_total",
			Help: "Access events persisted to access_logs",
		},
		[]string{"event_type", "success"},
	)

	AdminStreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parcelview_admin_stream_clients",
			Help: "Connected admin live-feed websocket clients",
		},
	)
)
