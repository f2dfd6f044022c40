package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chitchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chitchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Room lifecycle metrics
	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitchat_rooms_created_total",
			Help: "Total rooms created",
		},
	)

	RoomsDestroyed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chitchat_rooms_destroyed_total",
			Help: "Total rooms destroyed",
		},
		[]string{"reason"}, // "manual" or "expired"
	)

	MessagesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitchat_messages_posted_total",
			Help: "Total messages posted",
		},
	)

	// Event bus metrics
	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chitchat_subscribers",
			Help: "Live room subscriptions",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chitchat_events_published_total",
			Help: "Total events delivered to subscribers",
		},
		[]string{"kind"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitchat_events_dropped_total",
			Help: "Events dropped because a subscriber lagged",
		},
	)

	// Sweeper metrics
	SweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitchat_sweep_failures_total",
			Help: "Rooms the expiry sweeper failed to destroy (retried next tick)",
		},
	)
)
