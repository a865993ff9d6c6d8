// Package metrics exposes Prometheus collectors for the chat core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "random_chat_matches_total",
		Help: "Sessions created by the matchmaker.",
	})

	NoCandidateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "random_chat_no_candidate_total",
		Help: "Match requests that found nobody waiting.",
	})

	SessionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "random_chat_sessions_expired_total",
		Help: "Idle sessions ended by the housekeeper.",
	})

	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Messages persisted, by surface.",
	}, []string{"surface"})

	ThrottledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_throttled_total",
		Help: "Requests rejected by the abuse guard.",
	}, []string{"reason"})

	Connections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chat_connections",
		Help: "Open realtime connections, by surface.",
	}, []string{"surface"})

	DroppedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_dropped_deliveries_total",
		Help: "Group deliveries dropped because a client could not keep up.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

const (
	SurfaceRoom       = "room"
	SurfaceRandomChat = "random_chat"
	SurfaceTelegram   = "telegram"
)
