package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatcore_messages_sent_total",
		Help: "Messages persisted by the chat service.",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatcore_realtime_events_published_total",
		Help: "Events handed to the realtime hub, by type.",
	}, []string{"type"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatcore_realtime_events_dropped_total",
		Help: "Events dropped because a subscriber buffer or the hub queue was full.",
	})

	RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatcore_realtime_connections",
		Help: "Currently open realtime connections (SSE and WebSocket).",
	})
)
