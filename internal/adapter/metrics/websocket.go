package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics tracks realtime poll subscribers and the events sent to them.
type WebSocketMetrics struct {
	ActiveConnections   prometheus.Gauge
	RejectedConnections prometheus.Counter
	MessagesPublished   *prometheus.CounterVec
}

func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Participants currently connected for poll events.",
		}),
		RejectedConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rejected_connections_total",
			Help:      "Connections refused because of missing or malformed connect data.",
		}),
		MessagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_published_total",
			Help:      "Total number of poll events published, by event type.",
		}, []string{"event"}),
	}

	reg.MustRegister(m.ActiveConnections, m.RejectedConnections, m.MessagesPublished)
	return m
}
