package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shufflesync_relay_active_connections",
			Help: "Number of open signaling connections",
		},
	)

	activeRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shufflesync_relay_active_rooms",
			Help: "Number of rooms with at least one participant",
		},
	)

	messagesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shufflesync_relay_messages_total",
			Help: "Signaling messages processed, by type",
		},
		[]string{"type"},
	)
)
