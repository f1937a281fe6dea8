package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ApplicationMetrics tracks the realtime social features
type ApplicationMetrics struct {
	// Reactions
	ReactionTransitions prometheus.CounterVec
	ReactionLockWait    prometheus.Histogram

	// Notifications
	NotificationsCreated prometheus.CounterVec
	NotificationPushes   prometheus.CounterVec

	// Mentions
	MentionsResolved prometheus.Counter

	// WebSocket
	WSConnectionsActive prometheus.Gauge
	WSConnectionsTotal  prometheus.Counter
	WSEventsReceived    prometheus.CounterVec
	WSMessagesSent      prometheus.CounterVec
	WSDroppedClients    prometheus.Counter

	// Rooms
	RoomsActive  prometheus.Gauge
	RoomViewers  prometheus.Gauge
	OnlineUsers  prometheus.Gauge

	// Comments
	CommentsCreated prometheus.CounterVec
}

var (
	appInstance *ApplicationMetrics
	appOnce     sync.Once
)

// App returns the application metrics, registering them on first use
func App() *ApplicationMetrics {
	appOnce.Do(func() {
		appInstance = &ApplicationMetrics{
			ReactionTransitions: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reaction_transitions_total",
					Help: "Reaction toggle outcomes by target kind",
				},
				[]string{"kind", "outcome"},
			),
			ReactionLockWait: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "reaction_lock_wait_seconds",
					Help:    "Time spent waiting for the per-target reaction lock",
					Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
				},
			),

			NotificationsCreated: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_created_total",
					Help: "Durable notifications written, by type",
				},
				[]string{"type"},
			),
			NotificationPushes: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notification_pushes_total",
					Help: "Live notification delivery attempts by result (sent, offline, failed)",
				},
				[]string{"result"},
			),

			MentionsResolved: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "mentions_resolved_total",
					Help: "Mentions that resolved to a known user",
				},
			),

			WSConnectionsActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections_active",
					Help: "Currently open WebSocket connections",
				},
			),
			WSConnectionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "websocket_connections_total",
					Help: "WebSocket connections accepted",
				},
			),
			WSEventsReceived: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_events_received_total",
					Help: "Inbound WebSocket events by type and result",
				},
				[]string{"event", "result"},
			),
			WSMessagesSent: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_messages_sent_total",
					Help: "Outbound WebSocket frames by event type",
				},
				[]string{"event"},
			),
			WSDroppedClients: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "websocket_dropped_clients_total",
					Help: "Clients dropped because their send buffer was full",
				},
			),

			RoomsActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "post_rooms_active",
					Help: "Post rooms with at least one viewer",
				},
			),
			RoomViewers: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "post_room_viewers",
					Help: "Connections currently viewing a post",
				},
			),
			OnlineUsers: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "presence_online_users",
					Help: "Identities with at least one registered connection",
				},
			),

			CommentsCreated: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "comments_created_total",
					Help: "Comments created by entry point (http, websocket)",
				},
				[]string{"source"},
			),
		}
	})
	return appInstance
}
