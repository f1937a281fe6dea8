// Package websocket provides WebSocket infrastructure for real-time communication.
// Uses github.com/coder/websocket - the modern, context-aware WebSocket library for Go.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrConnNotFound = errors.New("connection not found")
	ErrBufferFull   = errors.New("send buffer full")
)

// Hub maintains the set of active clients and delivers frames to them.
// Every frame for a connection goes through that client's send channel, so
// frames reach a connection in the order they were handed to the hub.
type Hub struct {
	// Clients by connection id
	clients map[string]*Client

	// Clients whose buffer overflowed, waiting to be dropped by Run
	drop chan *Client

	// Mutex for client map access
	mu sync.RWMutex

	// Metrics
	metrics *Metrics

	// Shutdown handling
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Message handlers
	handlers map[string]MessageHandler

	// Rate limiter config
	rateLimitConfig RateLimitConfig
}

// Metrics tracks WebSocket statistics
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	// MaxMessagesPerSecond per client
	MaxMessagesPerSecond int
	// BurstSize allows short bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
	}
}

// MessageHandler processes incoming messages of a specific type
type MessageHandler func(client *Client, message *Message) error

// NewHub creates a new Hub instance
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[string]*Client),
		drop:            make(chan *Client, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		handlers:        make(map[string]MessageHandler),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// RegisterHandler registers a handler for a specific message type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
	logger.Log.Debug("Registered websocket handler", logger.WithEvent(msgType))
}

// GetHandler returns the handler for a message type
func (h *Hub) GetHandler(msgType string) (MessageHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.handlers[msgType]
	return handler, ok
}

// Run drops slow clients until the hub shuts down
func (h *Hub) Run() {
	logger.Log.Info("WebSocket hub starting")
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			logger.Log.Info("WebSocket hub shutting down")
			h.shutdown()
			return

		case client := <-h.drop:
			logger.Log.Warn("Dropping slow websocket client",
				logger.WithConnID(client.ConnID),
				logger.WithUserID(client.UserID))
			h.Unregister(client)
			client.Close()
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ConnID] = client
	h.mu.Unlock()

	h.metrics.TotalConnections.Add(1)
	active := h.metrics.ActiveConnections.Add(1)
	metrics.App().WSConnectionsTotal.Inc()
	metrics.App().WSConnectionsActive.Inc()

	logger.Log.Info("Client connected",
		logger.WithConnID(client.ConnID),
		logger.WithUserID(client.UserID),
		zap.Int64("active", active))
}

// Unregister removes a client from the hub and closes its send channel
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.ConnID]
	if ok && current == client {
		delete(h.clients, client.ConnID)
		close(client.send)
	}
	h.mu.Unlock()

	if !ok || current != client {
		return
	}
	active := h.metrics.ActiveConnections.Add(-1)
	metrics.App().WSConnectionsActive.Dec()

	logger.Log.Info("Client disconnected",
		logger.WithConnID(client.ConnID),
		logger.WithUserID(client.UserID),
		zap.Int64("active", active))
}

// enqueue pushes data to a client. Caller holds h.mu (read or write).
func (h *Hub) enqueue(client *Client, data []byte) error {
	select {
	case client.send <- data:
		h.metrics.MessagesSent.Add(1)
		return nil
	default:
		// Client's buffer is full, mark for removal
		h.metrics.ConnectionsDropped.Add(1)
		metrics.App().WSDroppedClients.Inc()
		select {
		case h.drop <- client:
		default:
		}
		return ErrBufferFull
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(message *Message) {
	data, err := message.Encode()
	if err != nil {
		logger.Log.Error("Error marshaling broadcast message", logger.WithEvent(message.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, client := range h.clients {
		if h.enqueue(client, data) == nil {
			sent++
		}
	}
	metrics.App().WSMessagesSent.WithLabelValues(message.Type).Add(float64(sent))
}

// SendToConns sends a message to each listed connection that is still open
func (h *Hub) SendToConns(connIDs []string, message *Message) {
	if len(connIDs) == 0 {
		return
	}
	data, err := message.Encode()
	if err != nil {
		logger.Log.Error("Error marshaling message", logger.WithEvent(message.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range connIDs {
		if client, ok := h.clients[id]; ok {
			if h.enqueue(client, data) == nil {
				metrics.App().WSMessagesSent.WithLabelValues(message.Type).Inc()
			}
		}
	}
}

// SendToConn sends a message to one connection
func (h *Hub) SendToConn(connID string, message *Message) error {
	data, err := message.Encode()
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connID]
	if !ok {
		return ErrConnNotFound
	}
	if err := h.enqueue(client, data); err != nil {
		return err
	}
	metrics.App().WSMessagesSent.WithLabelValues(message.Type).Inc()
	return nil
}

// IsConnected reports whether a connection id is registered
func (h *Hub) IsConnected(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[connID]
	return ok
}

// ConnectedUsers returns the distinct authenticated users with an open connection
func (h *Hub) ConnectedUsers() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[uint]struct{}, len(h.clients))
	users := make([]uint, 0, len(h.clients))
	for _, c := range h.clients {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		users = append(users, c.UserID)
	}
	return users
}

// Connections returns info about every open connection, oldest first
func (h *Hub) Connections() []ClientInfo {
	h.mu.RLock()
	infos := make([]ClientInfo, 0, len(h.clients))
	for _, c := range h.clients {
		infos = append(infos, c.GetInfo())
	}
	h.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].ConnectedAt.Equal(infos[j].ConnectedAt) {
			return infos[i].ConnID < infos[j].ConnID
		}
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
	return infos
}

// GetMetrics returns current WebSocket metrics
func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

// String implements Stringer for MetricsSnapshot
func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped,
	)
}

// Shutdown stops Run and closes every connection
func (h *Hub) Shutdown(ctx context.Context) error {
	logger.Log.Info("Initiating WebSocket hub shutdown")
	h.cancel()

	select {
	case <-h.done:
		logger.Log.Info("WebSocket hub shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// shutdown closes all client connections
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, _ := NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"}).Encode()
	for id, client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
		close(client.send)
		delete(h.clients, id)
		metrics.App().WSConnectionsActive.Dec()
	}
	h.metrics.ActiveConnections.Store(0)
	logger.Log.Info("Closed websocket connections during shutdown", zap.Time("at", time.Now().UTC()))
}

// SetRateLimitConfig updates the rate limiting configuration
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

// GetRateLimitConfig returns the current rate limit configuration
func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
