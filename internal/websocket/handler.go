package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quillhub/backend/internal/auth"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/util"
	"go.uber.org/zap"
)

// TokenValidator authenticates the handshake token
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// Handler handles WebSocket HTTP upgrade requests and the realtime
// introspection endpoints
type Handler struct {
	hub      *Hub
	registry *Registry
	rooms    *RoomTracker
	tokens   TokenValidator
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, registry *Registry, rooms *RoomTracker, tokens TokenValidator) *Handler {
	return &Handler{
		hub:      hub,
		registry: registry,
		rooms:    rooms,
		tokens:   tokens,
	}
}

// HandleWebSocket handles WebSocket upgrade requests.
// The JWT comes from ?token=... or an Authorization: Bearer header.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	claims, err := h.authenticateRequest(c)
	if err != nil {
		logger.Log.Debug("WebSocket auth failed", logger.WithIP(c.ClientIP()), zap.Error(err))
		util.RespondUnauthorized(c, "authentication failed")
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", logger.WithIP(c.ClientIP()), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, uuid.NewString(), claims.UserID, claims.Username, claims.Role)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client)

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to Quill!",
		Data: map[string]interface{}{
			"user_id":     claims.UserID,
			"username":    claims.Username,
			"conn_id":     client.ConnID,
			"server_time": time.Now().UTC().UnixMilli(),
		},
	}))

	go client.WritePump()
	client.ReadPump()

	h.disconnect(client.ConnID)
}

// disconnect releases room membership before presence
func (h *Handler) disconnect(connID string) {
	h.rooms.OnDisconnect(connID)
	h.registry.OnDisconnect(connID)
}

func (h *Handler) authenticateRequest(c *gin.Context) (*auth.Claims, error) {
	tokenString := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		tokenString = strings.TrimPrefix(header, "Bearer ")
	}
	if tokenString == "" {
		return nil, errors.New("no authentication token provided")
	}
	return h.tokens.ValidateToken(tokenString)
}

// HandleMetrics returns hub metrics, presence counts and per-connection info.
// Mount behind admin auth; connection info carries client addresses.
func (h *Handler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocket":       h.hub.GetMetrics(),
		"online_users":    h.registry.OnlineUsers(),
		"connected_users": h.hub.ConnectedUsers(),
		"connections":     h.hub.Connections(),
		"timestamp":       time.Now().UTC(),
	})
}

// HandleOnlineStatus reports which of the requested users are online
func (h *Handler) HandleOnlineStatus(c *gin.Context) {
	var req struct {
		UserIDs []uint `json:"user_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "user_ids is required")
		return
	}

	statuses := make(map[uint]bool, len(req.UserIDs))
	for _, id := range req.UserIDs {
		statuses[id] = h.registry.IsOnline(id)
	}
	c.JSON(http.StatusOK, gin.H{
		"statuses":  statuses,
		"timestamp": time.Now().UTC(),
	})
}

// HandleViewers returns the live viewer count of a post
func (h *Handler) HandleViewers(c *gin.Context) {
	postID, ok := util.ParseIDParam(c, "postId")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"post_id": postID,
		"viewers": h.rooms.ViewerCount(postID),
	})
}

// ViewerCount exposes the room tracker to other handlers
func (h *Handler) ViewerCount(postID uint) int {
	return h.rooms.ViewerCount(postID)
}

// Shutdown closes every connection and stops the hub
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.hub.Shutdown(ctx)
}
