package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/notifications"
	"github.com/quillhub/backend/internal/util"
)

// GetNotifications lists the caller's notifications, newest first.
// ?unread=true restricts to unread ones.
// GET /api/v1/notifications
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c, 20, 100)

	list, err := h.notifications.List(c.Request.Context(), userID, notifications.ListQuery{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: c.Query("unread") == "true",
	})
	if err != nil {
		respondError(c, err)
		return
	}

	unread, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": list,
		"unread":        unread,
		"meta": gin.H{
			"limit":  limit,
			"offset": offset,
			"count":  len(list),
		},
	})
}

// GetUnreadCount returns the badge count
// GET /api/v1/notifications/unread-count
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	n, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// MarkNotificationRead marks one notification as read
// PATCH /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := util.ParseIDParam(c, "id")
	if !ok {
		return
	}

	n, err := h.notifications.MarkRead(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": n})
}

// MarkAllNotificationsRead marks every notification of the caller as read
// PATCH /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	n, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// DeleteNotification removes one of the caller's notifications
// DELETE /api/v1/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := util.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.Delete(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}

// DeleteAllNotifications clears the caller's notifications
// DELETE /api/v1/notifications
func (h *Handlers) DeleteAllNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	n, err := h.notifications.DeleteAll(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
