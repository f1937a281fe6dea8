package util

import (
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware
const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
	ContextUsername = "username"
)

// RoleAdmin is the role that may act on other users' content
const RoleAdmin = "admin"

// GetUserIDFromContext extracts the authenticated user ID from the Gin context.
// If the user is not authenticated, it responds with 401 Unauthorized.
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		RespondUnauthorized(c)
		return 0, false
	}
	id, ok := userID.(uint)
	if !ok || id == 0 {
		RespondUnauthorized(c, "invalid user in context")
		return 0, false
	}
	return id, true
}

// OptionalUserID returns the authenticated user ID, or 0 without responding
func OptionalUserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// IsAdmin reports whether the authenticated user carries the admin role
func IsAdmin(c *gin.Context) bool {
	return c.GetString(ContextUserRole) == RoleAdmin
}
