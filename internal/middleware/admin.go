package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/util"
)

// RequireAdmin ensures the request is authenticated and the user is an admin.
// Must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if util.OptionalUserID(c) == 0 {
			util.RespondUnauthorized(c)
			c.Abort()
			return
		}
		if !util.IsAdmin(c) {
			util.RespondForbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
