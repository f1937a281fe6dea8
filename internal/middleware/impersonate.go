package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/util"
	"go.uber.org/zap"
)

// UserByEmail looks up the impersonation target
type UserByEmail interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AdminImpersonationMiddleware lets an admin act as another user.
// With an X-Impersonate-User header (an email), the authenticated user must
// be an admin and the target must exist; the identity is then replaced.
func AdminImpersonationMiddleware(users UserByEmail) gin.HandlerFunc {
	return func(c *gin.Context) {
		impersonateEmail := c.GetHeader("X-Impersonate-User")
		if impersonateEmail == "" {
			c.Next()
			return
		}

		adminID := util.OptionalUserID(c)
		if adminID == 0 {
			util.RespondUnauthorized(c)
			c.Abort()
			return
		}
		if !util.IsAdmin(c) {
			util.RespondForbidden(c, "only admin users can impersonate other users")
			c.Abort()
			return
		}

		target, err := users.GetUserByEmail(c.Request.Context(), impersonateEmail)
		if err != nil {
			util.RespondNotFound(c, "impersonated user")
			c.Abort()
			return
		}

		SetIdentity(c, target.ID, target.Role, target.Username)

		logger.Log.Info("Admin impersonation initiated",
			zap.Uint("admin_id", adminID),
			zap.Uint("impersonated_user_id", target.ID),
			zap.String("request_method", c.Request.Method),
			zap.String("request_path", c.Request.URL.Path),
		)
		c.Next()
	}
}
