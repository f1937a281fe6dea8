package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/auth"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/util"
)

// TokenValidator verifies bearer tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// AuthMiddleware requires a valid bearer token and puts the caller's
// identity on the context. Requests without one get 401.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "no token provided")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			logger.FromContext(c.Request.Context()).Debug("Token rejected", logger.WithIP(c.ClientIP()))
			util.RespondUnauthorized(c, "invalid token")
			c.Abort()
			return
		}

		SetIdentity(c, claims.UserID, claims.Role, claims.Username)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the identity when a valid token is present
// and lets anonymous requests through
func OptionalAuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := tokens.ValidateToken(token); err == nil {
				SetIdentity(c, claims.UserID, claims.Role, claims.Username)
			}
		}
		c.Next()
	}
}

// SetIdentity stores the authenticated user on the gin and request contexts
func SetIdentity(c *gin.Context, userID uint, role, username string) {
	c.Set(util.ContextUserID, userID)
	c.Set(util.ContextUserRole, role)
	c.Set(util.ContextUsername, username)

	ctx := c.Request.Context()
	l := logger.FromContext(ctx).With(logger.WithUserID(userID))
	c.Request = c.Request.WithContext(logger.NewContext(ctx, l))
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
