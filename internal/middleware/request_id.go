package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quillhub/backend/internal/logger"
)

// RequestIDMiddleware adds a unique request ID to each request.
// An incoming X-Request-ID header is reused; otherwise a UUID is generated.
// The request context carries a logger tagged with the id.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		ctx := c.Request.Context()
		c.Request = c.Request.WithContext(logger.NewContext(ctx, logger.Log.With(logger.WithRequestID(requestID))))

		c.Next()
	}
}
