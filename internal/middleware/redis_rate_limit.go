package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/cache"
	apierrors "github.com/quillhub/backend/internal/errors"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/util"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by every server
// instance. Without a Redis client it falls back to the in-memory limiter.
// Redis errors reject the request with 503.
func RedisRateLimitMiddleware(rc *cache.RedisClient, config RateLimitConfig) gin.HandlerFunc {
	if rc == nil {
		logger.Log.Warn("Redis unavailable, using in-memory rate limiter",
			zap.Int("limit", config.Limit), zap.Duration("window", config.Window))
		return NewRateLimiter(config)
	}

	return func(c *gin.Context) {
		clientKey := config.key(c)
		key := fmt.Sprintf("rate_limit:%s", clientKey)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := rc.IncrWindow(ctx, key, config.Window)
		if err != nil {
			logger.FromContext(c.Request.Context()).Error("Rate limit check failed, rejecting request",
				zap.String("client", clientKey), zap.Error(err))
			util.RespondWithAPIError(c, apierrors.ServiceUnavailable("rate limiter"))
			c.Abort()
			return
		}

		remaining := config.Limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > int64(config.Limit) {
			retryAfter := int(config.Window.Seconds())
			if ttl, err := rc.TTL(ctx, key); err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds()) + 1
			}
			logger.Log.Warn("Rate limit exceeded",
				zap.String("client", clientKey),
				zap.Int("max_requests", config.Limit),
				zap.Int64("current_requests", count))
			RecordRateLimitExceeded(c.FullPath(), c.Request.Method)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			util.RespondWithAPIError(c, apierrors.RateLimited("rate limit exceeded"))
			c.Abort()
			return
		}

		c.Next()
	}
}
