package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/cache"
	"github.com/quillhub/backend/internal/logger"
	"go.uber.org/zap"
)

// ResponseCacheMiddleware caches successful anonymous-safe GET responses in
// Redis for ttl. Responses carry X-Cache: HIT or MISS. Without a client it
// is a pass-through.
func ResponseCacheMiddleware(rc *cache.RedisClient, name string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rc == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		cacheKey := ResponseCacheKey(name, c.Request.URL.Path, c.Request.URL.RawQuery)
		ctx := c.Request.Context()

		if cached, err := rc.Get(ctx, cacheKey); err == nil {
			RecordCacheHit(name)
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			c.Abort()
			return
		}
		RecordCacheMiss(name)

		writer := &cachedResponseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Header("X-Cache", "MISS")

		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 || writer.body.Len() == 0 {
			return
		}
		if err := rc.SetEx(ctx, cacheKey, writer.body.String(), ttl); err != nil {
			logger.Log.Debug("Failed to write response to cache", zap.String("key", cacheKey), zap.Error(err))
		}
	}
}

// ResponseCacheKey builds the key for a cached response
func ResponseCacheKey(name, path, query string) string {
	key := fmt.Sprintf("response:%s:%s", name, path)
	if query != "" {
		key += "?" + query
	}
	return key
}

// cachedResponseWriter captures the body for caching
type cachedResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cachedResponseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *cachedResponseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
