package search

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/quillhub/backend/internal/cache"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/metrics"
	"go.uber.org/zap"
)

const resultCacheName = "search_results"

// QueryCache keeps search results in Redis for a short time. Entries are not
// invalidated on writes; the TTL bounds staleness.
type QueryCache struct {
	redis *cache.RedisClient
	ttl   time.Duration
}

// NewQueryCache creates a result cache
func NewQueryCache(rc *cache.RedisClient, ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &QueryCache{redis: rc, ttl: ttl}
}

// QueryCacheKey hashes the lower-cased query, matching the case-insensitive search
func QueryCacheKey(query string) string {
	hash := md5.Sum([]byte(strings.ToLower(query)))
	return fmt.Sprintf("search:posts:%x", hash)
}

func (c *QueryCache) Get(ctx context.Context, query string) ([]PostDocument, bool) {
	m := metrics.Get()
	raw, err := c.redis.Get(ctx, QueryCacheKey(query))
	if err != nil {
		if err != cache.ErrMiss {
			logger.Log.Warn("Search cache read failed", zap.Error(err))
		}
		m.CacheMissesTotal.WithLabelValues(resultCacheName).Inc()
		return nil, false
	}

	var docs []PostDocument
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		m.CacheMissesTotal.WithLabelValues(resultCacheName).Inc()
		return nil, false
	}
	m.CacheHitsTotal.WithLabelValues(resultCacheName).Inc()
	return docs, true
}

func (c *QueryCache) Set(ctx context.Context, query string, docs []PostDocument) {
	data, err := json.Marshal(docs)
	if err != nil {
		return
	}
	if err := c.redis.SetEx(ctx, QueryCacheKey(query), data, c.ttl); err != nil {
		logger.Log.Warn("Search cache write failed", zap.Error(err))
	}
}

var _ ResultCache = (*QueryCache)(nil)
