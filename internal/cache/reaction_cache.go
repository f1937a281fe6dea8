package cache

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/metrics"
	"github.com/quillhub/backend/internal/reactions"
	"go.uber.org/zap"
)

const reactionCacheName = "reaction_counts"

// ReactionCountCache keeps zero-filled reaction counts per target in Redis.
// Redis failures degrade to misses; the engine then reads the database.
type ReactionCountCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewReactionCountCache creates a count cache with the given entry lifetime
func NewReactionCountCache(rc *RedisClient, ttl time.Duration) *ReactionCountCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReactionCountCache{redis: rc, ttl: ttl}
}

// ReactionCountKey is the Redis key holding a target's counts
func ReactionCountKey(kind reactions.Kind, targetID uint) string {
	return fmt.Sprintf("reactions:%s:%d:counts", kind, targetID)
}

func (c *ReactionCountCache) Get(ctx context.Context, kind reactions.Kind, targetID uint) ([]reactions.TypeCount, bool) {
	m := metrics.Get()
	raw, err := c.redis.Get(ctx, ReactionCountKey(kind, targetID))
	if err != nil {
		if err != ErrMiss {
			logger.Log.Warn("Reaction cache read failed", zap.String("kind", string(kind)), zap.Uint("target_id", targetID), zap.Error(err))
		}
		m.CacheMissesTotal.WithLabelValues(reactionCacheName).Inc()
		return nil, false
	}

	var counts []reactions.TypeCount
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		m.CacheMissesTotal.WithLabelValues(reactionCacheName).Inc()
		return nil, false
	}
	m.CacheHitsTotal.WithLabelValues(reactionCacheName).Inc()
	return counts, true
}

func (c *ReactionCountCache) Set(ctx context.Context, kind reactions.Kind, targetID uint, counts []reactions.TypeCount) {
	data, err := json.Marshal(counts)
	if err != nil {
		return
	}
	if err := c.redis.SetEx(ctx, ReactionCountKey(kind, targetID), data, c.ttl); err != nil {
		logger.Log.Warn("Reaction cache write failed", zap.String("kind", string(kind)), zap.Uint("target_id", targetID), zap.Error(err))
	}
}

func (c *ReactionCountCache) Invalidate(ctx context.Context, kind reactions.Kind, targetID uint) {
	if err := c.redis.Del(ctx, ReactionCountKey(kind, targetID)); err != nil {
		logger.Log.Warn("Reaction cache invalidation failed", zap.String("kind", string(kind)), zap.Uint("target_id", targetID), zap.Error(err))
	}
}

var _ reactions.CountCache = (*ReactionCountCache)(nil)
