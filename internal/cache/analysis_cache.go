package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/tradepulse-go/internal/models"
)

// AnalysisCacheStats tracks cache performance counters.
type AnalysisCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// RedisAnalysisCache keeps recent AnalysisResults per symbol with a short
// TTL. It is strictly best-effort: every failure degrades to a miss and the
// pipeline recomputes.
type RedisAnalysisCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Logger

	mu    sync.RWMutex
	stats AnalysisCacheStats
}

// NewRedisAnalysisCache creates a Redis-backed analysis cache.
func NewRedisAnalysisCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisAnalysisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisAnalysisCache{
		redis:  redisClient,
		ttl:    ttl,
		prefix: "analysis_cache:",
		logger: logger,
	}
}

// Get retrieves a cached result for the symbol, reporting whether it hit.
func (c *RedisAnalysisCache) Get(ctx context.Context, symbol string) (*models.AnalysisResult, bool) {
	data, err := c.redis.Get(ctx, c.prefix+symbol).Result()
	if err == redis.Nil {
		c.miss()
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Analysis cache read failed")
		c.miss()
		return nil, false
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Analysis cache entry corrupt")
		c.miss()
		return nil, false
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return &result, true
}

// Set stores a result for the symbol. Failed analyses are never cached.
func (c *RedisAnalysisCache) Set(ctx context.Context, symbol string, result *models.AnalysisResult) {
	if result == nil || result.Failed() {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to serialize analysis result")
		return
	}
	if err := c.redis.Set(ctx, c.prefix+symbol, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Analysis cache write failed")
		return
	}

	c.mu.Lock()
	c.stats.Sets++
	c.mu.Unlock()
}

// Invalidate drops every cached entry for a symbol. Keys carry the
// timeframe set as a suffix, so one symbol can hold several entries.
func (c *RedisAnalysisCache) Invalidate(ctx context.Context, symbol string) {
	keys, err := c.redis.Keys(ctx, c.prefix+symbol+"*").Result()
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Analysis cache invalidation failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Analysis cache invalidation failed")
	}
}

// Stats returns a copy of the hit/miss counters.
func (c *RedisAnalysisCache) Stats() AnalysisCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func (c *RedisAnalysisCache) miss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
}
