package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/tradepulse-go/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisAnalysisCache, *miniredis.Miniredis) {
	t.Helper()
	redisServer := miniredis.RunT(t)

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisServer.Addr(),
	})

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewRedisAnalysisCache(redisClient, ttl, logger), redisServer
}

func sampleResult(symbol string) *models.AnalysisResult {
	signal := models.SignalResult{
		TimeframeMinutes:  5,
		Signal:            models.SignalBuy,
		Confidence:        73,
		ExpirationMinutes: 5,
	}
	return &models.AnalysisResult{
		Symbol:       symbol,
		CurrentPrice: decimal.NewFromFloat(1.1050),
		EvaluatedAt:  time.Date(2025, 6, 2, 9, 59, 0, 0, time.UTC),
		Timeframes: map[int]models.TimeframeOutcome{
			5: {Result: &signal},
		},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	stored := sampleResult("EURUSD@5,15")
	cache.Set(ctx, "EURUSD@5,15", stored)

	loaded, ok := cache.Get(ctx, "EURUSD@5,15")
	require.True(t, ok)
	assert.Equal(t, stored.Symbol, loaded.Symbol)
	assert.True(t, stored.CurrentPrice.Equal(loaded.CurrentPrice))
	assert.True(t, stored.EvaluatedAt.Equal(loaded.EvaluatedAt))
	require.NotNil(t, loaded.Timeframes[5].Result)
	assert.Equal(t, models.SignalBuy, loaded.Timeframes[5].Result.Signal)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t, 30*time.Second)

	_, ok := cache.Get(context.Background(), "GBPUSD@5")
	assert.False(t, ok)
	assert.Equal(t, int64(1), cache.Stats().Misses)
}

func TestCacheNeverStoresFailures(t *testing.T) {
	cache, _ := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	cache.Set(ctx, "EURUSD@5", &models.AnalysisResult{
		Symbol:    "EURUSD",
		Error:     "provider request for EURUSD failed",
		ErrorKind: models.ErrorKindProvider,
	})
	cache.Set(ctx, "EURUSD@5", nil)

	_, ok := cache.Get(ctx, "EURUSD@5")
	assert.False(t, ok)
	assert.Zero(t, cache.Stats().Sets)
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, redisServer := newTestCache(t, time.Second)
	ctx := context.Background()

	cache.Set(ctx, "EURUSD@5", sampleResult("EURUSD"))
	redisServer.FastForward(2 * time.Second)

	_, ok := cache.Get(ctx, "EURUSD@5")
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	cache.Set(ctx, "EURUSD@5", sampleResult("EURUSD"))
	cache.Set(ctx, "EURUSD@5,15", sampleResult("EURUSD"))
	cache.Set(ctx, "GBPUSD@5", sampleResult("GBPUSD"))

	// Invalidation by symbol clears every timeframe variant.
	cache.Invalidate(ctx, "EURUSD")

	_, ok := cache.Get(ctx, "EURUSD@5")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "EURUSD@5,15")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "GBPUSD@5")
	assert.True(t, ok, "other symbols must survive the invalidation")
}

func TestCacheCorruptEntryDegradesToMiss(t *testing.T) {
	cache, redisServer := newTestCache(t, 30*time.Second)

	require.NoError(t, redisServer.Set("analysis_cache:EURUSD@5", "{not json"))

	_, ok := cache.Get(context.Background(), "EURUSD@5")
	assert.False(t, ok)
	assert.Equal(t, int64(1), cache.Stats().Misses)
}
