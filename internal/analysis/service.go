package analysis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tradepulse/tradepulse-go/internal/config"
	"github.com/tradepulse/tradepulse-go/internal/marketdata"
	"github.com/tradepulse/tradepulse-go/internal/models"
)

// ResultCache is the optional read-through cache in front of the pipeline.
// Implementations are best-effort; a miss simply recomputes.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.AnalysisResult, bool)
	Set(ctx context.Context, key string, result *models.AnalysisResult)
}

// Service is the request-facing entry point of the signal pipeline. It
// creates one MarketAnalyzer per request, so concurrent analyses for
// different symbols share nothing but the provider.
type Service struct {
	provider marketdata.Provider
	cfg      config.AnalysisConfig
	retry    RetryPolicy
	cache    ResultCache
	logger   *logrus.Logger
}

// NewService wires the pipeline. cache may be nil.
func NewService(provider marketdata.Provider, cfg config.AnalysisConfig, retry RetryPolicy, cache ResultCache, logger *logrus.Logger) *Service {
	return &Service{
		provider: marketdata.NewSingleFlightProvider(provider),
		cfg:      cfg,
		retry:    retry,
		cache:    cache,
		logger:   logger,
	}
}

// NewAnalyzer creates a fresh per-request analyzer for the symbol.
func (s *Service) NewAnalyzer(symbol string) *MarketAnalyzer {
	return NewMarketAnalyzer(symbol, s.provider, s.cfg, s.retry, s.logger)
}

// Analyze runs the pipeline for one request, consulting the cache first.
// Failed results are never cached.
func (s *Service) Analyze(ctx context.Context, symbol string, timeframes []int) *models.AnalysisResult {
	if len(timeframes) == 0 {
		timeframes = s.cfg.Timeframes
	}

	key := cacheKey(symbol, timeframes)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			return cached
		}
	}

	result := s.NewAnalyzer(symbol).AnalyzeMarket(ctx, timeframes...)

	if s.cache != nil && !result.Failed() {
		s.cache.Set(ctx, key, result)
	}
	return result
}

// Timeframes exposes the configured default timeframe set.
func (s *Service) Timeframes() []int {
	return s.cfg.Timeframes
}

func cacheKey(symbol string, timeframes []int) string {
	sorted := make([]int, len(timeframes))
	copy(sorted, timeframes)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, tf := range sorted {
		parts[i] = strconv.Itoa(tf)
	}
	return fmt.Sprintf("%s@%s", symbol, strings.Join(parts, ","))
}
