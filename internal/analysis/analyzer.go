package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/tradepulse-go/internal/config"
	"github.com/tradepulse/tradepulse-go/internal/marketdata"
	"github.com/tradepulse/tradepulse-go/internal/models"
)

// RetryPolicy bounds the fetch retries at the provider boundary. Only
// transient provider failures are retried; NoData returns immediately.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy mirrors the market data config defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 500 * time.Millisecond}
}

// MarketAnalyzer orchestrates one symbol's analysis: fetch the series once,
// window it per timeframe, run the indicator engine and the signal reducer,
// and assemble the aggregate result.
//
// An analyzer is cheap to construct and meant to live for one request
// cycle. The fetched series is cached for that cycle so GetMarketData and
// every timeframe computation observe the same market snapshot.
type MarketAnalyzer struct {
	symbol   string
	provider marketdata.Provider
	cfg      config.AnalysisConfig
	retry    RetryPolicy
	engine   *IndicatorEngine
	reducer  *SignalReducer
	logger   *logrus.Logger

	mu       sync.Mutex
	language string
	series   *models.PriceSeries
}

// NewMarketAnalyzer creates an analyzer for one symbol. All pipeline
// parameters come from the injected config; there is no global state.
func NewMarketAnalyzer(symbol string, provider marketdata.Provider, cfg config.AnalysisConfig, retry RetryPolicy, logger *logrus.Logger) *MarketAnalyzer {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	return &MarketAnalyzer{
		symbol:   symbol,
		provider: provider,
		cfg:      cfg,
		retry:    retry,
		engine:   NewIndicatorEngine(cfg),
		reducer:  NewSignalReducer(cfg),
		logger:   logger,
		language: "tg",
	}
}

// SetLanguage records the display language for downstream formatting.
// It has no effect on any computation.
func (a *MarketAnalyzer) SetLanguage(lang string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.language = lang
}

// Language returns the display language recorded for this request.
func (a *MarketAnalyzer) Language() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.language
}

// Symbol returns the instrument this analyzer was built for.
func (a *MarketAnalyzer) Symbol() string {
	return a.symbol
}

// AnalyzeMarket runs the full pipeline for the given timeframes (falling
// back to the configured set). The series is fetched once, covering the
// largest timeframe's window; a fetch failure sets Error and leaves
// Timeframes empty, while per-timeframe failures only mark their own entry.
func (a *MarketAnalyzer) AnalyzeMarket(ctx context.Context, timeframes ...int) *models.AnalysisResult {
	if len(timeframes) == 0 {
		timeframes = a.cfg.Timeframes
	}

	requestID := uuid.New().String()
	log := a.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"symbol":     a.symbol,
	})

	result := &models.AnalysisResult{
		Symbol:     a.symbol,
		Timeframes: make(map[int]models.TimeframeOutcome, len(timeframes)),
	}

	maxTimeframe := 0
	for _, tf := range timeframes {
		if tf > maxTimeframe {
			maxTimeframe = tf
		}
	}
	lookback := a.cfg.MinBars() + maxTimeframe

	series, err := a.fetchSeries(ctx, lookback)
	if err != nil {
		log.WithError(err).Warn("Market data fetch failed")
		result.Error = err.Error()
		result.ErrorKind = classifyFetchError(err)
		return result
	}

	// A request abandoned mid-fetch must not deliver stale results.
	if err := ctx.Err(); err != nil {
		log.WithError(err).Debug("Discarding analysis for cancelled request")
		result.Error = err.Error()
		result.ErrorKind = models.ErrorKindCancelled
		return result
	}

	result.CurrentPrice = series.LastClose()
	result.EvaluatedAt = series.Bars[series.Len()-1].Timestamp

	for _, tf := range timeframes {
		required := a.cfg.MinBars() + tf
		if series.Len() < required {
			insufficient := &marketdata.InsufficientDataError{
				TimeframeMinutes: tf,
				Required:         required,
				Got:              series.Len(),
			}
			log.WithField("timeframe", tf).WithError(insufficient).Debug("Skipping timeframe")
			result.Timeframes[tf] = models.TimeframeOutcome{Error: insufficient.Error()}
			continue
		}

		snapshot, err := a.engine.Compute(series.Tail(required), tf)
		if err != nil {
			log.WithField("timeframe", tf).WithError(err).Debug("Indicator computation failed")
			result.Timeframes[tf] = models.TimeframeOutcome{Error: err.Error()}
			continue
		}

		signal := a.reducer.Reduce(tf, snapshot)
		result.Timeframes[tf] = models.TimeframeOutcome{Result: &signal}
	}

	log.WithField("timeframes", len(result.Timeframes)).Info("Market analysis completed")
	return result
}

// GetMarketData returns the trailing minutes of the series fetched in this
// analysis cycle, fetching only if no cycle has run yet. Repeated calls
// never trigger a second provider round-trip.
func (a *MarketAnalyzer) GetMarketData(ctx context.Context, minutes int) (*models.PriceSeries, error) {
	a.mu.Lock()
	cached := a.series
	a.mu.Unlock()

	if cached == nil {
		series, err := a.fetchSeries(ctx, a.cfg.MinBars()+minutes)
		if err != nil {
			return nil, err
		}
		cached = series
	}

	if minutes > 0 {
		return cached.Tail(minutes), nil
	}
	return cached, nil
}

// fetchSeries retrieves the series with bounded retries, caching it for
// the rest of the cycle.
func (a *MarketAnalyzer) fetchSeries(ctx context.Context, lookbackMinutes int) (*models.PriceSeries, error) {
	a.mu.Lock()
	if a.series != nil {
		cached := a.series
		a.mu.Unlock()
		return cached, nil
	}
	a.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= a.retry.MaxAttempts; attempt++ {
		series, err := a.provider.Fetch(ctx, a.symbol, lookbackMinutes)
		if err == nil {
			a.mu.Lock()
			a.series = series
			a.mu.Unlock()
			return series, nil
		}
		lastErr = err

		// A dead request gets no further attempts even when the provider
		// wrapped the cancellation in its own error type.
		if ctx.Err() != nil {
			return nil, err
		}
		// Only transient provider failures are worth another attempt.
		if !marketdata.IsProviderError(err) {
			return nil, err
		}
		if attempt == a.retry.MaxAttempts {
			break
		}

		a.logger.WithFields(logrus.Fields{
			"symbol":  a.symbol,
			"attempt": attempt,
		}).WithError(err).Debug("Retrying market data fetch")

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(a.retry.Delay * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

// classifyFetchError checks for a cancellation first: providers wrap
// context errors in ProviderError, and a cancelled request is not a
// provider fault.
func classifyFetchError(err error) models.ErrorKind {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.ErrorKindCancelled
	case marketdata.IsNoData(err):
		return models.ErrorKindNoData
	default:
		return models.ErrorKindProvider
	}
}
