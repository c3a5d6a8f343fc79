package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/tradepulse-go/internal/config"
	"github.com/tradepulse/tradepulse-go/internal/marketdata"
	"github.com/tradepulse/tradepulse-go/internal/models"
)

// fakeProvider replays a canned series or error and counts fetches.
type fakeProvider struct {
	mu       sync.Mutex
	series   *models.PriceSeries
	err      error
	failures int
	calls    int
}

func (p *fakeProvider) Fetch(ctx context.Context, symbol string, lookbackMinutes int) (*models.PriceSeries, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failures > 0 {
		p.failures--
		return nil, &marketdata.ProviderError{Symbol: symbol, Err: errors.New("connection reset")}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.series, nil
}

func (p *fakeProvider) fetchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestAnalyzer(symbol string, provider marketdata.Provider) *MarketAnalyzer {
	retry := RetryPolicy{MaxAttempts: 1, Delay: time.Millisecond}
	return NewMarketAnalyzer(symbol, provider, config.DefaultAnalysisConfig(), retry, testLogger())
}

func TestAnalyzeMarketUptrend(t *testing.T) {
	provider := &fakeProvider{series: seriesFromCloses("EURUSD", trendingCloses(60, 1.1000, 0.0005))}
	analyzer := newTestAnalyzer("EURUSD", provider)

	result := analyzer.AnalyzeMarket(context.Background(), 5, 15)

	require.False(t, result.Failed(), "unexpected failure: %s", result.Error)
	assert.Equal(t, "EURUSD", result.Symbol)
	assert.Equal(t, 1, provider.fetchCount(), "one analysis must fetch exactly once")
	require.Len(t, result.Timeframes, 2)

	for _, tf := range []int{5, 15} {
		outcome := result.Timeframes[tf]
		require.NotNil(t, outcome.Result, "timeframe %d failed: %s", tf, outcome.Error)
		assert.Equal(t, models.SignalBuy, outcome.Result.Signal)
		assert.GreaterOrEqual(t, outcome.Result.Confidence, 70)
		assert.Equal(t, tf, outcome.Result.ExpirationMinutes)
	}

	last := provider.series.Bars[provider.series.Len()-1]
	assert.True(t, result.EvaluatedAt.Equal(last.Timestamp))
	assert.True(t, result.CurrentPrice.Equal(last.Close))
}

func TestAnalyzeMarketIsIdempotent(t *testing.T) {
	series := seriesFromCloses("GBPUSD", trendingCloses(80, 1.2500, 0.0003))

	run := func() *models.AnalysisResult {
		provider := &fakeProvider{series: series}
		return newTestAnalyzer("GBPUSD", provider).AnalyzeMarket(context.Background(), 5, 15, 30)
	}

	assert.Equal(t, run(), run(), "identical inputs must reproduce the result")
}

func TestAnalyzeMarketInsufficientData(t *testing.T) {
	provider := &fakeProvider{series: seriesFromCloses("EURUSD", constantCloses(10, 1.1))}
	analyzer := newTestAnalyzer("EURUSD", provider)

	result := analyzer.AnalyzeMarket(context.Background(), 5)

	assert.False(t, result.Failed(), "short data is a per-timeframe condition, not a request failure")
	assert.Empty(t, result.Error)
	outcome := result.Timeframes[5]
	assert.Nil(t, outcome.Result)
	assert.Contains(t, outcome.Error, "insufficient data")
}

func TestAnalyzeMarketInsufficiencyIsolation(t *testing.T) {
	// 26 required bars plus 5 covers the short timeframe only.
	provider := &fakeProvider{series: seriesFromCloses("EURUSD", trendingCloses(33, 1.1000, 0.0005))}
	analyzer := newTestAnalyzer("EURUSD", provider)

	result := analyzer.AnalyzeMarket(context.Background(), 5, 30)

	require.False(t, result.Failed())
	assert.NotNil(t, result.Timeframes[5].Result, "short timeframe must survive the long one's shortfall")
	assert.Nil(t, result.Timeframes[30].Result)
	assert.Contains(t, result.Timeframes[30].Error, "insufficient data")
}

func TestAnalyzeMarketNoData(t *testing.T) {
	provider := &fakeProvider{err: &marketdata.NoDataError{Symbol: "XAUUSD"}}
	analyzer := newTestAnalyzer("XAUUSD", provider)

	result := analyzer.AnalyzeMarket(context.Background(), 5)

	assert.True(t, result.Failed())
	assert.Equal(t, models.ErrorKindNoData, result.ErrorKind)
	assert.Empty(t, result.Timeframes)
	assert.Equal(t, 1, provider.fetchCount(), "no-data answers must not be retried")
}

func TestAnalyzeMarketRetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{
		series:   seriesFromCloses("EURUSD", trendingCloses(60, 1.1000, 0.0005)),
		failures: 2,
	}
	retry := RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
	analyzer := NewMarketAnalyzer("EURUSD", provider, config.DefaultAnalysisConfig(), retry, testLogger())

	result := analyzer.AnalyzeMarket(context.Background(), 5)

	assert.False(t, result.Failed(), "third attempt should have succeeded: %s", result.Error)
	assert.Equal(t, 3, provider.fetchCount())
}

func TestAnalyzeMarketRetryBudgetExhausted(t *testing.T) {
	provider := &fakeProvider{
		series:   seriesFromCloses("EURUSD", trendingCloses(60, 1.1000, 0.0005)),
		failures: 2,
	}
	analyzer := newTestAnalyzer("EURUSD", provider)

	result := analyzer.AnalyzeMarket(context.Background(), 5)

	assert.True(t, result.Failed())
	assert.Equal(t, models.ErrorKindProvider, result.ErrorKind)
	assert.Equal(t, 1, provider.fetchCount())
}

func TestAnalyzeMarketCancelledContext(t *testing.T) {
	provider := &fakeProvider{series: seriesFromCloses("EURUSD", trendingCloses(60, 1.1000, 0.0005))}
	analyzer := newTestAnalyzer("EURUSD", provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := analyzer.AnalyzeMarket(ctx, 5)

	assert.True(t, result.Failed())
	assert.Equal(t, models.ErrorKindCancelled, result.ErrorKind)
	assert.Empty(t, result.Timeframes)
}

func TestAnalyzeMarketWrappedCancellation(t *testing.T) {
	// The HTTP client wraps a context error in ProviderError; it must
	// still classify as a cancellation, not a provider fault.
	provider := &fakeProvider{err: &marketdata.ProviderError{Symbol: "EURUSD", Err: context.Canceled}}
	analyzer := newTestAnalyzer("EURUSD", provider)

	result := analyzer.AnalyzeMarket(context.Background(), 5)

	assert.True(t, result.Failed())
	assert.Equal(t, models.ErrorKindCancelled, result.ErrorKind)
}

func TestFetchSkipsRetriesWhenContextDone(t *testing.T) {
	provider := &fakeProvider{
		series:   seriesFromCloses("EURUSD", trendingCloses(60, 1.1000, 0.0005)),
		failures: 3,
	}
	retry := RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
	analyzer := NewMarketAnalyzer("EURUSD", provider, config.DefaultAnalysisConfig(), retry, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := analyzer.AnalyzeMarket(ctx, 5)

	assert.True(t, result.Failed())
	assert.Equal(t, 1, provider.fetchCount(), "a dead request gets no further attempts")
}

func TestClassifyFetchError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.ErrorKind
	}{
		{"no data", &marketdata.NoDataError{Symbol: "EURUSD"}, models.ErrorKindNoData},
		{"provider", &marketdata.ProviderError{Symbol: "EURUSD", Err: errors.New("boom")}, models.ErrorKindProvider},
		{"wrapped cancel", &marketdata.ProviderError{Symbol: "EURUSD", Err: context.Canceled}, models.ErrorKindCancelled},
		{"wrapped deadline", &marketdata.ProviderError{Symbol: "EURUSD", Err: context.DeadlineExceeded}, models.ErrorKindCancelled},
		{"bare cancel", context.Canceled, models.ErrorKindCancelled},
		{"unknown", errors.New("boom"), models.ErrorKindProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyFetchError(tt.err))
		})
	}
}

func TestGetMarketDataReusesCycleFetch(t *testing.T) {
	provider := &fakeProvider{series: seriesFromCloses("EURUSD", trendingCloses(60, 1.1000, 0.0005))}
	analyzer := newTestAnalyzer("EURUSD", provider)

	result := analyzer.AnalyzeMarket(context.Background(), 5)
	require.False(t, result.Failed())

	series, err := analyzer.GetMarketData(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, 15, series.Len())
	assert.Equal(t, 1, provider.fetchCount(), "GetMarketData must reuse the cycle's series")
}

func TestAnalyzerLanguage(t *testing.T) {
	analyzer := newTestAnalyzer("EURUSD", &fakeProvider{})

	assert.Equal(t, "tg", analyzer.Language())
	analyzer.SetLanguage("ru")
	assert.Equal(t, "ru", analyzer.Language())
	assert.Equal(t, "EURUSD", analyzer.Symbol())
}

func TestAnalyzeMarketDefaultTimeframes(t *testing.T) {
	cfg := config.DefaultAnalysisConfig()
	provider := &fakeProvider{series: seriesFromCloses("EURUSD", trendingCloses(80, 1.1000, 0.0005))}
	analyzer := NewMarketAnalyzer("EURUSD", provider, cfg, DefaultRetryPolicy(), testLogger())

	result := analyzer.AnalyzeMarket(context.Background())

	require.False(t, result.Failed())
	assert.Len(t, result.Timeframes, len(cfg.Timeframes))
	for _, tf := range cfg.Timeframes {
		assert.Contains(t, result.Timeframes, tf)
	}
}
