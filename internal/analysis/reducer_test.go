package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradepulse/tradepulse-go/internal/config"
	"github.com/tradepulse/tradepulse-go/internal/models"
)

func TestReduceVoteCombinations(t *testing.T) {
	reducer := NewSignalReducer(config.DefaultAnalysisConfig())

	tests := []struct {
		name     string
		snapshot models.IndicatorSnapshot
		want     models.Signal
	}{
		{
			name: "all four bullish",
			snapshot: models.IndicatorSnapshot{
				ShortMA:    1.2,
				LongMA:     1.1,
				RSI:        25,
				MACD:       0.002,
				MACDSignal: 0.001,
				BBPosition: models.BBOversold,
			},
			want: models.SignalBuy,
		},
		{
			name: "all four bearish",
			snapshot: models.IndicatorSnapshot{
				ShortMA:    1.1,
				LongMA:     1.2,
				RSI:        75,
				MACD:       -0.002,
				MACDSignal: -0.001,
				BBPosition: models.BBOverbought,
			},
			want: models.SignalSell,
		},
		{
			name: "balanced votes cancel out",
			snapshot: models.IndicatorSnapshot{
				ShortMA:    1.2,
				LongMA:     1.1,
				RSI:        75,
				MACD:       0.002,
				MACDSignal: 0.001,
				BBPosition: models.BBOverbought,
			},
			want: models.SignalNeutral,
		},
		{
			name: "no indicator votes",
			snapshot: models.IndicatorSnapshot{
				ShortMA:    1.1,
				LongMA:     1.1,
				RSI:        50,
				MACD:       0.001,
				MACDSignal: 0.001,
				BBPosition: models.BBNormal,
			},
			want: models.SignalNeutral,
		},
		{
			name: "single bullish vote decides",
			snapshot: models.IndicatorSnapshot{
				ShortMA:    1.2,
				LongMA:     1.1,
				RSI:        50,
				MACD:       0.001,
				MACDSignal: 0.001,
				BBPosition: models.BBNormal,
			},
			want: models.SignalBuy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := reducer.Reduce(5, tt.snapshot)
			assert.Equal(t, tt.want, result.Signal)
			assert.Equal(t, 5, result.TimeframeMinutes)
			assert.Equal(t, 5, result.ExpirationMinutes)
		})
	}
}

func TestConfidenceMonotonicInAgreement(t *testing.T) {
	cfg := config.DefaultAnalysisConfig()
	reducer := NewSignalReducer(cfg)

	// Snapshots with 1 to 4 indicators agreeing with a BUY call.
	snapshots := []models.IndicatorSnapshot{
		{ShortMA: 1.2, LongMA: 1.1, RSI: 50, BBPosition: models.BBNormal},
		{ShortMA: 1.2, LongMA: 1.1, RSI: 25, BBPosition: models.BBNormal},
		{ShortMA: 1.2, LongMA: 1.1, RSI: 25, MACD: 0.002, MACDSignal: 0.001, BBPosition: models.BBNormal},
		{ShortMA: 1.2, LongMA: 1.1, RSI: 25, MACD: 0.002, MACDSignal: 0.001, BBPosition: models.BBOversold},
	}

	prev := cfg.ConfidenceFloor
	for i, snapshot := range snapshots {
		result := reducer.Reduce(5, snapshot)
		assert.Equal(t, models.SignalBuy, result.Signal)
		assert.Greater(t, result.Confidence, prev, "agreement step %d", i+1)
		assert.LessOrEqual(t, result.Confidence, cfg.ConfidenceCeiling)
		prev = result.Confidence
	}

	// Full agreement saturates the band.
	full := reducer.Reduce(5, snapshots[3])
	assert.Equal(t, cfg.ConfidenceCeiling, full.Confidence)
}

func TestConfidenceNeutralSitsAtFloor(t *testing.T) {
	cfg := config.DefaultAnalysisConfig()
	reducer := NewSignalReducer(cfg)

	result := reducer.Reduce(15, models.IndicatorSnapshot{
		ShortMA:    1.1,
		LongMA:     1.1,
		RSI:        50,
		BBPosition: models.BBNormal,
	})

	assert.Equal(t, models.SignalNeutral, result.Signal)
	assert.Equal(t, cfg.ConfidenceFloor, result.Confidence)
}

func TestReduceExpirationTable(t *testing.T) {
	cfg := config.DefaultAnalysisConfig()
	cfg.ExpirationTable = map[int]int{5: 10, 15: 20}
	reducer := NewSignalReducer(cfg)

	snapshot := models.IndicatorSnapshot{
		ShortMA:    1.2,
		LongMA:     1.1,
		RSI:        50,
		BBPosition: models.BBNormal,
	}

	assert.Equal(t, 10, reducer.Reduce(5, snapshot).ExpirationMinutes)
	assert.Equal(t, 20, reducer.Reduce(15, snapshot).ExpirationMinutes)
	// Unlisted timeframes fall back to themselves.
	assert.Equal(t, 30, reducer.Reduce(30, snapshot).ExpirationMinutes)
}

func TestReduceIsDeterministic(t *testing.T) {
	reducer := NewSignalReducer(config.DefaultAnalysisConfig())
	snapshot := models.IndicatorSnapshot{
		ShortMA:        1.2034,
		LongMA:         1.2021,
		RSI:            61.4,
		MACD:           0.00042,
		MACDSignal:     0.00037,
		BBPosition:     models.BBNormal,
		PriceChangePct: 0.31,
	}

	first := reducer.Reduce(5, snapshot)
	second := reducer.Reduce(5, snapshot)
	assert.Equal(t, first, second)
}
