package analysis

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"github.com/tradepulse/tradepulse-go/internal/config"
	"github.com/tradepulse/tradepulse-go/internal/marketdata"
	"github.com/tradepulse/tradepulse-go/internal/models"
)

// IndicatorEngine is the pure transformation PriceSeries -> IndicatorSnapshot.
// Given the same series window and the same parameter set the output is
// bit-for-bit reproducible; there is no randomness and no hidden state.
type IndicatorEngine struct {
	cfg config.AnalysisConfig
}

// NewIndicatorEngine creates an engine for one parameter set.
func NewIndicatorEngine(cfg config.AnalysisConfig) *IndicatorEngine {
	return &IndicatorEngine{cfg: cfg}
}

// Compute derives all indicators from the series window. changeWindowBars
// controls how far back the price-change percentage looks; it is the
// timeframe length in bars for the caller's one-minute resolution.
//
// A window shorter than the largest indicator period fails with
// *marketdata.InsufficientDataError and must not abort sibling timeframes.
func (e *IndicatorEngine) Compute(series *models.PriceSeries, changeWindowBars int) (models.IndicatorSnapshot, error) {
	if err := series.Validate(); err != nil {
		return models.IndicatorSnapshot{}, err
	}

	closes := series.Closes()
	required := e.cfg.MinBars()
	if len(closes) < required {
		return models.IndicatorSnapshot{}, &marketdata.InsufficientDataError{
			Required: required,
			Got:      len(closes),
		}
	}

	macdLine, macdSignal := e.macd(closes)

	return models.IndicatorSnapshot{
		RSI:            e.rsi(closes),
		MACD:           macdLine,
		MACDSignal:     macdSignal,
		BBPosition:     e.bollingerPosition(closes),
		ShortMA:        lastSMA(closes, e.cfg.ShortMAPeriod),
		LongMA:         lastSMA(closes, e.cfg.LongMAPeriod),
		PriceChangePct: priceChangePct(closes, changeWindowBars),
	}, nil
}

// rsi computes the Wilder-smoothed relative strength index: a simple
// average of the first period's gains and losses seeds the recursion,
// later bars are smoothed with factor (period-1)/period. A zero average
// loss yields exactly 100 rather than a division by zero.
func (e *IndicatorEngine) rsi(closes []float64) float64 {
	period := e.cfg.RSIPeriod

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// macd returns the latest MACD line (fast EMA minus slow EMA) and its
// signal line (EMA of the MACD line).
func (e *IndicatorEngine) macd(closes []float64) (line, signal float64) {
	fast := emaSeries(closes, e.cfg.MACDFastPeriod)
	slow := emaSeries(closes, e.cfg.MACDSlowPeriod)

	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fast[i] - slow[i]
	}

	signalLine := emaSeries(macdLine, e.cfg.MACDSignalPeriod)
	return macdLine[len(macdLine)-1], signalLine[len(signalLine)-1]
}

// bollingerPosition classifies the latest close against middle +/- k*stddev.
// Strict comparisons keep the zero-variance case (all bands collapsed onto
// the close) classified as normal.
func (e *IndicatorEngine) bollingerPosition(closes []float64) models.BBPosition {
	period := e.cfg.BollingerPeriod
	window := closes[len(closes)-period:]

	middle := lastSMA(closes, period)

	var variance float64
	for _, v := range window {
		diff := v - middle
		variance += diff * diff
	}
	variance /= float64(period)
	dev := math.Sqrt(variance) * e.cfg.BollingerStdDev

	last := closes[len(closes)-1]
	switch {
	case last < middle-dev:
		return models.BBOversold
	case last > middle+dev:
		return models.BBOverbought
	default:
		return models.BBNormal
	}
}

// emaSeries computes an exponential moving average over the full slice,
// seeded with the first value: EMA_t = v_t*k + EMA_{t-1}*(1-k), k = 2/(p+1).
func emaSeries(values []float64, period int) []float64 {
	k := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

// lastSMA returns the most recent simple moving average value.
func lastSMA(values []float64, period int) float64 {
	sma := trend.NewSmaWithPeriod[float64](period)
	out := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
	return out[len(out)-1]
}

// priceChangePct is the percent move of the close over the trailing window.
func priceChangePct(closes []float64, windowBars int) float64 {
	if windowBars <= 0 || windowBars >= len(closes) {
		windowBars = len(closes) - 1
	}
	base := closes[len(closes)-1-windowBars]
	if base == 0 {
		return 0
	}
	return (closes[len(closes)-1] - base) / base * 100.0
}
