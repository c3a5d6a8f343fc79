package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is the categorical outcome of one timeframe evaluation.
type Signal string

const (
	SignalBuy     Signal = "BUY"
	SignalSell    Signal = "SELL"
	SignalNeutral Signal = "NEUTRAL"
)

// BBPosition classifies the latest close against the Bollinger Bands.
type BBPosition string

const (
	BBOversold   BBPosition = "oversold"
	BBOverbought BBPosition = "overbought"
	BBNormal     BBPosition = "normal"
)

// IndicatorSnapshot is an immutable record of indicator values for one
// (symbol, timeframe, evaluation time) triple.
type IndicatorSnapshot struct {
	RSI            float64    `json:"rsi"`
	MACD           float64    `json:"macd"`
	MACDSignal     float64    `json:"macd_signal"`
	BBPosition     BBPosition `json:"bb_position"`
	ShortMA        float64    `json:"short_ma"`
	LongMA         float64    `json:"long_ma"`
	PriceChangePct float64    `json:"price_change_pct"`
}

// SignalResult is the reduced signal for one timeframe.
type SignalResult struct {
	TimeframeMinutes  int               `json:"timeframe_minutes"`
	Signal            Signal            `json:"signal"`
	Confidence        int               `json:"confidence"`
	ExpirationMinutes int               `json:"expiration_minutes"`
	Indicators        IndicatorSnapshot `json:"indicators"`
	ChangePct         float64           `json:"change_pct"`
}

// ErrorKind classifies a whole-request analysis failure.
type ErrorKind string

const (
	ErrorKindNoData       ErrorKind = "no_data"
	ErrorKindProvider     ErrorKind = "provider_error"
	ErrorKindCancelled    ErrorKind = "cancelled"
	ErrorKindInsufficient ErrorKind = "insufficient_data"
)

// TimeframeOutcome holds either a computed signal or the per-timeframe
// failure that prevented it. Exactly one of Result and Error is set.
type TimeframeOutcome struct {
	Result *SignalResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// AnalysisResult is the aggregate of one analysis call. A set Error means
// the fetch itself failed and Timeframes is empty; per-timeframe failures
// live inside Timeframes and never abort the sibling entries.
//
// EvaluatedAt is the timestamp of the newest bar, not wall-clock time, so
// two analyses over the same series produce identical results.
type AnalysisResult struct {
	Symbol       string                   `json:"symbol"`
	CurrentPrice decimal.Decimal          `json:"current_price"`
	EvaluatedAt  time.Time                `json:"evaluated_at"`
	Timeframes   map[int]TimeframeOutcome `json:"timeframes"`
	Error        string                   `json:"error,omitempty"`
	ErrorKind    ErrorKind                `json:"error_kind,omitempty"`
}

// Failed reports whether the whole analysis failed at the fetch boundary.
func (r *AnalysisResult) Failed() bool {
	return r.Error != ""
}
