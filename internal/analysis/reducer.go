package analysis

import (
	"math"

	"github.com/tradepulse/tradepulse-go/internal/config"
	"github.com/tradepulse/tradepulse-go/internal/models"
)

// voteWeight is the contribution of a single agreeing indicator. All four
// votes carry equal weight; the exact constants are policy, not a claim of
// predictive power.
const voteWeight = 1

// indicatorVoteCount is the number of indicators the reducer polls: the
// moving-average trend, RSI, MACD crossover and Bollinger position.
const indicatorVoteCount = 4

// SignalReducer maps one IndicatorSnapshot to a categorical signal with a
// confidence score and expiration suggestion. It is a deterministic scoring
// heuristic: same snapshot, same output.
type SignalReducer struct {
	cfg config.AnalysisConfig
}

// NewSignalReducer creates a reducer for one parameter set.
func NewSignalReducer(cfg config.AnalysisConfig) *SignalReducer {
	return &SignalReducer{cfg: cfg}
}

// Reduce tallies the indicator votes into a SignalResult for the given
// timeframe. The confidence is monotonic in the number of indicators
// agreeing with the majority direction and never drops below the
// configured floor, so a NEUTRAL result stays distinguishable from a
// failed computation (which produces no SignalResult at all).
func (r *SignalReducer) Reduce(timeframeMinutes int, snapshot models.IndicatorSnapshot) models.SignalResult {
	score := 0

	// Trend bias from the moving average pair.
	switch {
	case snapshot.ShortMA > snapshot.LongMA:
		score += voteWeight
	case snapshot.ShortMA < snapshot.LongMA:
		score -= voteWeight
	}

	// Momentum: oversold RSI expects a bounce up, overbought a drop.
	switch {
	case snapshot.RSI < r.cfg.RSIOversold:
		score += voteWeight
	case snapshot.RSI > r.cfg.RSIOverbought:
		score -= voteWeight
	}

	// MACD line above its signal line is a bullish crossover.
	switch {
	case snapshot.MACD > snapshot.MACDSignal:
		score += voteWeight
	case snapshot.MACD < snapshot.MACDSignal:
		score -= voteWeight
	}

	// Volatility extreme from the Bollinger position.
	switch snapshot.BBPosition {
	case models.BBOversold:
		score += voteWeight
	case models.BBOverbought:
		score -= voteWeight
	}

	signal := models.SignalNeutral
	switch {
	case score > 0:
		signal = models.SignalBuy
	case score < 0:
		signal = models.SignalSell
	}

	return models.SignalResult{
		TimeframeMinutes:  timeframeMinutes,
		Signal:            signal,
		Confidence:        r.confidence(signal, snapshot),
		ExpirationMinutes: r.cfg.ExpirationFor(timeframeMinutes),
		Indicators:        snapshot,
		ChangePct:         snapshot.PriceChangePct,
	}
}

// confidence scales the count of indicators agreeing with the final signal
// into the configured floor/ceiling band. A NEUTRAL signal sits at the
// floor; four agreeing indicators reach the ceiling.
func (r *SignalReducer) confidence(signal models.Signal, snapshot models.IndicatorSnapshot) int {
	if signal == models.SignalNeutral {
		return r.cfg.ConfidenceFloor
	}

	bullish := signal == models.SignalBuy
	agree := 0
	if agreesWithTrend(snapshot, bullish) {
		agree++
	}
	if agreesWithRSI(snapshot, bullish, r.cfg) {
		agree++
	}
	if agreesWithMACD(snapshot, bullish) {
		agree++
	}
	if agreesWithBollinger(snapshot, bullish) {
		agree++
	}

	band := float64(r.cfg.ConfidenceCeiling - r.cfg.ConfidenceFloor)
	scaled := band * float64(agree) / float64(indicatorVoteCount)
	return r.cfg.ConfidenceFloor + int(math.Round(scaled))
}

func agreesWithTrend(s models.IndicatorSnapshot, bullish bool) bool {
	if bullish {
		return s.ShortMA > s.LongMA
	}
	return s.ShortMA < s.LongMA
}

func agreesWithRSI(s models.IndicatorSnapshot, bullish bool, cfg config.AnalysisConfig) bool {
	if bullish {
		return s.RSI < cfg.RSIOversold
	}
	return s.RSI > cfg.RSIOverbought
}

func agreesWithMACD(s models.IndicatorSnapshot, bullish bool) bool {
	if bullish {
		return s.MACD > s.MACDSignal
	}
	return s.MACD < s.MACDSignal
}

func agreesWithBollinger(s models.IndicatorSnapshot, bullish bool) bool {
	if bullish {
		return s.BBPosition == models.BBOversold
	}
	return s.BBPosition == models.BBOverbought
}
