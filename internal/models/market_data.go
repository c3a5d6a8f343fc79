package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is a single OHLCV candle as delivered by the price provider.
// Volume is optional; providers that only quote prices leave it zero.
type Bar struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume,omitempty"`
}

// PriceSeries is an ordered OHLCV history for one symbol. Bars are expected
// in strictly increasing timestamp order; Validate enforces that.
type PriceSeries struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

var (
	ErrEmptySeries      = errors.New("price series contains no bars")
	ErrUnorderedSeries  = errors.New("price series timestamps are not strictly increasing")
	ErrDuplicateBarTime = errors.New("price series contains duplicate timestamps")
)

// Validate checks the series invariants: non-empty, strictly increasing
// timestamps, no duplicates.
func (s *PriceSeries) Validate() error {
	if len(s.Bars) == 0 {
		return ErrEmptySeries
	}
	for i := 1; i < len(s.Bars); i++ {
		switch {
		case s.Bars[i].Timestamp.Equal(s.Bars[i-1].Timestamp):
			return ErrDuplicateBarTime
		case s.Bars[i].Timestamp.Before(s.Bars[i-1].Timestamp):
			return ErrUnorderedSeries
		}
	}
	return nil
}

// Closes extracts close prices as float64 for indicator math.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, bar := range s.Bars {
		closes[i], _ = bar.Close.Float64()
	}
	return closes
}

// LastClose returns the most recent close, or decimal zero for an empty series.
func (s *PriceSeries) LastClose() decimal.Decimal {
	if len(s.Bars) == 0 {
		return decimal.Zero
	}
	return s.Bars[len(s.Bars)-1].Close
}

// Tail returns the trailing n bars as a sub-series sharing the backing array.
func (s *PriceSeries) Tail(n int) *PriceSeries {
	if n >= len(s.Bars) {
		return s
	}
	return &PriceSeries{Symbol: s.Symbol, Bars: s.Bars[len(s.Bars)-n:]}
}

func (s *PriceSeries) Len() int {
	return len(s.Bars)
}
