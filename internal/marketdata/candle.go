package marketdata

import (
	"context"
	"time"
)

// Candle is one OHLCV bar. Series are ordered chronologically, oldest
// first, which is what the indicator routines expect.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Source provides historical candles for a symbol on a given market.
type Source interface {
	// Candles returns up to limit daily candles ending at asOf.
	Candles(ctx context.Context, symbol, market string, asOf time.Time, limit int) ([]Candle, error)
}

// Closes extracts the close prices from a candle series.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Highs extracts the high prices from a candle series.
func Highs(candles []Candle) []float64 {
	highs := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
	}
	return highs
}

// Lows extracts the low prices from a candle series.
func Lows(candles []Candle) []float64 {
	lows := make([]float64, len(candles))
	for i, c := range candles {
		lows[i] = c.Low
	}
	return lows
}

// Volumes extracts the volumes from a candle series.
func Volumes(candles []Candle) []float64 {
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}
	return volumes
}
