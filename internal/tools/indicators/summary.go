package indicators

import (
	"fmt"
	"strings"

	"github.com/markcheno/go-talib"

	"manbo/internal/marketdata"
	"manbo/pkg/errors"
)

// TechnicalSummary is the deterministic indicator snapshot consumed by the
// market analyst. All values are taken from the most recent candle.
type TechnicalSummary struct {
	LastClose float64
	RSI       float64
	MACD      float64
	MACDSig   float64
	MACDHist  float64
	SMA20     float64
	SMA50     float64
	KDJ       *KDJ
}

const minCandlesForSummary = 60

// Summarize computes the standard indicator set over a candle series.
// Candles must be chronological, oldest first.
func Summarize(candles []marketdata.Candle) (*TechnicalSummary, error) {
	if len(candles) < minCandlesForSummary {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"need at least %d candles for a technical summary, got %d", minCandlesForSummary, len(candles))
	}

	closes := marketdata.Closes(candles)
	highs := marketdata.Highs(candles)
	lows := marketdata.Lows(candles)

	rsi := talib.Rsi(closes, 14)
	macd, macdSig, macdHist := talib.Macd(closes, 12, 26, 9)
	sma20 := talib.Sma(closes, 20)
	sma50 := talib.Sma(closes, 50)

	kdj, err := CalculateKDJ(highs, lows, closes, 9, 3)
	if err != nil {
		return nil, err
	}

	return &TechnicalSummary{
		LastClose: closes[len(closes)-1],
		RSI:       rsi[len(rsi)-1],
		MACD:      macd[len(macd)-1],
		MACDSig:   macdSig[len(macdSig)-1],
		MACDHist:  macdHist[len(macdHist)-1],
		SMA20:     sma20[len(sma20)-1],
		SMA50:     sma50[len(sma50)-1],
		KDJ:       kdj,
	}, nil
}

// RSISignal classifies an RSI reading.
func RSISignal(rsi float64) string {
	switch {
	case rsi >= 70:
		return "overbought"
	case rsi <= 30:
		return "oversold"
	default:
		return "neutral"
	}
}

// Describe renders the summary as report-ready text.
func (s *TechnicalSummary) Describe() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Last close: %.2f\n", s.LastClose)
	fmt.Fprintf(&b, "RSI(14): %.2f (%s)\n", s.RSI, RSISignal(s.RSI))
	fmt.Fprintf(&b, "MACD(12,26,9): %.4f signal %.4f hist %.4f\n", s.MACD, s.MACDSig, s.MACDHist)

	trend := "below"
	if s.SMA20 > s.SMA50 {
		trend = "above"
	}
	fmt.Fprintf(&b, "SMA20: %.2f %s SMA50: %.2f\n", s.SMA20, trend, s.SMA50)
	fmt.Fprintf(&b, "KDJ(9,3): K=%.2f D=%.2f J=%.2f (%s)\n", s.KDJ.K, s.KDJ.D, s.KDJ.J, s.KDJ.Signal())

	return b.String()
}
