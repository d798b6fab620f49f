package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manbo/internal/marketdata"
	"manbo/pkg/errors"
)

func syntheticCandles(n int) []marketdata.Candle {
	candles := make([]marketdata.Candle, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		base := 100 + 10*math.Sin(float64(i)/7)
		candles[i] = marketdata.Candle{
			Date:   start.AddDate(0, 0, i),
			Open:   base - 0.5,
			High:   base + 2,
			Low:    base - 2,
			Close:  base + math.Cos(float64(i)/3),
			Volume: 1_000_000,
		}
	}
	return candles
}

func TestSummarize(t *testing.T) {
	summary, err := Summarize(syntheticCandles(90))
	require.NoError(t, err)

	assert.NotZero(t, summary.LastClose)
	assert.False(t, math.IsNaN(summary.RSI))
	assert.GreaterOrEqual(t, summary.RSI, 0.0)
	assert.LessOrEqual(t, summary.RSI, 100.0)
	assert.False(t, math.IsNaN(summary.MACD))
	assert.False(t, math.IsNaN(summary.SMA20))
	assert.False(t, math.IsNaN(summary.SMA50))
	require.NotNil(t, summary.KDJ)
}

func TestSummarizeTooFewCandles(t *testing.T) {
	_, err := Summarize(syntheticCandles(30))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestRSISignal(t *testing.T) {
	assert.Equal(t, "overbought", RSISignal(75))
	assert.Equal(t, "oversold", RSISignal(25))
	assert.Equal(t, "neutral", RSISignal(50))
	assert.Equal(t, "overbought", RSISignal(70))
	assert.Equal(t, "oversold", RSISignal(30))
}

func TestDescribeIncludesAllIndicators(t *testing.T) {
	summary, err := Summarize(syntheticCandles(90))
	require.NoError(t, err)

	text := summary.Describe()
	assert.Contains(t, text, "RSI(14)")
	assert.Contains(t, text, "MACD(12,26,9)")
	assert.Contains(t, text, "SMA20")
	assert.Contains(t, text, "KDJ(9,3)")
}
