package market

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manbo/internal/marketdata"
	"manbo/pkg/errors"
)

type fakeSource struct {
	candles    []marketdata.Candle
	err        error
	gotSymbol  string
	gotMarket  string
	gotAsOf    time.Time
	gotLimit   int
	timesAsked int
}

func (f *fakeSource) Candles(_ context.Context, symbol, market string, asOf time.Time, limit int) ([]marketdata.Candle, error) {
	f.gotSymbol, f.gotMarket, f.gotAsOf, f.gotLimit = symbol, market, asOf, limit
	f.timesAsked++
	return f.candles, f.err
}

func trendingCandles(n int) []marketdata.Candle {
	candles := make([]marketdata.Candle, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)*0.5 + 3*math.Sin(float64(i)/5)
		candles[i] = marketdata.Candle{
			Date:   start.AddDate(0, 0, i),
			Open:   base - 0.3,
			High:   base + 1,
			Low:    base - 1,
			Close:  base,
			Volume: 2_000_000,
		}
	}
	return candles
}

func TestMarketDataToolReport(t *testing.T) {
	source := &fakeSource{candles: trendingCandles(90)}
	tool := NewMarketDataTool(source)

	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"symbol": "aapl",
		"market": "US",
		"date":   "2026-08-01",
	})
	require.NoError(t, err)

	assert.Equal(t, "aapl", source.gotSymbol)
	assert.Equal(t, "US", source.gotMarket)
	assert.Equal(t, "2026-08-01", source.gotAsOf.Format("2006-01-02"))

	assert.Contains(t, out, "Market data for AAPL")
	assert.Contains(t, out, "Technical indicators")
	assert.Contains(t, out, "RSI(14)")
	assert.Contains(t, out, "KDJ(9,3)")
}

func TestMarketDataToolLookbackFloor(t *testing.T) {
	source := &fakeSource{candles: trendingCandles(90)}
	tool := NewMarketDataTool(source)

	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"symbol":   "AAPL",
		"lookback": float64(10),
	})
	require.NoError(t, err)
	assert.Equal(t, 60, source.gotLimit)
}

func TestMarketDataToolRequiresSymbol(t *testing.T) {
	tool := NewMarketDataTool(&fakeSource{})

	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestMarketDataToolRejectsBadDate(t *testing.T) {
	tool := NewMarketDataTool(&fakeSource{})

	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"symbol": "AAPL",
		"date":   "Aug 1st",
	})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestMarketDataToolPropagatesSourceError(t *testing.T) {
	source := &fakeSource{err: errors.Wrap(errors.ErrExternal, "stooq down")}
	tool := NewMarketDataTool(source)

	_, err := tool.Execute(context.Background(), map[string]interface{}{"symbol": "AAPL"})
	assert.ErrorIs(t, err, errors.ErrExternal)
}
