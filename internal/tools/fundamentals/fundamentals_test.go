package fundamentals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manbo/internal/marketdata"
	"manbo/pkg/errors"
)

type fakeSource struct {
	candles  []marketdata.Candle
	gotLimit int
}

func (f *fakeSource) Candles(_ context.Context, _, _ string, _ time.Time, limit int) ([]marketdata.Candle, error) {
	f.gotLimit = limit
	return f.candles, nil
}

func yearOfCandles() []marketdata.Candle {
	candles := make([]marketdata.Candle, 252)
	start := time.Date(2025, 8, 29, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := 100 + float64(i)*0.2
		candles[i] = marketdata.Candle{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price + 3,
			Low:    price - 3,
			Close:  price + 1,
			Volume: 1_500_000,
		}
	}
	return candles
}

func TestFundamentalsSnapshot(t *testing.T) {
	source := &fakeSource{candles: yearOfCandles()}
	tool := NewFundamentalsTool(source)

	out, err := tool.Execute(context.Background(), map[string]interface{}{"symbol": "aapl"})
	require.NoError(t, err)

	assert.Equal(t, yearLookback, source.gotLimit)
	assert.Contains(t, out, "Yearly snapshot for AAPL")
	assert.Contains(t, out, "52-week range")
	assert.Contains(t, out, "Average daily volume")
	assert.Contains(t, out, "1,500,000")
}

func TestFundamentalsRequiresSymbol(t *testing.T) {
	tool := NewFundamentalsTool(&fakeSource{})

	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestFundamentalsRejectsShortHistory(t *testing.T) {
	source := &fakeSource{candles: yearOfCandles()[:10]}
	tool := NewFundamentalsTool(source)

	_, err := tool.Execute(context.Background(), map[string]interface{}{"symbol": "AAPL"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
