package fundamentals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"manbo/internal/marketdata"
	"manbo/internal/tools"
	"manbo/pkg/errors"
)

// One trading year of daily candles.
const yearLookback = 252

// NewFundamentalsTool builds the tool that gives the fundamentals analyst a
// yearly price structure snapshot: 52-week range, distance from extremes,
// average turnover.
func NewFundamentalsTool(source marketdata.Source) tools.Tool {
	schema := tools.ObjectSchema(map[string]interface{}{
		"symbol": tools.StringProperty("Ticker symbol to fetch, e.g. AAPL"),
		"market": tools.StringProperty("Market of the symbol, e.g. US"),
		"date":   tools.StringProperty("As-of date in YYYY-MM-DD format"),
	}, []string{"symbol"})

	return tools.New(
		"get_fundamentals",
		"Fetch a yearly snapshot of a symbol: 52-week range, position within range, average volume and yearly performance",
		schema,
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			symbol, _ := args["symbol"].(string)
			symbol = strings.TrimSpace(symbol)
			if symbol == "" {
				return "", errors.Wrap(errors.ErrInvalidInput, "symbol argument is required")
			}

			market, _ := args["market"].(string)
			var asOf time.Time
			if raw, ok := args["date"].(string); ok && raw != "" {
				parsed, err := time.Parse("2006-01-02", raw)
				if err != nil {
					return "", errors.Wrapf(errors.ErrInvalidInput, "bad date %q", raw)
				}
				asOf = parsed
			}

			candles, err := source.Candles(ctx, symbol, market, asOf, yearLookback)
			if err != nil {
				return "", errors.Wrapf(err, "fetch yearly candles for %s", symbol)
			}
			if len(candles) < 20 {
				return "", errors.Wrapf(errors.ErrInvalidInput,
					"not enough history for %s: %d candles", symbol, len(candles))
			}

			return formatSnapshot(symbol, candles), nil
		},
	)
}

func formatSnapshot(symbol string, candles []marketdata.Candle) string {
	high52 := candles[0].High
	low52 := candles[0].Low
	var volumeSum float64

	for _, c := range candles {
		if c.High > high52 {
			high52 = c.High
		}
		if c.Low < low52 {
			low52 = c.Low
		}
		volumeSum += c.Volume
	}

	last := candles[len(candles)-1].Close
	first := candles[0].Close
	avgVolume := volumeSum / float64(len(candles))
	yearChange := (last - first) / first * 100

	rangePos := 0.0
	if high52 > low52 {
		rangePos = (last - low52) / (high52 - low52) * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Yearly snapshot for %s\n\n", strings.ToUpper(symbol))
	fmt.Fprintf(&b, "Last close: %s\n", humanize.CommafWithDigits(last, 2))
	fmt.Fprintf(&b, "52-week range: %s - %s (currently at %.1f%% of range)\n",
		humanize.CommafWithDigits(low52, 2), humanize.CommafWithDigits(high52, 2), rangePos)
	fmt.Fprintf(&b, "Performance over period: %+.2f%%\n", yearChange)
	fmt.Fprintf(&b, "Average daily volume: %s\n", humanize.Comma(int64(avgVolume)))

	return b.String()
}
