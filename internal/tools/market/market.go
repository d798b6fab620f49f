package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"manbo/internal/marketdata"
	"manbo/internal/tools"
	"manbo/internal/tools/indicators"
	"manbo/pkg/errors"
	"manbo/pkg/logger"
)

// NewMarketDataTool builds the tool that gives the market analyst OHLCV
// history plus a technical indicator summary.
func NewMarketDataTool(source marketdata.Source) tools.Tool {
	log := logger.Get().With("tool", "get_market_data")

	schema := tools.ObjectSchema(map[string]interface{}{
		"symbol":   tools.StringProperty("Ticker symbol to fetch, e.g. AAPL"),
		"market":   tools.StringProperty("Market of the symbol, e.g. US"),
		"date":     tools.StringProperty("As-of date in YYYY-MM-DD format"),
		"lookback": tools.IntProperty("Number of daily candles to analyze (default 90)"),
	}, []string{"symbol"})

	return tools.New(
		"get_market_data",
		"Fetch recent daily price history and a technical indicator summary (RSI, MACD, SMA, KDJ) for a symbol",
		schema,
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			symbol, market, asOf, err := parseCommonArgs(args)
			if err != nil {
				return "", err
			}

			lookback := intArg(args, "lookback", 90)
			if lookback < indicatorMinimum {
				lookback = indicatorMinimum
			}

			candles, err := source.Candles(ctx, symbol, market, asOf, lookback)
			if err != nil {
				return "", errors.Wrapf(err, "fetch candles for %s", symbol)
			}

			summary, err := indicators.Summarize(candles)
			if err != nil {
				return "", errors.Wrapf(err, "summarize %s", symbol)
			}

			log.Debugf("market data ready for %s (%d candles)", symbol, len(candles))
			return formatReport(symbol, candles, summary), nil
		},
	)
}

const indicatorMinimum = 60

func formatReport(symbol string, candles []marketdata.Candle, summary *indicators.TechnicalSummary) string {
	var b strings.Builder

	first := candles[0]
	last := candles[len(candles)-1]
	change := (last.Close - first.Close) / first.Close * 100

	fmt.Fprintf(&b, "## Market data for %s\n\n", strings.ToUpper(symbol))
	fmt.Fprintf(&b, "Period: %s to %s (%d trading days)\n",
		first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"), len(candles))
	fmt.Fprintf(&b, "Close moved from %s to %s (%+.2f%%)\n",
		humanize.CommafWithDigits(first.Close, 2),
		humanize.CommafWithDigits(last.Close, 2), change)
	fmt.Fprintf(&b, "Latest volume: %s\n\n", humanize.Comma(int64(last.Volume)))

	b.WriteString("### Technical indicators\n\n")
	b.WriteString(summary.Describe())

	return b.String()
}

func parseCommonArgs(args map[string]interface{}) (symbol, market string, asOf time.Time, err error) {
	symbol, _ = args["symbol"].(string)
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", "", time.Time{}, errors.Wrap(errors.ErrInvalidInput, "symbol argument is required")
	}

	market, _ = args["market"].(string)
	if market == "" {
		market = "US"
	}

	if raw, ok := args["date"].(string); ok && raw != "" {
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return "", "", time.Time{}, errors.Wrapf(errors.ErrInvalidInput, "bad date %q", raw)
		}
	}

	return symbol, market, asOf, nil
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
