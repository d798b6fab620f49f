package marketdata

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"manbo/pkg/errors"
	"manbo/pkg/logger"
)

const stooqBaseURL = "https://stooq.com/q/d/l/"

// StooqSource fetches daily candles from the stooq.com CSV endpoint. It
// needs no API key, which makes it a reasonable default data source.
type StooqSource struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewStooqSource creates a stooq-backed candle source.
func NewStooqSource(timeout time.Duration) *StooqSource {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &StooqSource{
		baseURL: stooqBaseURL,
		client:  &http.Client{Timeout: timeout},
		log:     logger.Get().With("component", "stooq_source"),
	}
}

// Candles fetches daily candles ending at asOf, oldest first.
func (s *StooqSource) Candles(ctx context.Context, symbol, market string, asOf time.Time, limit int) ([]Candle, error) {
	if limit <= 0 {
		limit = 90
	}

	query := url.Values{}
	query.Set("s", stooqSymbol(symbol, market))
	query.Set("i", "d")

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create stooq request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send stooq request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrExternal, "stooq returned status %d", resp.StatusCode)
	}

	candles, err := parseStooqCSV(resp.Body, asOf)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no candles for %s", symbol)
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	s.log.Debugf("fetched %d candles for %s", len(candles), symbol)
	return candles, nil
}

// stooqSymbol maps a symbol + market to stooq's ticker notation
// (e.g. AAPL / US -> aapl.us).
func stooqSymbol(symbol, market string) string {
	sym := strings.ToLower(strings.TrimSpace(symbol))
	switch strings.ToUpper(strings.TrimSpace(market)) {
	case "US":
		return sym + ".us"
	case "HK":
		return sym + ".hk"
	case "JP":
		return sym + ".jp"
	case "UK":
		return sym + ".uk"
	default:
		return sym
	}
}

func parseStooqCSV(r io.Reader, asOf time.Time) ([]Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse stooq CSV")
	}
	if len(records) < 2 {
		return nil, nil
	}

	// Header: Date,Open,High,Low,Close,Volume
	candles := make([]Candle, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 5 {
			continue
		}

		date, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			continue
		}
		if !asOf.IsZero() && date.After(asOf) {
			continue
		}

		candle := Candle{Date: date}
		if candle.Open, err = strconv.ParseFloat(record[1], 64); err != nil {
			continue
		}
		if candle.High, err = strconv.ParseFloat(record[2], 64); err != nil {
			continue
		}
		if candle.Low, err = strconv.ParseFloat(record[3], 64); err != nil {
			continue
		}
		if candle.Close, err = strconv.ParseFloat(record[4], 64); err != nil {
			continue
		}
		if len(record) > 5 {
			// Volume column can be empty for some instruments
			candle.Volume, _ = strconv.ParseFloat(record[5], 64)
		}

		candles = append(candles, candle)
	}

	return candles, nil
}
