package indicators

import (
	"strings"

	"github.com/markcheno/go-talib"

	"manbo/pkg/errors"
)

// KDJ holds the latest stochastic K/D values plus the derived J line.
type KDJ struct {
	K float64
	D float64
	J float64
}

// CalculateKDJ computes the KDJ oscillator from OHLC series using the
// stochastic as a base, with J = 3K - 2D.
func CalculateKDJ(highs, lows, closes []float64, kPeriod, dPeriod int) (*KDJ, error) {
	if kPeriod <= 0 {
		kPeriod = 9
	}
	if dPeriod <= 0 {
		dPeriod = 3
	}
	if len(closes) < kPeriod+dPeriod {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"kdj: need at least %d candles, got %d", kPeriod+dPeriod, len(closes))
	}

	slowK, slowD := talib.Stoch(highs, lows, closes, kPeriod, dPeriod, talib.SMA, dPeriod, talib.SMA)
	if len(slowK) == 0 || len(slowD) == 0 {
		return nil, errors.Wrap(errors.ErrInternal, "kdj: empty stochastic output")
	}

	k := slowK[len(slowK)-1]
	d := slowD[len(slowD)-1]

	return &KDJ{
		K: k,
		D: d,
		J: 3*k - 2*d,
	}, nil
}

// Signal classifies the KDJ reading into a trading signal description.
func (kdj *KDJ) Signal() string {
	k, d, j := kdj.K, kdj.D, kdj.J

	var signals []string

	switch {
	case k > d && k > 50 && d > 50:
		signals = append(signals, "strong bullish")
	case k > d && k < 50:
		signals = append(signals, "weak bullish")
	case k < d && k < 50 && d < 50:
		signals = append(signals, "strong bearish")
	case k < d && k > 50:
		signals = append(signals, "weak bearish")
	}

	if j > 100 {
		signals = append(signals, "J above 100, possibly overheated")
	} else if j < 0 {
		signals = append(signals, "J below 0, possibly washed out")
	}

	if k > 80 && d > 80 {
		signals = append(signals, "overbought zone")
	} else if k < 20 && d < 20 {
		signals = append(signals, "oversold zone")
	}

	if len(signals) == 0 {
		return "neutral"
	}
	return strings.Join(signals, " | ")
}
