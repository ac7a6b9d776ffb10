package market

import (
	"errors"
	"fmt"
	"math"
)

// Input violations are fatal for the affected run: causality guarantees only
// hold over well-formed, strictly ordered bars, so the engine aborts rather
// than silently skipping.
var (
	ErrEmptySeries  = errors.New("market: empty bar series")
	ErrNonMonotonic = errors.New("market: non-monotonic bar timestamps")
	ErrMalformedBar = errors.New("market: malformed OHLC ordering")
	ErrNonFinite    = errors.New("market: non-finite bar value")
)

// Validate checks the series against the input contract: strictly increasing
// timestamps, high >= max(open, close), low <= min(open, close), positive
// finite prices, and non-negative volume.
func (s *Series) Validate() error {
	if len(s.Bars) == 0 {
		return fmt.Errorf("%w: %s/%s", ErrEmptySeries, s.Symbol, s.Timeframe)
	}
	for i, b := range s.Bars {
		if err := validateBar(b); err != nil {
			return fmt.Errorf("%s/%s bar %d (%s): %w",
				s.Symbol, s.Timeframe, i, b.Timestamp.Format("2006-01-02T15:04:05Z07:00"), err)
		}
		if i > 0 && !b.Timestamp.After(s.Bars[i-1].Timestamp) {
			return fmt.Errorf("%s/%s bar %d (%s): %w",
				s.Symbol, s.Timeframe, i, b.Timestamp.Format("2006-01-02T15:04:05Z07:00"), ErrNonMonotonic)
		}
	}
	return nil
}

// ValidateBar checks a single bar against the same contract Validate applies
// per element. Streaming consumers use it before a bar joins any series.
func ValidateBar(b Bar) error { return validateBar(b) }

func validateBar(b Bar) error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFinite
		}
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("%w: non-positive price", ErrNonFinite)
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: negative volume", ErrMalformedBar)
	}
	if b.High < math.Max(b.Open, b.Close) {
		return fmt.Errorf("%w: high %.4f < max(open, close)", ErrMalformedBar, b.High)
	}
	if b.Low > math.Min(b.Open, b.Close) {
		return fmt.Errorf("%w: low %.4f > min(open, close)", ErrMalformedBar, b.Low)
	}
	return nil
}
