package market

import (
	"time"
)

// Series is the in-memory, pre-loaded input for one backtest run: an ordered
// bar sequence for a single symbol/timeframe plus timestamp-aligned feature
// vectors and model outputs. All data is resident before a run starts; the
// per-bar hot loop performs no I/O.
type Series struct {
	Symbol    string
	Timeframe string
	Bars      []Bar

	features map[int64]FeatureVector
	models   map[int64]ModelOutput
}

// NewSeries creates an empty series for a symbol/timeframe.
func NewSeries(symbol, timeframe string) *Series {
	return &Series{
		Symbol:    symbol,
		Timeframe: timeframe,
		features:  make(map[int64]FeatureVector),
		models:    make(map[int64]ModelOutput),
	}
}

// Append adds a bar to the series. Ordering is verified by Validate, not here.
func (s *Series) Append(b Bar) {
	s.Bars = append(s.Bars, b)
}

// SetFeatures attaches a feature vector, keyed by its timestamp.
func (s *Series) SetFeatures(fv FeatureVector) {
	if s.features == nil {
		s.features = make(map[int64]FeatureVector)
	}
	s.features[fv.Timestamp.UnixNano()] = fv
}

// SetModel attaches a model output, keyed by its timestamp.
func (s *Series) SetModel(m ModelOutput) {
	if s.models == nil {
		s.models = make(map[int64]ModelOutput)
	}
	s.models[m.Timestamp.UnixNano()] = m
}

// FeaturesAt returns the feature vector aligned with ts. Absence is not an
// error: the caller skips candidate generation for that bar.
func (s *Series) FeaturesAt(ts time.Time) (FeatureVector, bool) {
	fv, ok := s.features[ts.UnixNano()]
	return fv, ok
}

// ModelAt returns the model output aligned with ts.
func (s *Series) ModelAt(ts time.Time) (ModelOutput, bool) {
	m, ok := s.models[ts.UnixNano()]
	return m, ok
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Bars) }

// Slice returns a shallow copy restricted to bars with from <= ts < to.
// Feature and model maps are shared; bars outside the window are simply not
// visible, which is how walk-forward folds isolate their data.
func (s *Series) Slice(from, to time.Time) *Series {
	out := &Series{
		Symbol:    s.Symbol,
		Timeframe: s.Timeframe,
		features:  s.features,
		models:    s.models,
	}
	for _, b := range s.Bars {
		if b.Timestamp.Before(from) {
			continue
		}
		if !b.Timestamp.Before(to) {
			break
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}

// SliceIdx returns a shallow copy restricted to bars[from:to]. Out-of-range
// bounds are clamped. Feature and model maps are shared, as in Slice.
func (s *Series) SliceIdx(from, to int) *Series {
	if from < 0 {
		from = 0
	}
	if to > len(s.Bars) {
		to = len(s.Bars)
	}
	if from > to {
		from = to
	}
	return &Series{
		Symbol:    s.Symbol,
		Timeframe: s.Timeframe,
		Bars:      s.Bars[from:to],
		features:  s.features,
		models:    s.models,
	}
}

// Range returns the first and last bar timestamps, or zero times when empty.
func (s *Series) Range() (time.Time, time.Time) {
	if len(s.Bars) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.Bars[0].Timestamp, s.Bars[len(s.Bars)-1].Timestamp
}
