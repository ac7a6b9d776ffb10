// Package walkforward evaluates a pipeline configuration over rolling
// train/test folds and aggregates the out-of-sample results.
package walkforward

import (
	"errors"
	"fmt"
)

var (
	ErrBadFoldShape = errors.New("walkforward: train, test and step must be positive")
	ErrBadGap       = errors.New("walkforward: gap must be non-negative")
	ErrTestOverlap  = errors.New("walkforward: step smaller than test window would overlap test ranges")
)

// SplitConfig describes the rolling fold geometry in bar counts. Step moves
// the fold origin forward; Gap leaves bars between the train and test ranges
// so lookahead-sensitive features cannot leak across the boundary.
type SplitConfig struct {
	TrainBars int `yaml:"train_bars"`
	TestBars  int `yaml:"test_bars"`
	StepBars  int `yaml:"step_bars"`
	GapBars   int `yaml:"gap_bars"`
}

// DefaultSplitConfig rolls a one-week test window over a one-month train
// window of minute bars, stepping by the test width so test ranges tile.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		TrainBars: 7800, // ~20 RTH days of minute bars
		TestBars:  1950, // ~5 RTH days
		StepBars:  1950,
		GapBars:   0,
	}
}

// Fold is one train/test pair expressed as half-open bar index ranges into
// the source series: [TrainStart, TrainEnd) and [TestStart, TestEnd).
type Fold struct {
	Index      int
	TrainStart int
	TrainEnd   int
	TestStart  int
	TestEnd    int
}

// Splitter computes folds on demand. It holds no position state, so any
// number of iterations, restarts, or concurrent readers are fine.
type Splitter struct {
	cfg SplitConfig
}

// NewSplitter validates the fold geometry.
func NewSplitter(cfg SplitConfig) (*Splitter, error) {
	if cfg.TrainBars <= 0 || cfg.TestBars <= 0 || cfg.StepBars <= 0 {
		return nil, fmt.Errorf("%w: train=%d test=%d step=%d", ErrBadFoldShape, cfg.TrainBars, cfg.TestBars, cfg.StepBars)
	}
	if cfg.GapBars < 0 {
		return nil, fmt.Errorf("%w: gap=%d", ErrBadGap, cfg.GapBars)
	}
	// Consecutive test starts are StepBars apart, so out-of-sample ranges
	// stay disjoint only when the step covers the test width.
	if cfg.StepBars < cfg.TestBars {
		return nil, fmt.Errorf("%w: step=%d test=%d", ErrTestOverlap, cfg.StepBars, cfg.TestBars)
	}
	return &Splitter{cfg: cfg}, nil
}

// Count returns how many complete folds fit in n bars. A fold whose test
// range would run past the data is dropped, never truncated.
func (s *Splitter) Count(n int) int {
	count := 0
	for i := 0; ; i++ {
		if _, ok := s.At(i, n); !ok {
			return count
		}
		count++
	}
}

// At computes fold i against n bars. ok is false once the fold no longer
// fits, which terminates iteration.
func (s *Splitter) At(i, n int) (Fold, bool) {
	if i < 0 {
		return Fold{}, false
	}
	trainStart := i * s.cfg.StepBars
	trainEnd := trainStart + s.cfg.TrainBars
	testStart := trainEnd + s.cfg.GapBars
	testEnd := testStart + s.cfg.TestBars
	if testEnd > n {
		return Fold{}, false
	}
	return Fold{
		Index:      i,
		TrainStart: trainStart,
		TrainEnd:   trainEnd,
		TestStart:  testStart,
		TestEnd:    testEnd,
	}, true
}

// Iter returns a fresh iterator over the folds for n bars. Each call starts
// from fold zero, so a consumer can restart simply by asking again.
func (s *Splitter) Iter(n int) *Iterator {
	return &Iterator{splitter: s, n: n}
}

// Iterator walks folds in order without precomputing them.
type Iterator struct {
	splitter *Splitter
	n        int
	next     int
}

// Next returns the next fold, or ok=false when folds are exhausted.
func (it *Iterator) Next() (Fold, bool) {
	f, ok := it.splitter.At(it.next, it.n)
	if ok {
		it.next++
	}
	return f, ok
}

// Reset rewinds the iterator to fold zero.
func (it *Iterator) Reset() { it.next = 0 }
