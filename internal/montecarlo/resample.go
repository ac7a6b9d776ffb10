// Package montecarlo bootstraps equity paths from a closed-trade r-multiple
// ledger to estimate outcome dispersion and ruin risk.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrBadPaths   = errors.New("montecarlo: paths must be positive")
	ErrNonFiniteR = errors.New("montecarlo: ledger contains a non-finite r-multiple")
)

// Config parameterizes one resampling experiment.
type Config struct {
	Paths      int     `yaml:"paths"`
	Horizon    int     `yaml:"horizon"`      // trades per path; 0 means the ledger length
	Seed       int64   `yaml:"seed"`         // base seed; path i draws from Seed+i
	RuinFloorR float64 `yaml:"ruin_floor_r"` // running equity at or below this is ruin
	Workers    int     `yaml:"workers"`      // 0 means one worker per path, capped at Paths
}

// DefaultConfig runs a thousand full-length paths against a -5R floor.
func DefaultConfig() Config {
	return Config{Paths: 1000, Seed: 42, RuinFloorR: -5}
}

// PathStat is the outcome of one resampled path.
type PathStat struct {
	Terminal    float64 // cumulative R at the end of the path
	MaxDrawdown float64 // most negative excursion from the running peak
	Ruined      bool    // running equity touched the ruin floor
}

// Band holds the 5th, 50th and 95th percentiles of one path statistic.
type Band struct {
	P05 float64 `json:"p05"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
}

// Report is the resampling output. Identical config and ledger reproduce it
// exactly: path i always draws from its own generator seeded with Seed+i, so
// neither worker count nor scheduling order changes a single number.
type Report struct {
	Paths        int     `json:"paths"`
	Horizon      int     `json:"horizon"`
	Seed         int64   `json:"seed"`
	Terminal     Band    `json:"terminal_r"`
	MaxDrawdown  Band    `json:"max_drawdown_r"`
	RuinProb     float64 `json:"ruin_prob"`
	MeanTerminal float64 `json:"mean_terminal_r"`
}

// Run resamples the ledger with replacement. The context is honored at path
// boundaries: a cancelled run returns ctx.Err and no partial report. An empty
// ledger is a degenerate strategy, not a caller mistake: it yields a
// zero-valued report with no paths drawn.
func Run(ctx context.Context, cfg Config, ledger []float64) (*Report, error) {
	if cfg.Paths <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadPaths, cfg.Paths)
	}
	for _, r := range ledger {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, ErrNonFiniteR
		}
	}
	if len(ledger) == 0 {
		log.Warn().Msg("ledger has no trades, reporting a degenerate distribution")
		return &Report{Paths: cfg.Paths, Seed: cfg.Seed}, nil
	}

	horizon := cfg.Horizon
	if horizon <= 0 {
		horizon = len(ledger)
	}

	stats := make([]PathStat, cfg.Paths)
	workers := cfg.Workers
	if workers <= 0 || workers > cfg.Paths {
		workers = cfg.Paths
	}

	paths := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range paths {
				// Each path owns its generator, so slots never contend and
				// the draw sequence is independent of scheduling.
				rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
				stats[i] = walk(rng, ledger, horizon, cfg.RuinFloorR)
			}
		}()
	}

	cancelled := false
dispatch:
	for i := 0; i < cfg.Paths; i++ {
		select {
		case <-ctx.Done():
			cancelled = true
			break dispatch
		default:
		}
		select {
		case paths <- i:
		case <-ctx.Done():
			cancelled = true
			break dispatch
		}
	}
	close(paths)
	wg.Wait()

	if cancelled {
		return nil, ctx.Err()
	}

	report := summarize(cfg, horizon, stats)
	log.Info().
		Int("paths", report.Paths).
		Int("horizon", report.Horizon).
		Int64("seed", report.Seed).
		Float64("terminal_p50", report.Terminal.P50).
		Float64("ruin_prob", report.RuinProb).
		Msg("monte carlo completed")
	return report, nil
}

// walk draws one bootstrap path and tracks its running equity.
func walk(rng *rand.Rand, ledger []float64, horizon int, floor float64) PathStat {
	var s PathStat
	equity, peak := 0.0, 0.0
	for j := 0; j < horizon; j++ {
		equity += ledger[rng.Intn(len(ledger))]
		if equity > peak {
			peak = equity
		}
		if dd := equity - peak; dd < s.MaxDrawdown {
			s.MaxDrawdown = dd
		}
		if equity <= floor {
			s.Ruined = true
		}
	}
	s.Terminal = equity
	return s
}

func summarize(cfg Config, horizon int, stats []PathStat) *Report {
	terminals := make([]float64, len(stats))
	drawdowns := make([]float64, len(stats))
	ruined := 0
	sum := 0.0
	for i, s := range stats {
		terminals[i] = s.Terminal
		drawdowns[i] = s.MaxDrawdown
		sum += s.Terminal
		if s.Ruined {
			ruined++
		}
	}
	sort.Float64s(terminals)
	sort.Float64s(drawdowns)

	return &Report{
		Paths:        cfg.Paths,
		Horizon:      horizon,
		Seed:         cfg.Seed,
		Terminal:     band(terminals),
		MaxDrawdown:  band(drawdowns),
		RuinProb:     float64(ruined) / float64(len(stats)),
		MeanTerminal: sum / float64(len(stats)),
	}
}

func band(sorted []float64) Band {
	return Band{
		P05: percentile(sorted, 0.05),
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
	}
}

// percentile interpolates linearly between order statistics of a sorted
// slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
