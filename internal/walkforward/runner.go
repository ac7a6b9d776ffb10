package walkforward

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jcqlabs/futrun/internal/backtest"
	"github.com/jcqlabs/futrun/internal/contracts"
	"github.com/jcqlabs/futrun/internal/market"
	"github.com/jcqlabs/futrun/internal/sim"
)

// FoldResult pairs a fold with its out-of-sample backtest. Exactly one of
// Result and Err is set; a skipped fold carries the context error.
type FoldResult struct {
	Fold   Fold
	Result *backtest.RunResult
	Err    error
}

// Report aggregates every fold's out-of-sample trades into one summary.
// Per-fold results stay available for dispersion analysis.
type Report struct {
	Folds       []FoldResult
	Aggregate   backtest.Summary
	TotalFolds  int
	FailedFolds int
}

// RMultiples concatenates the closed-trade r-multiples of every successful
// fold in fold order, the shape Monte Carlo resampling consumes.
func (r *Report) RMultiples() []float64 {
	var out []float64
	for _, fr := range r.Folds {
		if fr.Result != nil {
			out = append(out, fr.Result.RMultiples()...)
		}
	}
	return out
}

// Runner evaluates one pipeline configuration across folds. Each fold gets a
// fresh engine with its own risk state and broker, so folds are independent
// and safe to run in parallel.
type Runner struct {
	pipeline backtest.PipelineConfig
	splitter *Splitter
	registry *contracts.Registry
	workers  int
}

// NewRunner builds a runner. workers <= 0 means one worker per fold up to
// the fold count.
func NewRunner(pipeline backtest.PipelineConfig, splitter *Splitter, registry *contracts.Registry, workers int) *Runner {
	return &Runner{pipeline: pipeline, splitter: splitter, registry: registry, workers: workers}
}

// Run executes every fold's test range and aggregates the results. The
// context is checked at fold boundaries only: a fold that has started always
// finishes, folds not yet started are recorded with the context error. Run
// returns ctx.Err alongside the partial report when cancelled.
func (r *Runner) Run(ctx context.Context, series *market.Series) (*Report, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	n := series.Len()
	total := r.splitter.Count(n)
	report := &Report{
		Folds:      make([]FoldResult, 0, total),
		TotalFolds: total,
	}
	if total == 0 {
		return report, nil
	}

	workers := r.workers
	if workers <= 0 || workers > total {
		workers = total
	}

	results := make([]FoldResult, total)
	folds := make(chan Fold)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range folds {
				results[f.Index] = r.runFold(f, series)
			}
		}()
	}

	it := r.splitter.Iter(n)
	dispatched := 0
dispatch:
	for {
		f, ok := it.Next()
		if !ok {
			break
		}
		// Cancellation wins even when a worker is ready to take the fold.
		select {
		case <-ctx.Done():
			break dispatch
		default:
		}
		select {
		case folds <- f:
			dispatched++
		case <-ctx.Done():
			break dispatch
		}
	}
	close(folds)
	wg.Wait()

	for i := 0; i < total; i++ {
		fr := results[i]
		if fr.Result == nil && fr.Err == nil {
			// Never dispatched: the context ended first.
			f, _ := r.splitter.At(i, n)
			fr = FoldResult{Fold: f, Err: ctx.Err()}
		}
		if fr.Err != nil {
			report.FailedFolds++
		}
		report.Folds = append(report.Folds, fr)
	}

	var trades []sim.Trade
	for _, fr := range report.Folds {
		if fr.Result != nil {
			trades = append(trades, fr.Result.Trades...)
		}
	}
	report.Aggregate = backtest.Summarize(trades)

	log.Info().
		Int("folds", report.TotalFolds).
		Int("failed", report.FailedFolds).
		Int("oos_trades", report.Aggregate.NumTrades).
		Float64("oos_total_r", report.Aggregate.TotalR).
		Msg("walk-forward completed")

	if dispatched < total {
		return report, ctx.Err()
	}
	return report, nil
}

// runFold backtests one fold's test range on a fresh engine.
func (r *Runner) runFold(f Fold, series *market.Series) FoldResult {
	engine, err := backtest.NewEngineFromConfig(r.pipeline, r.registry)
	if err != nil {
		return FoldResult{Fold: f, Err: err}
	}

	test := series.SliceIdx(f.TestStart, f.TestEnd)
	res, err := engine.Run(test)
	if err != nil {
		log.Error().Err(err).Int("fold", f.Index).Msg("fold backtest failed")
		return FoldResult{Fold: f, Err: err}
	}

	log.Debug().
		Int("fold", f.Index).
		Int("test_start", f.TestStart).
		Int("test_end", f.TestEnd).
		Int("trades", res.Summary.NumTrades).
		Float64("total_r", res.Summary.TotalR).
		Msg("fold completed")
	return FoldResult{Fold: f, Result: res}
}
