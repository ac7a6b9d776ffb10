package montecarlo

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleLedger = []float64{2, -1, 1, -1, 3}

func TestRun_Reproducible(t *testing.T) {
	cfg := Config{Paths: 1000, Seed: 42, RuinFloorR: -5}

	a, err := Run(context.Background(), cfg, sampleLedger)
	require.NoError(t, err)
	b, err := Run(context.Background(), cfg, sampleLedger)
	require.NoError(t, err)

	assert.Equal(t, a, b, "same seed and ledger must reproduce every number")
	assert.Equal(t, 1000, a.Paths)
	assert.Equal(t, len(sampleLedger), a.Horizon)
}

func TestRun_WorkerCountDoesNotChangeResults(t *testing.T) {
	base := Config{Paths: 500, Seed: 42, RuinFloorR: -5}

	serial := base
	serial.Workers = 1
	parallel := base
	parallel.Workers = 16

	a, err := Run(context.Background(), serial, sampleLedger)
	require.NoError(t, err)
	b, err := Run(context.Background(), parallel, sampleLedger)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRun_SeedChangesDraws(t *testing.T) {
	a, err := Run(context.Background(), Config{Paths: 1000, Seed: 42, RuinFloorR: -5}, sampleLedger)
	require.NoError(t, err)
	b, err := Run(context.Background(), Config{Paths: 1000, Seed: 43, RuinFloorR: -5}, sampleLedger)
	require.NoError(t, err)

	// Different base seeds draw different paths; the means will not agree to
	// full precision on a thousand paths.
	assert.NotEqual(t, a.MeanTerminal, b.MeanTerminal)
}

func TestRun_BandsAreOrderedAndPlausible(t *testing.T) {
	rep, err := Run(context.Background(), Config{Paths: 2000, Seed: 7, RuinFloorR: -5}, sampleLedger)
	require.NoError(t, err)

	assert.LessOrEqual(t, rep.Terminal.P05, rep.Terminal.P50)
	assert.LessOrEqual(t, rep.Terminal.P50, rep.Terminal.P95)
	assert.LessOrEqual(t, rep.MaxDrawdown.P05, rep.MaxDrawdown.P50)
	assert.LessOrEqual(t, rep.MaxDrawdown.P50, rep.MaxDrawdown.P95)
	assert.LessOrEqual(t, rep.MaxDrawdown.P95, 0.0)

	// Ledger mean is +0.8R per trade over 5 draws: the center of the terminal
	// distribution sits near +4R.
	assert.InDelta(t, 4.0, rep.MeanTerminal, 1.0)
	assert.GreaterOrEqual(t, rep.RuinProb, 0.0)
	assert.LessOrEqual(t, rep.RuinProb, 1.0)

	// Five draws from this ledger cannot lose more than 5R, so a -5R floor
	// is reachable only by drawing the -1 five times in a row.
	assert.Less(t, rep.RuinProb, 0.05)
}

func TestRun_AllWinnersNeverRuin(t *testing.T) {
	rep, err := Run(context.Background(), Config{Paths: 300, Seed: 1, RuinFloorR: -1}, []float64{0.5, 1, 2})
	require.NoError(t, err)
	assert.Zero(t, rep.RuinProb)
	assert.Greater(t, rep.Terminal.P05, 0.0)
	assert.Zero(t, rep.MaxDrawdown.P50)
}

func TestRun_AllLosersAlwaysRuin(t *testing.T) {
	rep, err := Run(context.Background(), Config{Paths: 300, Seed: 1, Horizon: 10, RuinFloorR: -3}, []float64{-1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, rep.RuinProb)
	assert.Equal(t, -10.0, rep.Terminal.P50)
	assert.Equal(t, -10.0, rep.MaxDrawdown.P50)
}

func TestRun_SingleTradeLedger(t *testing.T) {
	rep, err := Run(context.Background(), Config{Paths: 50, Seed: 9, RuinFloorR: -5}, []float64{1.5})
	require.NoError(t, err)
	assert.Equal(t, 1.5, rep.Terminal.P50)
	assert.Equal(t, 1, rep.Horizon)
}

func TestRun_HorizonOverride(t *testing.T) {
	rep, err := Run(context.Background(), Config{Paths: 100, Seed: 3, Horizon: 50, RuinFloorR: -100}, sampleLedger)
	require.NoError(t, err)
	assert.Equal(t, 50, rep.Horizon)
	// 50 draws at +0.8R expected each.
	assert.InDelta(t, 40.0, rep.MeanTerminal, 10.0)
}

func TestRun_EmptyLedgerDegenerateReport(t *testing.T) {
	rep, err := Run(context.Background(), DefaultConfig(), nil)
	require.NoError(t, err)

	// No trades to draw from: the distribution collapses to zero everywhere
	// instead of failing the run.
	assert.Equal(t, 1000, rep.Paths)
	assert.Equal(t, int64(42), rep.Seed)
	assert.Equal(t, 0, rep.Horizon)
	assert.Zero(t, rep.Terminal)
	assert.Zero(t, rep.MaxDrawdown)
	assert.Zero(t, rep.RuinProb)
	assert.Zero(t, rep.MeanTerminal)
}

func TestRun_InputValidation(t *testing.T) {
	_, err := Run(context.Background(), Config{Paths: 0, Seed: 1}, sampleLedger)
	assert.ErrorIs(t, err, ErrBadPaths)

	_, err = Run(context.Background(), DefaultConfig(), []float64{1, math.NaN()})
	assert.ErrorIs(t, err, ErrNonFiniteR)

	_, err = Run(context.Background(), DefaultConfig(), []float64{1, math.Inf(1)})
	assert.ErrorIs(t, err, ErrNonFiniteR)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := Run(ctx, DefaultConfig(), sampleLedger)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rep)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 3.0, percentile(sorted, 0.50))
	assert.Equal(t, 1.0, percentile(sorted, 0.0))
	assert.Equal(t, 5.0, percentile(sorted, 1.0))
	assert.InDelta(t, 1.2, percentile(sorted, 0.05), 1e-12)
	assert.InDelta(t, 4.8, percentile(sorted, 0.95), 1e-12)
}
