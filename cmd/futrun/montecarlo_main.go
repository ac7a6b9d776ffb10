package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jcqlabs/futrun/internal/backtest"
	"github.com/jcqlabs/futrun/internal/contracts"
	"github.com/jcqlabs/futrun/internal/montecarlo"
)

func runMonteCarlo(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, err := resolveLedger(ctx, cmd)
	if err != nil {
		return err
	}

	mcCfg := cfg.MonteCarlo
	if paths, _ := cmd.Flags().GetInt("paths"); paths > 0 {
		mcCfg.Paths = paths
	}
	if seed, _ := cmd.Flags().GetInt64("seed"); seed != 0 {
		mcCfg.Seed = seed
	}

	report, err := montecarlo.Run(ctx, mcCfg, ledger)
	if err != nil {
		return err
	}

	fmt.Printf("Monte Carlo: %d paths, horizon %d, seed %d (ledger of %d trades)\n",
		report.Paths, report.Horizon, report.Seed, len(ledger))
	fmt.Printf("  terminal R     p05 %+7.2f   p50 %+7.2f   p95 %+7.2f   mean %+.2f\n",
		report.Terminal.P05, report.Terminal.P50, report.Terminal.P95, report.MeanTerminal)
	fmt.Printf("  max drawdown R p05 %+7.2f   p50 %+7.2f   p95 %+7.2f\n",
		report.MaxDrawdown.P05, report.MaxDrawdown.P50, report.MaxDrawdown.P95)
	fmt.Printf("  ruin probability (floor %.1fR): %.2f%%\n",
		mcCfg.RuinFloorR, report.RuinProb*100)

	if save, _ := cmd.Flags().GetBool("save"); save {
		rawID, _ := cmd.Flags().GetString("run-id")
		if rawID == "" {
			return fmt.Errorf("--save requires --run-id")
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return fmt.Errorf("bad run id %q: %w", rawID, err)
		}
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("--save requires persistence.enabled in config")
		}
		defer store.Close()
		if err := store.SaveMonteCarlo(ctx, id, report); err != nil {
			return err
		}
		fmt.Printf("report saved for run %s\n", id)
	}
	return nil
}

// resolveLedger pulls r-multiples from a stored run when --run-id is given,
// otherwise runs a fresh backtest over the configured data.
func resolveLedger(ctx context.Context, cmd *cobra.Command) ([]float64, error) {
	if rawID, _ := cmd.Flags().GetString("run-id"); rawID != "" {
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("bad run id %q: %w", rawID, err)
		}
		store, err := openStore(ctx)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, fmt.Errorf("--run-id requires persistence.enabled in config")
		}
		defer store.Close()

		run, err := store.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		return run.RMultiples(), nil
	}

	series, err := loadSeries(ctx, cmd)
	if err != nil {
		return nil, err
	}
	engine, err := backtest.NewEngineFromConfig(cfg.Pipeline, contracts.DefaultRegistry())
	if err != nil {
		return nil, err
	}
	result, err := engine.Run(series)
	if err != nil {
		return nil, err
	}
	return result.RMultiples(), nil
}
