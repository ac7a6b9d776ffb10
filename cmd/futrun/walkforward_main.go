package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jcqlabs/futrun/internal/contracts"
	"github.com/jcqlabs/futrun/internal/walkforward"
)

func runWalkforward(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	series, err := loadSeries(ctx, cmd)
	if err != nil {
		return err
	}

	splitter, err := walkforward.NewSplitter(cfg.WalkForward.Split)
	if err != nil {
		return err
	}

	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = cfg.WalkForward.Workers
	}

	runner := walkforward.NewRunner(cfg.Pipeline, splitter, contracts.DefaultRegistry(), workers)
	report, runErr := runner.Run(ctx, series)
	if report == nil {
		return runErr
	}

	fmt.Printf("Walk-forward: %d folds (%d failed), workers: %d\n",
		report.TotalFolds, report.FailedFolds, workers)
	for _, fr := range report.Folds {
		if fr.Err != nil {
			fmt.Printf("  fold %2d  bars [%d,%d)  FAILED: %v\n",
				fr.Fold.Index, fr.Fold.TestStart, fr.Fold.TestEnd, fr.Err)
			continue
		}
		s := fr.Result.Summary
		fmt.Printf("  fold %2d  bars [%d,%d)  trades %3d  %+7.2fR  pf %.2f\n",
			fr.Fold.Index, fr.Fold.TestStart, fr.Fold.TestEnd,
			s.NumTrades, s.TotalR, s.ProfitFactor)
	}

	agg := report.Aggregate
	fmt.Printf("Aggregate out-of-sample: %d trades, %+.2fR, win rate %.1f%%, max drawdown %+.2fR\n",
		agg.NumTrades, agg.TotalR, agg.WinRate*100, agg.MaxDrawdownR)

	if save, _ := cmd.Flags().GetBool("save"); save {
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("--save requires persistence.enabled in config")
		}
		defer store.Close()
		for _, fr := range report.Folds {
			if fr.Result == nil {
				continue
			}
			if err := store.SaveRun(ctx, fr.Result); err != nil {
				return err
			}
		}
		log.Info().Int("folds", report.TotalFolds-report.FailedFolds).Msg("fold runs persisted")
	}
	return runErr
}
