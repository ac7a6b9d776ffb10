package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jcqlabs/futrun/internal/backtest"
	"github.com/jcqlabs/futrun/internal/contracts"
	"github.com/jcqlabs/futrun/internal/metrics"
)

func runBacktest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	series, err := loadSeries(ctx, cmd)
	if err != nil {
		return err
	}

	engine, err := backtest.NewEngineFromConfig(cfg.Pipeline, contracts.DefaultRegistry())
	if err != nil {
		return err
	}
	collector := metrics.NewCollector()
	engine.SetObserver(collector)

	result, err := engine.Run(series)
	if err != nil {
		return err
	}
	collector.RunCompleted()

	if save, _ := cmd.Flags().GetBool("save"); save {
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("--save requires persistence.enabled in config")
		}
		defer store.Close()
		if err := store.SaveRun(ctx, result); err != nil {
			return err
		}
		log.Info().Str("run_id", result.ID.String()).Msg("run persisted")
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printSummary(result)
	return nil
}

func printSummary(r *backtest.RunResult) {
	s := r.Summary
	fmt.Printf("Run %s  %s/%s  %s .. %s\n",
		r.ID, r.Symbol, r.Timeframe,
		r.Start.Format("2006-01-02 15:04"), r.End.Format("2006-01-02 15:04"))
	fmt.Printf("  trades: %d  win rate: %.1f%%  total: %+.2fR ($%+.2f)\n",
		s.NumTrades, s.WinRate*100, s.TotalR, s.TotalPnL)
	fmt.Printf("  avg win: %+.2fR  avg loss: %+.2fR  profit factor: %.2f\n",
		s.AvgWinR, s.AvgLossR, s.ProfitFactor)
	fmt.Printf("  max drawdown: %+.2fR  sharpe: %.2f  fees: $%.2f\n",
		s.MaxDrawdownR, s.Sharpe, s.TotalFees)
	fmt.Printf("  skipped bars: %d  open at end: %d\n", r.SkippedBars, r.OpenAtEnd)

	if len(r.Rejections) > 0 {
		fmt.Println("  rejections:")
		for reason, count := range r.Rejections {
			fmt.Printf("    %-28s %d\n", reason, count)
		}
	}
}
