package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jcqlabs/futrun/internal/config"
	flog "github.com/jcqlabs/futrun/internal/log"
)

const (
	appName = "futrun"
	version = "v1.2.0"
)

// cfg is loaded once in the persistent pre-run and shared by every command.
var cfg config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Futures decision pipeline: backtest, walk-forward, resampling",
		Version: version,
		Long: `futrun runs a futures trading decision pipeline against historical bars:
candidate generation, expected-value scoring, rule gating, risk sizing and
paper execution. Walk-forward folds and bootstrap resampling quantify how
fragile the results are before anyone trades them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			loaded, err := config.Load(path)
			if err != nil {
				return err
			}
			cfg = loaded

			pretty := cfg.Log.Pretty || term.IsTerminal(int(os.Stderr.Fd()))
			flog.Setup(cfg.Log.Level, pretty)
			return nil
		},
	}
	rootCmd.PersistentFlags().String("config", "config/futrun.yaml", "Path to YAML configuration")

	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run one backtest pass over a bar file",
		Long:  "Loads bars and model outputs, builds features, runs the full decision pipeline once and prints the summary",
		RunE:  runBacktest,
	}
	backtestCmd.Flags().String("bars", "", "Bar CSV path (overrides config)")
	backtestCmd.Flags().String("models", "", "Model output CSV path (overrides config)")
	backtestCmd.Flags().Bool("save", false, "Persist the run result to Postgres")
	backtestCmd.Flags().Bool("json", false, "Print the full result as JSON instead of a summary")

	walkforwardCmd := &cobra.Command{
		Use:   "walkforward",
		Short: "Evaluate the pipeline over rolling train/test folds",
		Long:  "Splits the series into rolling folds, backtests every out-of-sample range in parallel and aggregates",
		RunE:  runWalkforward,
	}
	walkforwardCmd.Flags().String("bars", "", "Bar CSV path (overrides config)")
	walkforwardCmd.Flags().String("models", "", "Model output CSV path (overrides config)")
	walkforwardCmd.Flags().Int("workers", 0, "Parallel fold workers (0 = config value)")
	walkforwardCmd.Flags().Bool("save", false, "Persist each fold's run result to Postgres")

	montecarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "Bootstrap-resample a closed-trade ledger",
		Long:  "Resamples r-multiples with replacement to estimate outcome dispersion and ruin probability",
		RunE:  runMonteCarlo,
	}
	montecarloCmd.Flags().String("run-id", "", "Resample a stored run's ledger")
	montecarloCmd.Flags().String("bars", "", "Bar CSV path for a fresh backtest (overrides config)")
	montecarloCmd.Flags().String("models", "", "Model output CSV path (overrides config)")
	montecarloCmd.Flags().Int("paths", 0, "Bootstrap paths (0 = config value)")
	montecarloCmd.Flags().Int64("seed", 0, "Base seed (0 = config value)")
	montecarloCmd.Flags().Bool("save", false, "Persist the report under the stored run (requires --run-id)")

	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Stream live bars from the configured websocket",
		Long:  "Subscribes to the bar feed, validates every message and logs the accepted bars",
		RunE:  runFeed,
	}
	feedCmd.Flags().String("url", "", "Websocket URL (overrides config)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs and metrics over HTTP",
		Long:  "Read-only API: /health, /runs, /runs/{id} and Prometheus /metrics",
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", "", "Listen address (overrides config)")

	rootCmd.AddCommand(backtestCmd, walkforwardCmd, montecarloCmd, feedCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
