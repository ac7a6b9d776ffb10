package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jcqlabs/futrun/internal/feed"
	"github.com/jcqlabs/futrun/internal/market"
)

func runFeed(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		url = cfg.Feed.URL
	}
	if url == "" {
		return fmt.Errorf("no feed URL: pass --url or set feed.url")
	}

	symbol := cfg.Feed.Symbol
	if symbol == "" {
		symbol = cfg.Symbol
	}

	client := feed.NewClient(feed.Config{
		URL:              url,
		Symbol:           symbol,
		ReconnectBackoff: cfg.Feed.ReconnectBackoff(),
		ReconnectPerMin:  cfg.Feed.ReconnectPerMin,
	}, func(b market.Bar) {
		log.Info().
			Time("ts", b.Timestamp).
			Float64("open", b.Open).
			Float64("high", b.High).
			Float64("low", b.Low).
			Float64("close", b.Close).
			Float64("volume", b.Volume).
			Msg("bar")
	})

	err := client.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
