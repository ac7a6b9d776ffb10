package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jcqlabs/futrun/internal/data"
	"github.com/jcqlabs/futrun/internal/market"
	"github.com/jcqlabs/futrun/internal/persistence"
	"github.com/jcqlabs/futrun/internal/session"
)

// loadSeries assembles the full input series: bars (snapshot cache first,
// then CSV), derived features, and model outputs.
func loadSeries(ctx context.Context, cmd *cobra.Command) (*market.Series, error) {
	barsPath, _ := cmd.Flags().GetString("bars")
	if barsPath == "" {
		barsPath = cfg.Data.BarsCSV
	}
	if barsPath == "" {
		return nil, fmt.Errorf("no bar source: pass --bars or set data.bars_csv")
	}

	var cache *data.Cache
	if cfg.Data.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Data.Cache.Addr,
			Password: cfg.Data.Cache.Password,
			DB:       cfg.Data.Cache.DB,
		})
		cache = data.NewCache(rdb, cfg.Data.Cache.TTL())
	}

	var series *market.Series
	if cache != nil {
		cached, ok, err := cache.LoadBars(ctx, cfg.Symbol, cfg.Timeframe)
		if err != nil {
			log.Warn().Err(err).Msg("snapshot cache unavailable, falling back to CSV")
		} else if ok {
			log.Info().Int("bars", cached.Len()).Msg("bars restored from cache")
			series = cached
		}
	}
	if series == nil {
		loaded, err := data.LoadBarsCSV(barsPath, cfg.Symbol, cfg.Timeframe)
		if err != nil {
			return nil, err
		}
		series = loaded
		if cache != nil {
			if err := cache.StoreBars(ctx, series); err != nil {
				log.Warn().Err(err).Msg("snapshot cache write failed")
			}
		}
	}

	cal, err := session.NewCalendar(cfg.Pipeline.Session)
	if err != nil {
		return nil, err
	}
	data.BuildFeatures(series, cal)

	modelsPath, _ := cmd.Flags().GetString("models")
	if modelsPath == "" {
		modelsPath = cfg.Data.ModelsCSV
	}
	if modelsPath != "" {
		if err := data.LoadModelsCSV(modelsPath, series); err != nil {
			return nil, err
		}
	}
	return series, nil
}

// openStore connects the configured Postgres store behind a breaker, or
// returns nil when persistence is disabled.
func openStore(ctx context.Context) (persistence.Store, error) {
	if !cfg.Persistence.Enabled {
		return nil, nil
	}
	pg, err := persistence.NewPostgresStore(ctx, cfg.Persistence.DSN,
		cfg.Persistence.MaxOpenConns, cfg.Persistence.ConnTimeout())
	if err != nil {
		return nil, err
	}
	return persistence.NewBreakerStore(pg, 0), nil
}
