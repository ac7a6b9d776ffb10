package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/jcqlabs/futrun/internal/market"
)

// Cache stores bar snapshots in Redis so repeated experiments over the same
// range skip the CSV parse. Features and model outputs are cheap to rebuild
// and are not cached.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache wraps a Redis client. A zero ttl stores snapshots without expiry.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func barsKey(symbol, timeframe string) string {
	return fmt.Sprintf("futrun:bars:%s:%s", symbol, timeframe)
}

// StoreBars snapshots the series' bars.
func (c *Cache) StoreBars(ctx context.Context, series *market.Series) error {
	payload, err := json.Marshal(series.Bars)
	if err != nil {
		return fmt.Errorf("data: encode bars: %w", err)
	}
	key := barsKey(series.Symbol, series.Timeframe)
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("data: cache set %s: %w", key, err)
	}
	log.Debug().Str("key", key).Int("bars", series.Len()).Msg("bar snapshot cached")
	return nil
}

// LoadBars restores a cached snapshot into a fresh series. A cache miss
// returns ok=false with no error.
func (c *Cache) LoadBars(ctx context.Context, symbol, timeframe string) (*market.Series, bool, error) {
	key := barsKey(symbol, timeframe)
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("data: cache get %s: %w", key, err)
	}

	var bars []market.Bar
	if err := json.Unmarshal(payload, &bars); err != nil {
		return nil, false, fmt.Errorf("data: decode bars: %w", err)
	}

	series := market.NewSeries(symbol, timeframe)
	for _, b := range bars {
		series.Append(b)
	}
	if err := series.Validate(); err != nil {
		return nil, false, fmt.Errorf("data: cached snapshot %s: %w", key, err)
	}
	return series, true, nil
}

// Invalidate drops the snapshot for one symbol/timeframe.
func (c *Cache) Invalidate(ctx context.Context, symbol, timeframe string) error {
	return c.rdb.Del(ctx, barsKey(symbol, timeframe)).Err()
}
