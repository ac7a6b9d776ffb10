// Package config loads and validates the application configuration from
// YAML, with environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jcqlabs/futrun/internal/backtest"
	"github.com/jcqlabs/futrun/internal/montecarlo"
	"github.com/jcqlabs/futrun/internal/walkforward"
)

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Pretty bool   `yaml:"pretty"` // console writer instead of JSON
}

// DataConfig locates bar, feature and model inputs.
type DataConfig struct {
	BarsCSV     string `yaml:"bars_csv"`
	FeaturesCSV string `yaml:"features_csv"`
	ModelsCSV   string `yaml:"models_csv"`

	Cache RedisConfig `yaml:"cache"`
}

// RedisConfig configures the optional series snapshot cache.
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL is the snapshot expiry as a duration.
func (r RedisConfig) TTL() time.Duration { return time.Duration(r.TTLSeconds) * time.Second }

// WalkForwardConfig wraps the fold geometry with runner parallelism.
type WalkForwardConfig struct {
	Split   walkforward.SplitConfig `yaml:"split"`
	Workers int                     `yaml:"workers"`
}

// PersistenceConfig configures the optional Postgres result store.
type PersistenceConfig struct {
	Enabled            bool   `yaml:"enabled"`
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	ConnTimeoutSeconds int    `yaml:"conn_timeout_seconds"`
}

// ConnTimeout is the connect deadline as a duration.
func (p PersistenceConfig) ConnTimeout() time.Duration {
	return time.Duration(p.ConnTimeoutSeconds) * time.Second
}

// FeedConfig configures the live bar feed.
type FeedConfig struct {
	URL                     string `yaml:"url"`
	Symbol                  string `yaml:"symbol"`
	ReconnectBackoffSeconds int    `yaml:"reconnect_backoff_seconds"`
	ReconnectPerMin         int    `yaml:"reconnect_per_min"`
}

// ReconnectBackoff is the wait between reconnect attempts as a duration.
func (f FeedConfig) ReconnectBackoff() time.Duration {
	return time.Duration(f.ReconnectBackoffSeconds) * time.Second
}

// APIConfig configures the read-only HTTP server.
type APIConfig struct {
	Listen string `yaml:"listen"`
}

// Config is the full application configuration tree.
type Config struct {
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`

	Log         LogConfig               `yaml:"log"`
	Data        DataConfig              `yaml:"data"`
	Pipeline    backtest.PipelineConfig `yaml:"pipeline"`
	WalkForward WalkForwardConfig       `yaml:"walkforward"`
	MonteCarlo  montecarlo.Config       `yaml:"montecarlo"`
	Persistence PersistenceConfig       `yaml:"persistence"`
	Feed        FeedConfig              `yaml:"feed"`
	API         APIConfig               `yaml:"api"`
}

// Default returns the full production default tree.
func Default() Config {
	return Config{
		Symbol:    "NQ",
		Timeframe: "1m",
		Log:       LogConfig{Level: "info"},
		Data: DataConfig{
			Cache: RedisConfig{Addr: "localhost:6379", TTLSeconds: 900},
		},
		Pipeline: backtest.DefaultPipelineConfig(),
		WalkForward: WalkForwardConfig{
			Split:   walkforward.DefaultSplitConfig(),
			Workers: 4,
		},
		MonteCarlo: montecarlo.DefaultConfig(),
		Persistence: PersistenceConfig{
			MaxOpenConns:       8,
			ConnTimeoutSeconds: 5,
		},
		Feed: FeedConfig{
			ReconnectBackoffSeconds: 2,
			ReconnectPerMin:         10,
		},
		API: APIConfig{Listen: ":8080"},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing .env file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays credentials and endpoints that should not live in the
// YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("FUTRUN_PG_DSN"); v != "" {
		c.Persistence.DSN = v
	}
	if v := os.Getenv("FUTRUN_REDIS_ADDR"); v != "" {
		c.Data.Cache.Addr = v
	}
	if v := os.Getenv("FUTRUN_REDIS_PASSWORD"); v != "" {
		c.Data.Cache.Password = v
	}
	if v := os.Getenv("FUTRUN_FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("FUTRUN_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("config: symbol is required")
	}
	if c.Timeframe == "" {
		return fmt.Errorf("config: timeframe is required")
	}
	switch c.Log.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}

	p := c.Pipeline
	if p.Generator.MinEdgeProb < 0 || p.Generator.MaxProb > 1 || p.Generator.MinEdgeProb >= p.Generator.MaxProb {
		return fmt.Errorf("config: generator probability bounds [%.2f, %.2f] invalid",
			p.Generator.MinEdgeProb, p.Generator.MaxProb)
	}
	if p.Generator.MinRewardRisk <= 0 || p.Generator.MinRewardRisk > p.Generator.MaxRewardRisk {
		return fmt.Errorf("config: reward/risk bounds [%.2f, %.2f] invalid",
			p.Generator.MinRewardRisk, p.Generator.MaxRewardRisk)
	}
	if p.Risk.PerTradeCapUSD <= 0 {
		return fmt.Errorf("config: per-trade cap must be positive, got %.2f", p.Risk.PerTradeCapUSD)
	}
	if p.Risk.AccountOpenCapUSD < p.Risk.PerTradeCapUSD {
		return fmt.Errorf("config: account open cap %.2f below per-trade cap %.2f",
			p.Risk.AccountOpenCapUSD, p.Risk.PerTradeCapUSD)
	}
	if p.MaxHold < 0 {
		return fmt.Errorf("config: max hold bars must be non-negative, got %d", p.MaxHold)
	}

	if _, err := walkforward.NewSplitter(c.WalkForward.Split); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.MonteCarlo.Paths <= 0 {
		return fmt.Errorf("config: monte carlo paths must be positive, got %d", c.MonteCarlo.Paths)
	}

	if c.Persistence.Enabled && c.Persistence.DSN == "" {
		return fmt.Errorf("config: persistence enabled without a DSN")
	}
	if c.Data.Cache.Enabled && c.Data.Cache.Addr == "" {
		return fmt.Errorf("config: cache enabled without an address")
	}
	return nil
}
