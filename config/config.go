// Package config loads the simulation configuration from a YAML or JSON
// file, with environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	Exchange   ExchangeConfig   `json:"exchange" yaml:"exchange"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	Ingest     IngestConfig     `json:"ingest" yaml:"ingest"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Screen     ScreenConfig     `json:"screen" yaml:"screen"`
}

// ExchangeConfig points at the exchange endpoints. Empty values select
// the production Binance endpoints.
type ExchangeConfig struct {
	RESTURL   string `json:"rest_url" yaml:"rest_url" envconfig:"BINANCE_REST_URL"`
	StreamURL string `json:"stream_url" yaml:"stream_url" envconfig:"BINANCE_WS_URL"`
}

// CacheConfig locates the kline cache files.
type CacheConfig struct {
	FetchedSymbolsPath string `json:"fetched_symbols_path" yaml:"fetched_symbols_path" envconfig:"FETCHED_SYMBOLS_PATH"`
	SymbolsPath        string `json:"symbols_path" yaml:"symbols_path" envconfig:"SYMBOLS_PATH"`
}

// IngestConfig controls the ingestion pass.
type IngestConfig struct {
	StartDate   string `json:"start_date" yaml:"start_date" envconfig:"INGEST_START_DATE"` // "2006-01-02"
	SymbolLimit int    `json:"symbol_limit" yaml:"symbol_limit" envconfig:"INGEST_SYMBOL_LIMIT"`
	Workers     int    `json:"workers" yaml:"workers" envconfig:"INGEST_WORKERS"`
	DumpDir     string `json:"dump_dir" yaml:"dump_dir" envconfig:"INGEST_DUMP_DIR"`
}

// SimulationConfig controls the per-symbol simulations.
type SimulationConfig struct {
	// StartTime is an RFC3339 timestamp, a "2006-01-02" date, or epoch
	// milliseconds.
	StartTime   string  `json:"start_time" yaml:"start_time" envconfig:"SIM_START_TIME"`
	BudgetUSD   float64 `json:"budget_usd" yaml:"budget_usd" envconfig:"SIM_BUDGET_USD"`
	TargetPrice float64 `json:"target_price" yaml:"target_price" envconfig:"SIM_TARGET_PRICE"`
	// NumSymbols is how many of the most recently ingested symbols to
	// simulate.
	NumSymbols int `json:"num_symbols" yaml:"num_symbols" envconfig:"SIM_NUM_SYMBOLS"`
	// MonitorMaxDuration bounds each real-time monitor, e.g. "72h".
	// Empty means no bound.
	MonitorMaxDuration string `json:"monitor_max_duration" yaml:"monitor_max_duration" envconfig:"SIM_MONITOR_MAX"`
}

// JournalConfig controls where completed simulations are recorded.
type JournalConfig struct {
	Type string `json:"type" yaml:"type" envconfig:"JOURNAL_TYPE"` // "none", "csv" or "sqlite"
	Path string `json:"path,omitempty" yaml:"path,omitempty" envconfig:"JOURNAL_PATH"`
}

// ScreenConfig holds the instrument screening thresholds.
type ScreenConfig struct {
	QuoteAsset       string  `json:"quote_asset" yaml:"quote_asset" envconfig:"SCREEN_QUOTE_ASSET"`
	MinChangePercent float64 `json:"min_change_percent" yaml:"min_change_percent" envconfig:"SCREEN_MIN_CHANGE_PCT"`
	MinQuoteVolume   float64 `json:"min_quote_volume" yaml:"min_quote_volume" envconfig:"SCREEN_MIN_QUOTE_VOLUME"`
}

// ParseStartTime interprets Simulation.StartTime.
func (c *Config) ParseStartTime() (time.Time, error) {
	s := c.Simulation.StartTime
	if s == "" {
		return time.Time{}, fmt.Errorf("simulation.start_time is required")
	}

	if millis, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad start_time %q (want RFC3339, YYYY-MM-DD or epoch millis)", s)
}

// ParseIngestStart interprets Ingest.StartDate.
func (c *Config) ParseIngestStart() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.Ingest.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad ingest.start_date %q: %w", c.Ingest.StartDate, err)
	}
	return t.UTC(), nil
}

// MonitorMax interprets Simulation.MonitorMaxDuration. Zero means no
// bound.
func (c *Config) MonitorMax() (time.Duration, error) {
	if c.Simulation.MonitorMaxDuration == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Simulation.MonitorMaxDuration)
}

// LoadFromFile loads configuration from a file (YAML or JSON) on top of
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// FromEnv loads configuration from environment variables on top of the
// defaults. A .env file is applied first when present; its absence is
// not an error.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto an already-loaded config.
func (c *Config) ApplyEnv() error {
	_ = godotenv.Load()
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}
	return c.Validate()
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Cache.FetchedSymbolsPath == "" {
		return fmt.Errorf("cache.fetched_symbols_path is required")
	}
	if c.Cache.SymbolsPath == "" {
		return fmt.Errorf("cache.symbols_path is required")
	}
	if c.Simulation.BudgetUSD <= 0 {
		return fmt.Errorf("simulation.budget_usd must be positive")
	}
	if c.Simulation.TargetPrice <= 0 {
		return fmt.Errorf("simulation.target_price must be positive")
	}
	if c.Simulation.NumSymbols <= 0 {
		return fmt.Errorf("simulation.num_symbols must be positive")
	}
	if _, err := c.ParseStartTime(); err != nil {
		return err
	}
	if _, err := c.ParseIngestStart(); err != nil {
		return err
	}
	if _, err := c.MonitorMax(); err != nil {
		return fmt.Errorf("bad monitor_max_duration: %w", err)
	}
	switch c.Journal.Type {
	case "none":
	case "csv", "sqlite":
		if c.Journal.Path == "" {
			return fmt.Errorf("journal.path required for %s journal", c.Journal.Type)
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			FetchedSymbolsPath: "./fetched_symbols.json",
			SymbolsPath:        "./symbols.json",
		},
		Ingest: IngestConfig{
			StartDate: "2017-01-01",
			DumpDir:   "./dumps",
		},
		Simulation: SimulationConfig{
			StartTime:   "2022-01-01",
			BudgetUSD:   1000,
			TargetPrice: 1200,
			NumSymbols:  1,
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Screen: ScreenConfig{
			QuoteAsset:       "USDT",
			MinChangePercent: 10,
		},
	}
}
