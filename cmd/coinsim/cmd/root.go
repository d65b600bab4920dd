package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/coinsim/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "coinsim",
	Short: "Crypto instrument discovery and two-phase trade simulation",
	Long: `Coinsim discovers tradable instruments on Binance, incrementally caches
their earliest daily price history, and runs a two-phase trade simulation
per instrument: a historical backtest replay, then real-time monitoring
when the target is not reached historically.

It provides tools for:
  - Ingesting the instrument universe and earliest daily bars
  - Warming the kline cache from Binance's public data dumps
  - Screening instruments by activity thresholds
  - Running concurrent per-symbol trade simulations
  - Journaling completed simulations to SQLite or CSV`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); environment overrides always apply")
}

// loadConfig builds the effective configuration: defaults, then the
// config file when given, then environment overrides.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.FromEnv()
	}

	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger handed down to every component.
func newLogger() (*zap.Logger, error) {
	log, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}
