package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/coinsim/binance"
	"github.com/rustyeddy/coinsim/cache"
	"github.com/rustyeddy/coinsim/ingest"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Warm the kline cache from Binance's public monthly data dumps",
	Long: `Import downloads the monthly daily-kline archives from
data.binance.vision for every instrument not yet in the cache, extracts
them, and merges each instrument's first bar into the symbols ledger.
This avoids the rate-limited klines endpoint on large first runs.

Example:
  coinsim import --month 2017-08 --limit 500`,
	RunE: runImport,
}

var (
	importMonth string
	importLimit int
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importMonth, "month", "m", "", "archive month, YYYY-MM (required)")
	importCmd.Flags().IntVarP(&importLimit, "limit", "l", 0, "only consider the first N instruments (0 = all)")

	importCmd.MarkFlagRequired("month")
}

func runImport(cmd *cobra.Command, args []string) error {
	month, err := time.Parse("2006-01", importMonth)
	if err != nil {
		return fmt.Errorf("bad --month %q (want YYYY-MM): %w", importMonth, err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := cache.NewStore(cfg.Cache.FetchedSymbolsPath, cfg.Cache.SymbolsPath, log)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	client := binance.NewClient(cfg.Exchange.RESTURL)
	svc := ingest.NewService(client, store, log, cfg.Ingest.Workers)

	instruments, err := svc.Symbols(cmd.Context(), importLimit)
	if err != nil {
		return fmt.Errorf("list instruments: %w", err)
	}

	importer := ingest.NewImporter("", cfg.Ingest.DumpDir, store, log, cfg.Ingest.Workers)
	return importer.Import(cmd.Context(), instruments, month)
}
