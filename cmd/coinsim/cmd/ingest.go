package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/coinsim/binance"
	"github.com/rustyeddy/coinsim/cache"
	"github.com/rustyeddy/coinsim/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch the instrument universe and cache earliest daily bars",
	Long: `Ingest enumerates every instrument on the exchange, fetches the earliest
daily bar for each one not already in the cache, and merges the results
into the symbols ledger. Already-fetched symbols are skipped, so repeated
runs only fetch what is new.

Example:
  coinsim ingest --limit 200`,
	RunE: runIngest,
}

var ingestLimit int

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().IntVarP(&ingestLimit, "limit", "l", 0, "only consider the first N instruments (0 = all)")
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	start, err := cfg.ParseIngestStart()
	if err != nil {
		return err
	}

	limit := ingestLimit
	if limit == 0 {
		limit = cfg.Ingest.SymbolLimit
	}

	client := binance.NewClient(cfg.Exchange.RESTURL)
	svc := ingest.NewService(client, store, log, cfg.Ingest.Workers)

	return svc.Run(cmd.Context(), start, limit)
}
