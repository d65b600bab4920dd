package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/coinsim/binance"
	"github.com/rustyeddy/coinsim/cache"
	"github.com/rustyeddy/coinsim/config"
	"github.com/rustyeddy/coinsim/journal"
	"github.com/rustyeddy/coinsim/sim"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run two-phase trade simulations for the most recent symbols",
	Long: `Simulate reads the tail of the ingested symbol list and runs one
simulation per symbol concurrently. Each simulation replays historical
hourly bars from the configured start time and, if the target value is
never crossed, hands the carried-forward notional to a live monitor on
the exchange's trade stream.

Example:
  coinsim simulate --config coinsim.yaml`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
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

	symbols := store.Tail(cfg.Simulation.NumSymbols)
	if len(symbols) == 0 {
		return fmt.Errorf("no ingested symbols; run 'coinsim ingest' first")
	}

	start, err := cfg.ParseStartTime()
	if err != nil {
		return err
	}
	monitorMax, err := cfg.MonitorMax()
	if err != nil {
		return err
	}

	jr, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jr.Close()

	client := binance.NewClient(cfg.Exchange.RESTURL)
	stream := binance.NewStream(cfg.Exchange.StreamURL, log)

	orch := sim.NewOrchestrator(client, client, tickStream{stream}, jr, log, sim.Config{
		StartTime:   start,
		TotalBudget: decimal.NewFromFloat(cfg.Simulation.BudgetUSD),
		TargetPrice: decimal.NewFromFloat(cfg.Simulation.TargetPrice),
		MonitorMax:  monitorMax,
	})

	log.Info("starting simulations")
	return orch.Run(cmd.Context(), symbols)
}

// tickStream adapts the concrete websocket client to the simulator's
// stream interface.
type tickStream struct {
	stream *binance.Stream
}

func (t tickStream) Subscribe(ctx context.Context, symbol string) (sim.TickSubscription, error) {
	return t.stream.Subscribe(ctx, symbol)
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.Path)
	case "csv":
		return journal.NewCSV(cfg.Journal.Path)
	default:
		return journal.Nop{}, nil
	}
}
