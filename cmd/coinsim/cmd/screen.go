package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/coinsim/binance"
	"github.com/rustyeddy/coinsim/screen"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "List instruments passing the activity screen",
	Long: `Screen fetches the instrument universe and 24h ticker statistics and
prints the instruments that pass the configured thresholds: trading
status, quote asset, minimum 24h price change and minimum quote volume.

Example:
  coinsim screen --config coinsim.yaml`,
	RunE: runScreen,
}

func init() {
	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := binance.NewClient(cfg.Exchange.RESTURL)
	ctx := cmd.Context()

	instruments, err := client.ExchangeInfo(ctx)
	if err != nil {
		return fmt.Errorf("exchange info: %w", err)
	}
	stats, err := client.TickerStats(ctx)
	if err != nil {
		return fmt.Errorf("ticker stats: %w", err)
	}

	criteria := screen.Criteria{
		QuoteAsset:       cfg.Screen.QuoteAsset,
		MinChangePercent: decimal.NewFromFloat(cfg.Screen.MinChangePercent),
		MinQuoteVolume:   decimal.NewFromFloat(cfg.Screen.MinQuoteVolume),
	}

	passing := screen.Filter(instruments, stats, criteria)
	for _, inst := range passing {
		fmt.Println(inst.Symbol)
	}
	fmt.Printf("\n%d of %d instruments pass\n", len(passing), len(instruments))
	return nil
}
