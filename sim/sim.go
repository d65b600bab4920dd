// Package sim runs per-symbol trade simulations: a historical hourly-bar
// replay, and on carry-forward a live monitor that watches the trade
// stream until the position value crosses the target.
package sim

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/coinsim/market"
)

// BarSource provides the hourly bars a replay walks over.
type BarSource interface {
	HourlyBars(ctx context.Context, symbol string, start time.Time) ([]market.Bar, error)
}

// PriceSource provides the spot price a monitor sizes its position from.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// TickSubscription is a live per-symbol tick feed. Close must be
// idempotent; the tick channel closes on teardown or upstream disconnect.
type TickSubscription interface {
	Ticks() <-chan market.Tick
	Close() error
}

// TickStream opens tick subscriptions.
type TickStream interface {
	Subscribe(ctx context.Context, symbol string) (TickSubscription, error)
}
