package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReplayOutcome classifies how a historical replay ended.
type ReplayOutcome int

const (
	// OutcomeTargetReached: the position value crossed the target on
	// some historical bar.
	OutcomeTargetReached ReplayOutcome = iota
	// OutcomeCarryForward: the target was never reached; the final
	// position value is handed to the real-time monitor.
	OutcomeCarryForward
	// OutcomeNoHistory: the instrument has no bars at or after the
	// start time, i.e. it did not exist then. Distinct from a fetch
	// failure and produces no carry-forward.
	OutcomeNoHistory
)

func (o ReplayOutcome) String() string {
	switch o {
	case OutcomeTargetReached:
		return "target-reached"
	case OutcomeCarryForward:
		return "carry-forward"
	case OutcomeNoHistory:
		return "no-history"
	default:
		return "unknown"
	}
}

// ReplayResult reports the simulated buy and, depending on the outcome,
// either the simulated sale or the carry-forward notional.
type ReplayResult struct {
	Outcome  ReplayOutcome
	Quantity decimal.Decimal
	BuyPrice decimal.Decimal
	BuyTime  time.Time

	// Set when Outcome == OutcomeTargetReached.
	SellPrice decimal.Decimal
	SellTime  time.Time
	SellValue decimal.Decimal

	// Set when Outcome == OutcomeCarryForward.
	CarryForward decimal.Decimal
}

// Replay simulates a buy-and-hold position over historical hourly bars.
// Given identical bars the result is a pure function of the sequence.
type Replay struct {
	bars BarSource
	log  *zap.Logger
}

func NewReplay(bars BarSource, log *zap.Logger) *Replay {
	return &Replay{bars: bars, log: log}
}

// Run buys notional USD of symbol at the open of the first bar at or
// after start, then scans bars in ascending time order and sells on the
// first bar whose close brings the position value to target or above.
// The scan stops at that bar; later bars are never inspected.
func (r *Replay) Run(ctx context.Context, symbol string, start time.Time, notional, target decimal.Decimal) (ReplayResult, error) {
	if !notional.IsPositive() {
		return ReplayResult{}, fmt.Errorf("notional must be positive, got %s", notional)
	}
	if !target.IsPositive() {
		return ReplayResult{}, fmt.Errorf("target must be positive, got %s", target)
	}

	bars, err := r.bars.HourlyBars(ctx, symbol, start)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("fetch hourly bars: %w", err)
	}

	if len(bars) == 0 {
		r.log.Error("instrument did not exist at the given start time",
			zap.String("symbol", symbol),
			zap.Time("start", start))
		return ReplayResult{Outcome: OutcomeNoHistory}, nil
	}

	buyPrice := bars[0].Open
	if buyPrice.IsZero() {
		return ReplayResult{}, fmt.Errorf("first bar open is zero for %s", symbol)
	}
	quantity := notional.Div(buyPrice)
	buyTime := bars[0].Time

	r.log.Info("simulating buy",
		zap.String("symbol", symbol),
		zap.String("quantity", quantity.String()),
		zap.String("notional", notional.String()),
		zap.String("price", buyPrice.String()),
		zap.Time("time", buyTime))

	res := ReplayResult{
		Quantity: quantity,
		BuyPrice: buyPrice,
		BuyTime:  buyTime,
	}

	var value decimal.Decimal
	for _, bar := range bars {
		value = quantity.Mul(bar.Close)
		if value.GreaterThanOrEqual(target) {
			r.log.Info("simulated sell, target reached",
				zap.String("symbol", symbol),
				zap.String("price", bar.Close.String()),
				zap.String("value", value.String()),
				zap.Time("time", bar.Time))

			res.Outcome = OutcomeTargetReached
			res.SellPrice = bar.Close
			res.SellTime = bar.Time
			res.SellValue = value
			return res, nil
		}
	}

	r.log.Info("target not reached in historical data, carrying forward",
		zap.String("symbol", symbol),
		zap.String("carry", value.String()))

	res.Outcome = OutcomeCarryForward
	res.CarryForward = value
	return res, nil
}
