package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MonitorOutcome classifies how a live monitor ended.
type MonitorOutcome int

const (
	// MonitorTargetReached: a tick brought the position value to the
	// target or above.
	MonitorTargetReached MonitorOutcome = iota
	// MonitorTimedOut: MaxDuration elapsed before the target was hit.
	MonitorTimedOut
)

func (o MonitorOutcome) String() string {
	switch o {
	case MonitorTargetReached:
		return "target-reached"
	case MonitorTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// MonitorResult reports the fixed position and the tick that ended the
// monitor.
type MonitorResult struct {
	Outcome  MonitorOutcome
	Quantity decimal.Decimal
	BuyPrice decimal.Decimal
	BuyTime  time.Time

	SellPrice  decimal.Decimal
	SellTime   time.Time
	FinalValue decimal.Decimal
}

// Monitor watches the live trade stream for one symbol until the
// position value crosses the target.
//
// The position size is fixed once, from the spot price at start; later
// ticks change the computed value, never the quantity.
type Monitor struct {
	price  PriceSource
	stream TickStream
	log    *zap.Logger

	// MaxDuration bounds how long the monitor may run. Zero means no
	// bound: the monitor runs until the target is reached or the
	// context is cancelled.
	MaxDuration time.Duration
}

func NewMonitor(price PriceSource, stream TickStream, log *zap.Logger) *Monitor {
	return &Monitor{price: price, stream: stream, log: log}
}

// Run sizes the position from the current price, subscribes to the tick
// stream, and returns on the first tick where quantity*price >= target.
// The subscription is torn down synchronously before Run returns; no
// tick is processed afterwards. Error-tagged ticks are logged and
// skipped.
func (m *Monitor) Run(ctx context.Context, symbol string, notional, target decimal.Decimal) (MonitorResult, error) {
	if !notional.IsPositive() {
		return MonitorResult{}, fmt.Errorf("notional must be positive, got %s", notional)
	}
	if !target.IsPositive() {
		return MonitorResult{}, fmt.Errorf("target must be positive, got %s", target)
	}

	current, err := m.price.CurrentPrice(ctx, symbol)
	if err != nil {
		return MonitorResult{}, fmt.Errorf("current price: %w", err)
	}
	if current.IsZero() {
		return MonitorResult{}, fmt.Errorf("current price is zero for %s", symbol)
	}

	quantity := notional.Div(current)
	buyTime := time.Now().UTC()

	m.log.Info("simulating buy",
		zap.String("symbol", symbol),
		zap.String("quantity", quantity.String()),
		zap.String("notional", notional.String()),
		zap.String("price", current.String()))

	sub, err := m.stream.Subscribe(ctx, symbol)
	if err != nil {
		return MonitorResult{}, fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	res := MonitorResult{
		Quantity: quantity,
		BuyPrice: current,
		BuyTime:  buyTime,
	}

	var deadline <-chan time.Time
	if m.MaxDuration > 0 {
		timer := time.NewTimer(m.MaxDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return MonitorResult{}, ctx.Err()

		case <-deadline:
			m.log.Info("monitor deadline elapsed before target",
				zap.String("symbol", symbol),
				zap.Duration("max", m.MaxDuration))
			res.Outcome = MonitorTimedOut
			return res, nil

		case tick, ok := <-sub.Ticks():
			if !ok {
				return MonitorResult{}, fmt.Errorf("tick stream for %s closed upstream", symbol)
			}
			if tick.IsErr() {
				m.log.Error("error tick",
					zap.String("symbol", symbol),
					zap.String("message", tick.Err))
				continue
			}

			value := quantity.Mul(tick.Price)
			m.log.Info("current price",
				zap.String("symbol", symbol),
				zap.String("price", tick.Price.String()),
				zap.String("value", value.String()))

			if value.GreaterThanOrEqual(target) {
				sellTime := tick.Time
				if sellTime.IsZero() {
					sellTime = time.Now().UTC()
				}

				m.log.Info("simulated sell, target reached",
					zap.String("symbol", symbol),
					zap.String("price", tick.Price.String()),
					zap.String("value", value.String()),
					zap.Time("time", sellTime))

				// Tear down before returning so no later tick is seen.
				_ = sub.Close()

				res.Outcome = MonitorTargetReached
				res.SellPrice = tick.Price
				res.SellTime = sellTime
				res.FinalValue = value
				return res, nil
			}
		}
	}
}
