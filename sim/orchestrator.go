package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/coinsim/journal"
	"github.com/rustyeddy/coinsim/pkg/id"
)

// Config is the read-only configuration shared by every symbol
// simulation. It is copied at fan-out time; simulations share nothing
// mutable.
type Config struct {
	StartTime   time.Time       // where historical replay begins
	TotalBudget decimal.Decimal // USD, split evenly across symbols
	TargetPrice decimal.Decimal // position-value threshold ending a simulation
	MonitorMax  time.Duration   // 0 = monitor without a deadline
}

// Orchestrator drives the two-phase simulation for each symbol:
// historical replay first unless the start time is today, then a live
// monitor if the replay carries forward.
type Orchestrator struct {
	replay  *Replay
	price   PriceSource
	stream  TickStream
	journal journal.Journal
	log     *zap.Logger
	cfg     Config

	// now is swapped in tests to pin the today-vs-historical guard.
	now func() time.Time
}

func NewOrchestrator(bars BarSource, price PriceSource, stream TickStream, jr journal.Journal, log *zap.Logger, cfg Config) *Orchestrator {
	return &Orchestrator{
		replay:  NewReplay(bars, log),
		price:   price,
		stream:  stream,
		journal: jr,
		log:     log,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run simulates every symbol concurrently, one goroutine per symbol,
// and returns once all simulations have completed. A failure in one
// symbol never aborts its siblings.
func (o *Orchestrator) Run(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to simulate")
	}

	perSymbol := o.cfg.TotalBudget.Div(decimal.NewFromInt(int64(len(symbols))))

	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			o.log.Info("starting simulation", zap.String("symbol", symbol))
			o.runOne(ctx, symbol, perSymbol)
		}(symbol)
	}
	wg.Wait()
	return nil
}

// runOne is the per-symbol state machine:
//
//	Init -> RealtimeOnly -> Completed            (start time is today)
//	Init -> Historical [-> Realtime] -> Completed
//
// Every exit path marks the symbol completed; errors are logged and
// contained here.
func (o *Orchestrator) runOne(ctx context.Context, symbol string, notional decimal.Decimal) {
	if sameDay(o.cfg.StartTime, o.now()) {
		o.runMonitor(ctx, symbol, notional)
		return
	}

	res, err := o.replay.Run(ctx, symbol, o.cfg.StartTime, notional, o.cfg.TargetPrice)
	if err != nil {
		o.log.Error("historical simulation failed",
			zap.String("symbol", symbol),
			zap.Error(err))
		return
	}

	switch res.Outcome {
	case OutcomeTargetReached:
		o.record(journal.SimRecord{
			ID:         id.New(),
			Symbol:     symbol,
			Mode:       journal.ModeHistorical,
			Outcome:    res.Outcome.String(),
			Quantity:   res.Quantity,
			BuyPrice:   res.BuyPrice,
			SellPrice:  res.SellPrice,
			BuyTime:    res.BuyTime,
			SellTime:   res.SellTime,
			Notional:   notional,
			FinalValue: res.SellValue,
		})

	case OutcomeNoHistory:
		// Reported by the replay; nothing to hand to the monitor.

	case OutcomeCarryForward:
		o.runMonitor(ctx, symbol, res.CarryForward)
	}
}

func (o *Orchestrator) runMonitor(ctx context.Context, symbol string, notional decimal.Decimal) {
	monitor := NewMonitor(o.price, o.stream, o.log)
	monitor.MaxDuration = o.cfg.MonitorMax

	res, err := monitor.Run(ctx, symbol, notional, o.cfg.TargetPrice)
	if err != nil {
		o.log.Error("real-time simulation failed",
			zap.String("symbol", symbol),
			zap.Error(err))
		return
	}

	if res.Outcome != MonitorTargetReached {
		return
	}

	o.record(journal.SimRecord{
		ID:         id.New(),
		Symbol:     symbol,
		Mode:       journal.ModeRealTime,
		Outcome:    res.Outcome.String(),
		Quantity:   res.Quantity,
		BuyPrice:   res.BuyPrice,
		SellPrice:  res.SellPrice,
		BuyTime:    res.BuyTime,
		SellTime:   res.SellTime,
		Notional:   notional,
		FinalValue: res.FinalValue,
	})
}

func (o *Orchestrator) record(rec journal.SimRecord) {
	if err := o.journal.RecordSim(rec); err != nil {
		o.log.Error("journal write failed",
			zap.String("symbol", rec.Symbol),
			zap.Error(err))
	}
}

// sameDay reports whether a and b fall on the same UTC calendar date.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
