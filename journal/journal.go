// Package journal persists the outcome of completed trade simulations.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mode says which phase of the simulation produced the record.
type Mode string

const (
	ModeHistorical Mode = "historical"
	ModeRealTime   Mode = "realtime"
)

// SimRecord is one completed simulation for one symbol.
type SimRecord struct {
	ID         string // ULID, time-sortable
	Symbol     string
	Mode       Mode
	Outcome    string
	Quantity   decimal.Decimal
	BuyPrice   decimal.Decimal
	SellPrice  decimal.Decimal
	BuyTime    time.Time
	SellTime   time.Time
	Notional   decimal.Decimal // USD spent at buy time
	FinalValue decimal.Decimal // position value when the simulation ended
}

// Journal records simulation outcomes.
type Journal interface {
	RecordSim(SimRecord) error
	Close() error
}

// Nop is a Journal that discards everything. Used when journaling is
// disabled.
type Nop struct{}

func (Nop) RecordSim(SimRecord) error { return nil }
func (Nop) Close() error              { return nil }
