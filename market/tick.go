package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one live price update from the trade stream.
//
// Err is set when the upstream delivered an error-tagged or malformed
// event; such ticks carry no usable price and must not terminate a
// listener.
type Tick struct {
	Symbol string
	Time   time.Time
	Price  decimal.Decimal
	Err    string
}

// IsErr reports whether the tick is an error event rather than a price.
func (t Tick) IsErr() bool {
	return t.Err != ""
}
