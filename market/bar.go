package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents OHLC (Open, High, Low, Close) candlestick data for a
// fixed interval. Prices are decimals because the exchange reports them
// as decimal strings and value-vs-target comparisons must not drift.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// TickerStats is the 24h rolling ticker for one instrument, consumed by
// the screening predicate.
type TickerStats struct {
	Symbol             string
	LastPrice          decimal.Decimal
	PriceChangePercent decimal.Decimal
	QuoteVolume        decimal.Decimal
}
