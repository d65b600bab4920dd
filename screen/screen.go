// Package screen filters the instrument universe down to pairs worth
// simulating. The predicate is pure and stateless; it only looks at
// already-fetched instrument and ticker data.
package screen

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/coinsim/market"
)

// Criteria holds the pass/fail thresholds for one screening pass.
type Criteria struct {
	QuoteAsset       string          // required quote asset, e.g. "USDT"
	MinChangePercent decimal.Decimal // minimum 24h price change, in percent
	MinQuoteVolume   decimal.Decimal // minimum 24h quote volume
}

// Default returns the screening thresholds the original search used:
// USDT pairs that moved at least 10% in the last 24 hours.
func Default() Criteria {
	return Criteria{
		QuoteAsset:       "USDT",
		MinChangePercent: decimal.NewFromInt(10),
	}
}

// Match reports whether one instrument passes the screen.
func (c Criteria) Match(inst market.Instrument, stats market.TickerStats) bool {
	if inst.Status != "TRADING" {
		return false
	}
	if c.QuoteAsset != "" && inst.QuoteAsset != c.QuoteAsset {
		return false
	}
	if stats.PriceChangePercent.LessThan(c.MinChangePercent) {
		return false
	}
	if stats.QuoteVolume.LessThan(c.MinQuoteVolume) {
		return false
	}
	return true
}

// Filter returns the instruments that pass the screen. Instruments with
// no ticker entry are dropped; no stats means no evidence of activity.
func Filter(instruments []market.Instrument, stats []market.TickerStats, c Criteria) []market.Instrument {
	bySymbol := make(map[string]market.TickerStats, len(stats))
	for _, s := range stats {
		bySymbol[s.Symbol] = s
	}

	var out []market.Instrument
	for _, inst := range instruments {
		s, ok := bySymbol[inst.Symbol]
		if !ok {
			continue
		}
		if c.Match(inst, s) {
			out = append(out, inst)
		}
	}
	return out
}
