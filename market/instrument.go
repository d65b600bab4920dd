package market

// Instrument is a tradable pair on the exchange, uniquely identified by
// Symbol (e.g. "BTCUSDT"). Immutable once fetched from the instrument list.
type Instrument struct {
	Symbol     string
	BaseAsset  string
	QuoteAsset string
	Status     string
}

// Display returns the human-readable "BASE/QUOTE" form used in the ledger.
func (i Instrument) Display() string {
	return i.BaseAsset + "/" + i.QuoteAsset
}
