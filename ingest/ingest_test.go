package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rustyeddy/coinsim/cache"
	"github.com/rustyeddy/coinsim/market"
)

type fakeAPI struct {
	mu          sync.Mutex
	instruments []market.Instrument
	bars        map[string]market.Bar
	fail        map[string]bool
	calls       map[string]int
}

func newFakeAPI(instruments ...market.Instrument) *fakeAPI {
	return &fakeAPI{
		instruments: instruments,
		bars:        make(map[string]market.Bar),
		fail:        make(map[string]bool),
		calls:       make(map[string]int),
	}
}

func (f *fakeAPI) ExchangeInfo(ctx context.Context) ([]market.Instrument, error) {
	return f.instruments, nil
}

func (f *fakeAPI) EarliestDailyBar(ctx context.Context, symbol string, start time.Time) (market.Bar, bool, error) {
	f.mu.Lock()
	f.calls[symbol]++
	f.mu.Unlock()

	if f.fail[symbol] {
		return market.Bar{}, false, errors.New("network down")
	}
	bar, ok := f.bars[symbol]
	return bar, ok, nil
}

func (f *fakeAPI) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func newTestStore(t *testing.T) *cache.Store {
	t.Helper()

	dir := t.TempDir()
	s, err := cache.NewStore(
		filepath.Join(dir, "fetched_symbols.json"),
		filepath.Join(dir, "symbols.json"),
		zap.NewNop(),
	)
	require.NoError(t, err)
	return s
}

func btc() market.Instrument {
	return market.Instrument{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", Status: "TRADING"}
}

func eth() market.Instrument {
	return market.Instrument{Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteAsset: "USDT", Status: "TRADING"}
}

func dayBar(date time.Time, close string) market.Bar {
	d := decimal.RequireFromString(close)
	return market.Bar{Time: date, Open: d, High: d, Low: d, Close: d}
}

func TestSymbolsLimitTruncates(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(btc(), eth())
	svc := NewService(api, newTestStore(t), zap.NewNop(), 1)

	all, err := svc.Symbols(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Truncation keeps the first N in exchange-reported order.
	one, err := svc.Symbols(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "BTCUSDT", one[0].Symbol)

	big, err := svc.Symbols(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, big, 2)
}

func TestFetchAllSkipsAlreadyFetched(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(btc(), eth())
	api.bars["ETHUSDT"] = dayBar(time.Date(2017, 8, 17, 0, 0, 0, 0, time.UTC), "300")

	store := newTestStore(t)
	store.MarkFetched("BTCUSDT")

	svc := NewService(api, store, zap.NewNop(), 2)
	bars := svc.FetchAll(context.Background(), api.instruments, time.Time{})

	// No fetch call and no record for the already-fetched symbol.
	assert.Zero(t, api.callCount("BTCUSDT"))
	require.Len(t, bars, 1)
	assert.Equal(t, "ETH/USDT", bars[0].Symbol)
}

func TestFetchAllFailureIsRetriedNextRun(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(btc())
	api.fail["BTCUSDT"] = true

	store := newTestStore(t)
	svc := NewService(api, store, zap.NewNop(), 1)

	bars := svc.FetchAll(context.Background(), api.instruments, time.Time{})
	assert.Empty(t, bars)
	assert.False(t, store.Contains("BTCUSDT"), "failed fetch must not mark the symbol")

	// The upstream recovers; the next pass fetches it again.
	api.fail["BTCUSDT"] = false
	api.bars["BTCUSDT"] = dayBar(time.Date(2017, 8, 17, 0, 0, 0, 0, time.UTC), "4285.08")

	bars = svc.FetchAll(context.Background(), api.instruments, time.Time{})
	require.Len(t, bars, 1)
	assert.Equal(t, 2, api.callCount("BTCUSDT"))
	assert.True(t, store.Contains("BTCUSDT"))
}

func TestFetchAllEmptyKlinesYieldsNoRecord(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(btc()) // no bar registered: instrument has no klines
	store := newTestStore(t)
	svc := NewService(api, store, zap.NewNop(), 1)

	bars := svc.FetchAll(context.Background(), api.instruments, time.Time{})
	assert.Empty(t, bars)
	assert.Equal(t, 1, api.callCount("BTCUSDT"))
}

func TestFetchAllDuplicateInBatchFetchedOnce(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(btc(), btc())
	api.bars["BTCUSDT"] = dayBar(time.Date(2017, 8, 17, 0, 0, 0, 0, time.UTC), "4285.08")

	store := newTestStore(t)
	// Single worker makes the in-batch ordering deterministic.
	svc := NewService(api, store, zap.NewNop(), 1)

	bars := svc.FetchAll(context.Background(), api.instruments, time.Time{})
	require.Len(t, bars, 1)
	assert.Equal(t, 1, api.callCount("BTCUSDT"))
}

func TestRunMergesIntoLedger(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(btc(), eth())
	api.bars["BTCUSDT"] = dayBar(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), "3700")
	api.bars["ETHUSDT"] = dayBar(time.Date(2017, 8, 17, 0, 0, 0, 0, time.UTC), "300")

	store := newTestStore(t)
	svc := NewService(api, store, zap.NewNop(), 2)

	require.NoError(t, svc.Run(context.Background(), time.Time{}, 0))

	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, store.Fetched())

	// A second run skips everything.
	require.NoError(t, svc.Run(context.Background(), time.Time{}, 0))
	assert.Equal(t, 1, api.callCount("BTCUSDT"))
	assert.Equal(t, 1, api.callCount("ETHUSDT"))
}
