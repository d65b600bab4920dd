// Package ingest discovers the exchange's instrument universe and caches
// the earliest daily bar for each instrument it has not seen before.
package ingest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/coinsim/cache"
	"github.com/rustyeddy/coinsim/market"
)

// ExchangeAPI is the slice of the REST client the service depends on.
type ExchangeAPI interface {
	ExchangeInfo(ctx context.Context) ([]market.Instrument, error)
	EarliestDailyBar(ctx context.Context, symbol string, start time.Time) (market.Bar, bool, error)
}

// Service fetches earliest bars for not-yet-seen instruments and merges
// them into the cache.
type Service struct {
	api     ExchangeAPI
	store   *cache.Store
	log     *zap.Logger
	workers int
}

// NewService creates an ingestion service. workers <= 0 selects a
// CPU-based default.
func NewService(api ExchangeAPI, store *cache.Store, log *zap.Logger, workers int) *Service {
	if workers <= 0 {
		workers = max(4, runtime.NumCPU())
	}
	return &Service{api: api, store: store, log: log, workers: workers}
}

// Symbols returns the instrument universe in exchange-reported order.
// limit > 0 truncates to the first limit entries.
func (s *Service) Symbols(ctx context.Context, limit int) ([]market.Instrument, error) {
	instruments, err := s.api.ExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(instruments) {
		instruments = instruments[:limit]
	}
	return instruments, nil
}

// FetchAll fans out one earliest-bar fetch per instrument not already in
// the fetched set and returns the collected bars once every worker has
// finished. Result order is completion order; the cache merge imposes
// date order.
//
// A failed fetch is logged and yields no bar and no fetched mark, so the
// instrument is retried on the next run. A successful fetch marks its
// symbol fetched immediately, so a duplicate later in the same batch is
// skipped.
func (s *Service) FetchAll(ctx context.Context, instruments []market.Instrument, start time.Time) []cache.EarliestBar {
	jobs := make(chan market.Instrument)

	var mu sync.Mutex
	var bars []cache.EarliestBar

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range jobs {
				bar, ok := s.fetchOne(ctx, inst, start)
				if !ok {
					continue
				}
				mu.Lock()
				bars = append(bars, bar)
				mu.Unlock()
			}
		}()
	}

	for _, inst := range instruments {
		jobs <- inst
	}
	close(jobs)
	wg.Wait()

	return bars
}

// fetchOne fetches the earliest daily bar for one instrument. The
// membership check runs here, inside the worker, so duplicates within a
// batch see the marks left by earlier successes.
func (s *Service) fetchOne(ctx context.Context, inst market.Instrument, start time.Time) (cache.EarliestBar, bool) {
	if s.store.Contains(inst.Symbol) {
		s.log.Info("skipping symbol, already fetched", zap.String("symbol", inst.Symbol))
		return cache.EarliestBar{}, false
	}

	s.log.Info("fetching earliest bar", zap.String("symbol", inst.Symbol))

	bar, ok, err := s.api.EarliestDailyBar(ctx, inst.Symbol, start)
	if err != nil {
		s.log.Error("could not fetch earliest bar",
			zap.String("symbol", inst.Symbol),
			zap.Error(err))
		return cache.EarliestBar{}, false
	}
	if !ok {
		s.log.Info("no klines for symbol", zap.String("symbol", inst.Symbol))
		return cache.EarliestBar{}, false
	}

	s.store.MarkFetched(inst.Symbol)

	return cache.EarliestBar{
		Symbol: inst.Display(),
		Date:   bar.Time,
		Open:   bar.Open,
		High:   bar.High,
		Low:    bar.Low,
		Close:  bar.Close,
	}, true
}

// Run performs one full ingestion pass: enumerate instruments, fetch
// earliest bars concurrently, merge into the cache.
func (s *Service) Run(ctx context.Context, start time.Time, limit int) error {
	instruments, err := s.Symbols(ctx, limit)
	if err != nil {
		return err
	}

	bars := s.FetchAll(ctx, instruments, start)
	if err := s.store.MergeAndPersist(bars); err != nil {
		return err
	}

	s.log.Info("ingestion pass complete",
		zap.Int("universe", len(instruments)),
		zap.Int("fetched", len(bars)))
	return nil
}
