package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xyproto/unzip"
	"go.uber.org/zap"

	"github.com/rustyeddy/coinsim/cache"
	"github.com/rustyeddy/coinsim/market"
)

// DumpBaseURL serves Binance's public historical data archives.
const DumpBaseURL = "https://data.binance.vision"

// Importer warms the cache from monthly daily-kline zip dumps instead of
// the rate-limited klines endpoint. Useful for the first ingestion pass
// over a large universe.
type Importer struct {
	baseURL    string
	dir        string // where downloaded zips and extracted CSVs live
	store      *cache.Store
	httpClient *http.Client
	log        *zap.Logger
	workers    int
}

// NewImporter creates a dump importer. An empty baseURL selects the
// public archive host; workers <= 0 selects a small default.
func NewImporter(baseURL, dir string, store *cache.Store, log *zap.Logger, workers int) *Importer {
	if baseURL == "" {
		baseURL = DumpBaseURL
	}
	if workers <= 0 {
		workers = 4
	}
	return &Importer{
		baseURL:    baseURL,
		dir:        dir,
		store:      store,
		httpClient: &http.Client{Timeout: 45 * time.Second},
		log:        log,
		workers:    workers,
	}
}

// Import downloads the daily-kline dump for the given month for every
// instrument not already in the fetched set, takes the first row of each
// as that instrument's earliest bar, and merges the results into the
// cache. A 404 means the instrument has no dump for that month and is
// skipped without a fetched mark.
func (imp *Importer) Import(ctx context.Context, instruments []market.Instrument, month time.Time) error {
	jobs := make(chan market.Instrument)

	var mu sync.Mutex
	var bars []cache.EarliestBar

	var wg sync.WaitGroup
	for i := 0; i < imp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range jobs {
				bar, ok := imp.importOne(ctx, inst, month)
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

	if err := imp.store.MergeAndPersist(bars); err != nil {
		return err
	}

	imp.log.Info("dump import complete",
		zap.String("month", month.Format("2006-01")),
		zap.Int("imported", len(bars)))
	return nil
}

func (imp *Importer) importOne(ctx context.Context, inst market.Instrument, month time.Time) (cache.EarliestBar, bool) {
	if imp.store.Contains(inst.Symbol) {
		imp.log.Info("skipping symbol, already fetched", zap.String("symbol", inst.Symbol))
		return cache.EarliestBar{}, false
	}

	name := fmt.Sprintf("%s-1d-%s", inst.Symbol, month.Format("2006-01"))
	url := fmt.Sprintf("%s/data/spot/monthly/klines/%s/1d/%s.zip", imp.baseURL, inst.Symbol, name)
	zipPath := filepath.Join(imp.dir, name+".zip")

	status, err := imp.downloadIfMissing(ctx, url, zipPath)
	if err != nil {
		imp.log.Error("dump download failed",
			zap.String("symbol", inst.Symbol),
			zap.Error(err))
		return cache.EarliestBar{}, false
	}
	if status == http.StatusNotFound {
		imp.log.Info("no dump for symbol in month",
			zap.String("symbol", inst.Symbol),
			zap.String("month", month.Format("2006-01")))
		return cache.EarliestBar{}, false
	}

	extractDir := filepath.Join(imp.dir, name)
	if err := unzip.Extract(zipPath, extractDir); err != nil {
		imp.log.Error("dump extract failed",
			zap.String("symbol", inst.Symbol),
			zap.Error(err))
		return cache.EarliestBar{}, false
	}

	bar, err := firstBarFromCSV(filepath.Join(extractDir, name+".csv"))
	if err != nil {
		imp.log.Error("dump parse failed",
			zap.String("symbol", inst.Symbol),
			zap.Error(err))
		return cache.EarliestBar{}, false
	}

	imp.store.MarkFetched(inst.Symbol)

	return cache.EarliestBar{
		Symbol: inst.Display(),
		Date:   bar.Time,
		Open:   bar.Open,
		High:   bar.High,
		Low:    bar.Low,
		Close:  bar.Close,
	}, true
}

// downloadIfMissing fetches url into dst unless dst already exists.
// Downloads go through a .part temp file so an interrupted transfer
// never leaves a truncated zip behind.
func (imp *Importer) downloadIfMissing(ctx context.Context, url, dst string) (status int, err error) {
	if st, err := os.Stat(dst); err == nil && st.Size() > 0 {
		return http.StatusOK, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := imp.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return http.StatusNotFound, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("http status %d", resp.StatusCode)
	}

	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return resp.StatusCode, err
	}
	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(tmp)
		return resp.StatusCode, copyErr
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return resp.StatusCode, closeErr
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

// firstBarFromCSV reads the first kline row of an extracted dump CSV.
// Row layout: openTime(ms),open,high,low,close,volume,...
func firstBarFromCSV(path string) (market.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return market.Bar{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	row, err := r.Read()
	if err != nil {
		return market.Bar{}, fmt.Errorf("read first row: %w", err)
	}
	// Newer dumps carry a header row.
	if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "open_time") {
		row, err = r.Read()
		if err != nil {
			return market.Bar{}, fmt.Errorf("read first data row: %w", err)
		}
	}
	if len(row) < 6 {
		return market.Bar{}, fmt.Errorf("bad row (need at least 6 cols): %v", row)
	}

	openTime, err := decimal.NewFromString(strings.TrimSpace(row[0]))
	if err != nil {
		return market.Bar{}, fmt.Errorf("bad open time %q: %w", row[0], err)
	}
	millis := openTime.IntPart()
	// Dumps from 2025 onwards report microseconds.
	if millis > 1e14 {
		millis /= 1000
	}

	prices := make([]decimal.Decimal, 5)
	for i := 0; i < 5; i++ {
		d, err := decimal.NewFromString(strings.TrimSpace(row[i+1]))
		if err != nil {
			return market.Bar{}, fmt.Errorf("bad price %q: %w", row[i+1], err)
		}
		prices[i] = d
	}

	return market.Bar{
		Time:   time.UnixMilli(millis).UTC(),
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: prices[4],
	}, nil
}
