// Package cache persists the incremental ingestion state: which symbols
// have already been fetched, and the ledger of earliest daily bars.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EarliestBar is the first daily bar found for an instrument at or after
// the configured epoch. Written once per instrument, never mutated.
type EarliestBar struct {
	Symbol string          `json:"symbol"` // display form "BASE/QUOTE"
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
}

// Store is the on-disk kline cache: a fetched-symbols file (JSON array
// of raw symbols, first-seen order) and a symbols ledger (JSON array of
// EarliestBar, ascending by date).
//
// One Store assumes a single writer per run; concurrent ingestion passes
// against the same files must be serialized by the caller.
type Store struct {
	fetchedPath string
	ledgerPath  string
	log         *zap.Logger

	mu      sync.Mutex
	fetched map[string]struct{}
	order   []string // first-seen order, persisted as-is
}

// NewStore creates a store over the given file paths and loads the
// persisted fetched set. A missing or empty file is a first run, not an
// error.
func NewStore(fetchedPath, ledgerPath string, log *zap.Logger) (*Store, error) {
	s := &Store{
		fetchedPath: fetchedPath,
		ledgerPath:  ledgerPath,
		log:         log,
		fetched:     make(map[string]struct{}),
	}

	var symbols []string
	if err := readJSONFile(fetchedPath, &symbols); err != nil {
		return nil, fmt.Errorf("load fetched symbols: %w", err)
	}
	for _, sym := range symbols {
		s.markLocked(sym)
	}
	return s, nil
}

// Contains reports whether symbol was already ingested.
func (s *Store) Contains(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.fetched[symbol]
	return ok
}

// MarkFetched adds symbol to the fetched set. Idempotent; first-seen
// order is preserved.
func (s *Store) MarkFetched(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markLocked(symbol)
}

func (s *Store) markLocked(symbol string) {
	if _, ok := s.fetched[symbol]; ok {
		return
	}
	s.fetched[symbol] = struct{}{}
	s.order = append(s.order, symbol)
}

// Fetched returns the fetched symbols in first-seen order.
func (s *Store) Fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Tail returns the n most recently ingested symbols (all of them when
// n <= 0 or n exceeds the set size).
func (s *Store) Tail(n int) []string {
	all := s.Fetched()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// MergeAndPersist merges newBars into the ledger and rewrites both cache
// files. The resulting ledger is sorted ascending by date and contains
// no symbol+date duplicates, so replaying the same batch is a no-op.
func (s *Store) MergeAndPersist(newBars []EarliestBar) error {
	var existing []EarliestBar
	if err := readJSONFile(s.ledgerPath, &existing); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	merged := append(existing, newBars...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})
	merged = dedupe(merged)

	if err := writeJSONFile(s.ledgerPath, merged); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := writeJSONFile(s.fetchedPath, s.Fetched()); err != nil {
		return fmt.Errorf("write fetched symbols: %w", err)
	}

	s.log.Info("cache merged",
		zap.Int("new", len(newBars)),
		zap.Int("total", len(merged)))
	return nil
}

// dedupe drops repeated symbol+date entries, keeping the first. Input
// must already be sorted; output stays sorted.
func dedupe(bars []EarliestBar) []EarliestBar {
	seen := make(map[string]struct{}, len(bars))
	out := bars[:0]
	for _, b := range bars {
		key := b.Symbol + "@" + b.Date.UTC().Format(time.RFC3339)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	return out
}

// readJSONFile decodes path into out. A missing or empty file leaves
// out untouched: empty prior state, never an error.
func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// writeJSONFile writes v to path via a temp file and rename so readers
// never observe a partial file.
func writeJSONFile(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
