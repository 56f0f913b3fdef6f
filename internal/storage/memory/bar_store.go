// Package memory provides in-memory storage implementations, used by tests
// and by the CSV-backed server mode where bars are loaded once at startup.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Bar // keyed by (symbol, open_time)
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]*domain.Bar),
	}
}

// barKey generates a unique key for a bar.
func barKey(symbol string, openTime time.Time) string {
	return fmt.Sprintf("%s|%d", symbol, openTime.UnixMilli())
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *BarStore) InsertBulk(_ context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(bars))

	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(b.Symbol, b.OpenTime)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, b := range bars {
		barCopy := *b
		s.data[barKey(b.Symbol, b.OpenTime)] = &barCopy
	}

	return nil
}

// ListSymbols returns all distinct symbols, sorted ASC.
func (s *BarStore) ListSymbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var symbols []string
	for _, b := range s.data {
		if _, ok := seen[b.Symbol]; !ok {
			seen[b.Symbol] = struct{}{}
			symbols = append(symbols, b.Symbol)
		}
	}

	sort.Strings(symbols)
	return symbols, nil
}

// GetTimeRange returns the min/max open_time and row count for a symbol.
func (s *BarStore) GetTimeRange(_ context.Context, symbol string) (*storage.TimeRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr := &storage.TimeRange{}
	for _, b := range s.data {
		if b.Symbol != symbol {
			continue
		}
		if tr.Rows == 0 || b.OpenTime.Before(tr.Start) {
			tr.Start = b.OpenTime
		}
		if tr.Rows == 0 || b.OpenTime.After(tr.End) {
			tr.End = b.OpenTime
		}
		tr.Rows++
	}

	if tr.Rows == 0 {
		return nil, storage.ErrNotFound
	}
	return tr, nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by open_time ASC.
func (s *BarStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for _, b := range s.data {
		if b.Symbol == symbol {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenTime.Before(result[j].OpenTime)
	})

	return result, nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarStore) GetByTimeRange(_ context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for _, b := range s.data {
		if b.Symbol == symbol && !b.OpenTime.Before(start) && !b.OpenTime.After(end) {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenTime.Before(result[j].OpenTime)
	})

	return result, nil
}
