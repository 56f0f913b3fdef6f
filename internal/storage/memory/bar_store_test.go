package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/storage"
)

func ts(minute int) time.Time {
	return time.Date(2024, 1, 1, 0, minute, 0, 0, time.UTC)
}

func TestBarStore_InsertBulkAndGet(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bars := []*domain.Bar{
		{Symbol: "BTC/USD", OpenTime: ts(0), Open: 100, High: 105, Low: 99, Close: 104, Volume: 10},
		{Symbol: "BTC/USD", OpenTime: ts(1), Open: 104, High: 106, Low: 103, Close: 105, Volume: 12},
	}

	err := store.InsertBulk(ctx, bars)
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetBySymbol(ctx, "BTC/USD")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}

	if len(result) != 2 {
		t.Errorf("Expected 2 bars, got %d", len(result))
	}
	if !result[0].OpenTime.Before(result[1].OpenTime) {
		t.Errorf("Expected bars ordered by open_time ASC")
	}
}

func TestBarStore_DuplicateKey(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bars := []*domain.Bar{
		{Symbol: "BTC/USD", OpenTime: ts(0), Close: 100},
	}

	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	// Insert duplicate
	err := store.InsertBulk(ctx, bars)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestBarStore_IntraBatchDuplicate(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bars := []*domain.Bar{
		{Symbol: "BTC/USD", OpenTime: ts(0), Close: 100},
		{Symbol: "BTC/USD", OpenTime: ts(0), Close: 101}, // duplicate key
	}

	err := store.InsertBulk(ctx, bars)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	// Verify nothing was inserted
	result, _ := store.GetBySymbol(ctx, "BTC/USD")
	if len(result) != 0 {
		t.Errorf("Expected 0 bars (rollback), got %d", len(result))
	}
}

func TestBarStore_ListSymbols(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bars := []*domain.Bar{
		{Symbol: "ETH/USD", OpenTime: ts(0), Close: 2000},
		{Symbol: "BTC/USD", OpenTime: ts(0), Close: 100},
		{Symbol: "BTC/USD", OpenTime: ts(1), Close: 101},
	}

	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	symbols, err := store.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}

	if len(symbols) != 2 || symbols[0] != "BTC/USD" || symbols[1] != "ETH/USD" {
		t.Errorf("Expected [BTC/USD ETH/USD], got %v", symbols)
	}
}

func TestBarStore_GetTimeRange(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bars := []*domain.Bar{
		{Symbol: "BTC/USD", OpenTime: ts(5), Close: 100},
		{Symbol: "BTC/USD", OpenTime: ts(1), Close: 101},
		{Symbol: "BTC/USD", OpenTime: ts(3), Close: 102},
	}

	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	tr, err := store.GetTimeRange(ctx, "BTC/USD")
	if err != nil {
		t.Fatalf("GetTimeRange failed: %v", err)
	}

	if !tr.Start.Equal(ts(1)) || !tr.End.Equal(ts(5)) || tr.Rows != 3 {
		t.Errorf("Expected range [%v, %v] rows=3, got [%v, %v] rows=%d",
			ts(1), ts(5), tr.Start, tr.End, tr.Rows)
	}

	_, err = store.GetTimeRange(ctx, "UNKNOWN")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown symbol, got %v", err)
	}
}

func TestBarStore_GetByTimeRange(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bars := []*domain.Bar{
		{Symbol: "BTC/USD", OpenTime: ts(1), Close: 100},
		{Symbol: "BTC/USD", OpenTime: ts(2), Close: 101},
		{Symbol: "BTC/USD", OpenTime: ts(3), Close: 102},
		{Symbol: "ETH/USD", OpenTime: ts(2), Close: 2000}, // different symbol
	}

	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	// Range is inclusive on both ends.
	result, err := store.GetByTimeRange(ctx, "BTC/USD", ts(1), ts(2))
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}

	if len(result) != 2 {
		t.Errorf("Expected 2 bars in [1m, 2m], got %d", len(result))
	}
}

func TestBarStore_InsertBulkInvalidInput(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Bar{{Symbol: "", OpenTime: ts(0)}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty symbol, got %v", err)
	}
}
