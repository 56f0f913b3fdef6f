package storage

import (
	"context"
	"time"

	"crypto-backtest-lab/internal/domain"
)

// TimeRange describes the extent of stored history for one symbol.
type TimeRange struct {
	Start time.Time
	End   time.Time
	Rows  int
}

// BarStore provides access to OHLCV candle storage.
type BarStore interface {
	// InsertBulk adds multiple bars atomically. Returns ErrDuplicateKey if
	// any (symbol, open_time) already exists. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// ListSymbols returns all distinct symbols with stored bars, sorted ASC.
	ListSymbols(ctx context.Context) ([]string, error)

	// GetTimeRange returns the min/max open_time and row count for a symbol.
	// Returns ErrNotFound when the symbol has no bars.
	GetTimeRange(ctx context.Context, symbol string) (*TimeRange, error)

	// GetBySymbol retrieves all bars for a symbol, ordered by open_time ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive),
	// ordered by open_time ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error)
}
