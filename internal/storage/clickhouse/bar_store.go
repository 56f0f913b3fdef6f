package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. MergeTree does not enforce uniqueness at
// insert time, so duplicates are detected with explicit checks before the
// batch is sent.
func (s *BarStore) InsertBulk(ctx context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		symbol   string
		openTime int64
	}
	seen := make(map[key]struct{})
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{b.Symbol, b.OpenTime.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, b := range bars {
		exists, err := s.exists(ctx, b.Symbol, b.OpenTime)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (symbol, open_time, open, high, low, close, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, b.OpenTime, b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// ListSymbols returns all distinct symbols with stored bars, sorted ASC.
func (s *BarStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbols: %w", err)
	}

	return symbols, nil
}

// GetTimeRange returns the min/max open_time and row count for a symbol.
func (s *BarStore) GetTimeRange(ctx context.Context, symbol string) (*storage.TimeRange, error) {
	query := `
		SELECT min(open_time), max(open_time), count(*)
		FROM bars
		WHERE symbol = ?
	`

	var start, end time.Time
	var count uint64
	if err := s.conn.QueryRow(ctx, query, symbol).Scan(&start, &end, &count); err != nil {
		return nil, fmt.Errorf("get time range: %w", err)
	}
	if count == 0 {
		return nil, storage.ErrNotFound
	}

	return &storage.TimeRange{Start: start.UTC(), End: end.UTC(), Rows: int(count)}, nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by open_time ASC.
func (s *BarStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error) {
	query := `
		SELECT symbol, open_time, open, high, low, close, volume
		FROM bars
		WHERE symbol = ?
		ORDER BY open_time ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarStore) GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error) {
	query := `
		SELECT symbol, open_time, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND open_time >= ? AND open_time <= ?
		ORDER BY open_time ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// exists checks if a bar with the given key exists.
func (s *BarStore) exists(ctx context.Context, symbol string, openTime time.Time) (bool, error) {
	query := `SELECT count(*) FROM bars WHERE symbol = ? AND open_time = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, symbol, openTime).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanBars(rows driver.Rows) ([]*domain.Bar, error) {
	var bars []*domain.Bar
	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(&b.Symbol, &b.OpenTime, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.OpenTime = b.OpenTime.UTC()
		bars = append(bars, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}

	return bars, nil
}
