package postgres

import (
	"context"
	"fmt"
	"time"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/storage"
)

// BarStore implements storage.BarStore using PostgreSQL.
type BarStore struct {
	pool *Pool
}

// NewBarStore creates a new BarStore.
func NewBarStore(pool *Pool) *BarStore {
	return &BarStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars atomically. Fails entire batch on any duplicate.
func (s *BarStore) InsertBulk(ctx context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO bars (symbol, open_time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, b := range bars {
		_, err := tx.Exec(ctx, query,
			b.Symbol, b.OpenTime, b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert bar in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// ListSymbols returns all distinct symbols with stored bars, sorted ASC.
func (s *BarStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
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
		SELECT MIN(open_time), MAX(open_time), COUNT(*)
		FROM bars
		WHERE symbol = $1
	`

	var start, end *time.Time
	var rows int
	err := s.pool.QueryRow(ctx, query, symbol).Scan(&start, &end, &rows)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get time range: %w", err)
	}
	// MIN/MAX over zero rows yield NULL, not ErrNoRows.
	if rows == 0 || start == nil || end == nil {
		return nil, storage.ErrNotFound
	}

	return &storage.TimeRange{Start: *start, End: *end, Rows: rows}, nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by open_time ASC.
func (s *BarStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error) {
	query := `
		SELECT symbol, open_time, open, high, low, close, volume
		FROM bars
		WHERE symbol = $1
		ORDER BY open_time ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get bars by symbol: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarStore) GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error) {
	query := `
		SELECT symbol, open_time, open, high, low, close, volume
		FROM bars
		WHERE symbol = $1 AND open_time >= $2 AND open_time <= $3
		ORDER BY open_time ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("get bars by time range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanBars(rows pgxRows) ([]*domain.Bar, error) {
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
