package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crypto-backtest-lab/internal/domain"
)

const filenameLayout = "20060102_150405"

// Writer persists rendered artifacts into an output directory with
// timestamped filenames. The clock is injectable for deterministic tests.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// WithClock replaces the timestamp source used for filenames and the
// report header.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// WriteTrades writes the trades CSV and returns the path of the written
// file. When there are no trades nothing is written and the returned path
// is empty.
func (w *Writer) WriteTrades(trades []domain.Trade) (string, error) {
	if len(trades) == 0 {
		return "", nil
	}
	name := fmt.Sprintf("trades_%s.csv", w.now().Format(filenameLayout))
	path, err := w.writeFile(name, RenderTradesCSV(trades))
	if err != nil {
		return "", fmt.Errorf("write trades csv: %w", err)
	}
	return path, nil
}

// WriteMetrics writes the metrics text report and returns its path.
func (w *Writer) WriteMetrics(snap *domain.MetricsSnapshot, trades []domain.Trade) (string, error) {
	ts := w.now()
	name := fmt.Sprintf("trading_metrics_%s.txt", ts.Format(filenameLayout))
	path, err := w.writeFile(name, RenderMetricsReport(snap, trades, ts))
	if err != nil {
		return "", fmt.Errorf("write metrics report: %w", err)
	}
	return path, nil
}

func (w *Writer) writeFile(name, content string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
