// Package dataset reads and writes OHLCV candle files in CSV form. Files
// carry one symbol each; rows are expected in chronological order but are
// re-sorted on read to be safe.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"crypto-backtest-lab/internal/domain"
)

// timeLayout is the primary timestamp format of bar files.
const timeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"symbol", "open_time", "open", "high", "low", "close", "volume"}

// ReadBars decodes bars from r. The first row must be the header. Timestamps
// are parsed with the "2006-01-02 15:04:05" layout, falling back to RFC 3339
// for files produced by other tools.
func ReadBars(r io.Reader) ([]*domain.Bar, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected csv header: %v", header)
	}

	var bars []*domain.Bar
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}

		bar, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].OpenTime.Before(bars[j].OpenTime)
	})

	return bars, nil
}

// ReadBarsFile decodes bars from the file at path.
func ReadBarsFile(path string) ([]*domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars file: %w", err)
	}
	defer f.Close()

	return ReadBars(f)
}

// WriteBars encodes bars to w with the standard header.
func WriteBars(w io.Writer, bars []*domain.Bar) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, b := range bars {
		record := []string{
			b.Symbol,
			b.OpenTime.UTC().Format(timeLayout),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteBarsFile encodes bars into the file at path, replacing its contents.
func WriteBarsFile(path string, bars []*domain.Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bars file: %w", err)
	}
	if err := WriteBars(f, bars); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Window filters bars to [start, end] (inclusive), preserving order.
func Window(bars []*domain.Bar, start, end time.Time) []*domain.Bar {
	var out []*domain.Bar
	for _, b := range bars {
		if !b.OpenTime.Before(start) && !b.OpenTime.After(end) {
			out = append(out, b)
		}
	}
	return out
}

func parseRecord(record []string) (*domain.Bar, error) {
	if len(record) != len(csvHeader) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(csvHeader), len(record))
	}

	openTime, err := parseTime(record[1])
	if err != nil {
		return nil, err
	}

	fields := make([]float64, 5)
	for i, raw := range record[2:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", csvHeader[i+2], raw, err)
		}
		fields[i] = v
	}

	return &domain.Bar{
		Symbol:   record[0],
		OpenTime: openTime,
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
	}, nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.ParseInLocation(timeLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse open_time %q: %w", raw, err)
	}
	return t.UTC(), nil
}
