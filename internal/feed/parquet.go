package feed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/newthinker/replay/internal/core"
)

// Compile-time interface checks.
var _ Sink = (*ParquetProvider)(nil)
var _ Sink = (*CSVProvider)(nil)

// PriceRecord is the Parquet schema for price samples
type PriceRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Close     float64 `parquet:"close"`
}

// ParquetProvider reads <dir>/<SYMBOL>.parquet files of PriceRecord rows
type ParquetProvider struct {
	dir string
}

// NewParquet creates a Parquet provider rooted at dir
func NewParquet(dir string) *ParquetProvider {
	return &ParquetProvider{dir: dir}
}

func (p *ParquetProvider) Name() string {
	return "parquet"
}

func (p *ParquetProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	name, err := fileName(symbol, ".parquet")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(p.dir, name)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no price file for %s", symbol))
	}

	rows, err := parquet.ReadFile[PriceRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	series := make(core.PriceSeries, len(rows))
	for i, r := range rows {
		series[i] = core.PricePoint{Time: time.UnixMilli(r.Timestamp).UTC(), Price: r.Close}
	}
	return normalize(series, start, end), nil
}

// Store writes series to <dir>/<SYMBOL>.parquet, replacing any existing file
func (p *ParquetProvider) Store(ctx context.Context, symbol string, series core.PriceSeries) error {
	name, err := fileName(symbol, ".parquet")
	if err != nil {
		return err
	}
	if err := WriteParquet(filepath.Join(p.dir, name), series); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// WriteParquet stores series at path in the PriceRecord schema
func WriteParquet(path string, series core.PriceSeries) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	rows := make([]PriceRecord, len(series))
	for i, p := range series {
		rows[i] = PriceRecord{Timestamp: p.Time.UnixMilli(), Close: p.Price}
	}
	return parquet.WriteFile(path, rows)
}
