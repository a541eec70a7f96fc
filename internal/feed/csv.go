package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/replay/internal/core"
)

// CSVProvider reads <dir>/<SYMBOL>.csv files with a header row naming a
// date column (date, time or timestamp) and a price column (close or price).
type CSVProvider struct {
	dir string
}

// NewCSV creates a CSV provider rooted at dir
func NewCSV(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

func (p *CSVProvider) Name() string {
	return "csv"
}

func (p *CSVProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	name, err := fileName(symbol, ".csv")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(p.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no price file for %s", symbol))
		}
		return nil, fmt.Errorf("opening price file: %w", err)
	}
	defer f.Close()

	series, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return normalize(series, start, end), nil
}

// Store writes series to <dir>/<SYMBOL>.csv, replacing any existing file
func (p *CSVProvider) Store(ctx context.Context, symbol string, series core.PriceSeries) error {
	name, err := fileName(symbol, ".csv")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(p.dir, name))
	if err != nil {
		return fmt.Errorf("creating price file: %w", err)
	}
	if err := WriteCSV(f, series); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Close()
}

// ReadCSV parses a price series from CSV
func ReadCSV(r io.Reader) (core.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return core.PriceSeries{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	timeCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date", "time", "timestamp":
			timeCol = i
		case "close", "price":
			priceCol = i
		}
	}
	if timeCol < 0 || priceCol < 0 {
		return nil, core.WrapError(core.ErrInvalidSeries,
			fmt.Errorf("header must name a date and a close column, got %v", header))
	}

	var series core.PriceSeries
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseTime(rec[timeCol])
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidSeries, fmt.Errorf("line %d: %w", line, err))
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[priceCol]), 64)
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidSeries, fmt.Errorf("line %d: bad price: %w", line, err))
		}
		series = append(series, core.PricePoint{Time: ts, Price: price})
	}
	return series, nil
}

// WriteCSV writes series with a date,close header
func WriteCSV(w io.Writer, series core.PriceSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "close"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range series {
		row := []string{p.Time.UTC().Format(time.RFC3339), strconv.FormatFloat(p.Price, 'f', -1, 64)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Unix milliseconds
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
