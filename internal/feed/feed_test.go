package feed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/replay/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestReadCSV(t *testing.T) {
	in := "date,open,close\n2024-01-02,1,101.5\n2024-01-01,1,100\n2024-01-03,1,99.25\n"

	series, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, 101.5, series[0].Price)
	assert.Equal(t, date("2024-01-02"), series[0].Time)
}

func TestReadCSV_Formats(t *testing.T) {
	in := "timestamp,price\n2024-01-01T00:00:00Z,1\n2024-01-02 09:30:00,2\n1704240000000,3\n"

	series, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, time.UnixMilli(1704240000000).UTC(), series[2].Time)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing price column", "date,volume\n2024-01-01,5\n"},
		{"bad price", "date,close\n2024-01-01,abc\n"},
		{"bad date", "date,close\nyesterday,5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, core.ErrInvalidSeries)
		})
	}
}

func TestReadCSV_Empty(t *testing.T) {
	series, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestCSVProvider_FetchHistory(t *testing.T) {
	dir := t.TempDir()
	content := "date,close\n2024-01-03,3\n2024-01-01,1\n2024-01-02,2\n2024-01-04,4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL.csv"), []byte(content), 0o644))

	p := NewCSV(dir)
	series, err := p.FetchHistory(context.Background(), "aapl", date("2024-01-02"), date("2024-01-03"))
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, 2.0, series[0].Price)
	assert.Equal(t, 3.0, series[1].Price)
	assert.NoError(t, series.Validate())
}

func TestCSVProvider_MissingFile(t *testing.T) {
	_, err := NewCSV(t.TempDir()).FetchHistory(context.Background(), "NOPE", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestProvider_RejectsPathSymbols(t *testing.T) {
	for _, sym := range []string{"", "../etc/passwd", "a/b"} {
		_, err := NewCSV(t.TempDir()).FetchHistory(context.Background(), sym, time.Time{}, time.Time{})
		assert.ErrorIs(t, err, core.ErrConfigInvalid, "symbol %q", sym)
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	series := core.PriceSeries{
		{Time: date("2024-01-01"), Price: 10.5},
		{Time: date("2024-01-02"), Price: 11},
	}
	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, series))

	got, err := ReadCSV(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, series, got)
}

func TestParquetProvider_FetchHistory(t *testing.T) {
	dir := t.TempDir()
	series := core.PriceSeries{
		{Time: date("2024-01-02"), Price: 2},
		{Time: date("2024-01-01"), Price: 1},
		{Time: date("2024-01-03"), Price: 3},
	}
	require.NoError(t, WriteParquet(filepath.Join(dir, "BTC.parquet"), series))

	got, err := NewParquet(dir).FetchHistory(context.Background(), "btc", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{1, 2, 3}, got.Prices())
	assert.True(t, got[0].Time.Equal(date("2024-01-01")))
}

func TestParquetProvider_MissingFile(t *testing.T) {
	_, err := NewParquet(t.TempDir()).FetchHistory(context.Background(), "BTC", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestConvert_CSVToParquetAndBack(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	series := core.PriceSeries{
		{Time: date("2024-01-01"), Price: 100.1},
		{Time: date("2024-01-02"), Price: 99.9},
		{Time: date("2024-01-03"), Price: 101},
	}
	csvFeed, pqFeed := NewCSV(dir), NewParquet(dir)
	require.NoError(t, csvFeed.Store(ctx, "eth", series))

	n, err := Convert(ctx, csvFeed, pqFeed, "ETH")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := pqFeed.FetchHistory(ctx, "ETH", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, series.Prices(), got.Prices())

	// Overwrites the original csv from the parquet copy
	n, err = Convert(ctx, pqFeed, csvFeed, "ETH")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	back, err := csvFeed.FetchHistory(ctx, "ETH", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, series.Prices(), back.Prices())
}

func TestConvert_Errors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := Convert(ctx, NewCSV(dir), NewParquet(dir), "BTC")
	assert.ErrorIs(t, err, core.ErrNoData)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "BAD.csv"), []byte("date,close\n2024-01-01,-5\n"), 0o644))
	_, err = Convert(ctx, NewCSV(dir), NewParquet(dir), "BAD")
	assert.ErrorIs(t, err, core.ErrInvalidSeries)

	assert.ErrorIs(t, NewParquet(dir).Store(ctx, "../x", nil), core.ErrConfigInvalid)
}

func TestDefaultRegistry(t *testing.T) {
	r := Default(t.TempDir())
	for _, name := range []string{"csv", "parquet"} {
		p, ok := r.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, name, p.Name())
	}
	_, ok := r.Get("yahoo")
	assert.False(t, ok)
}
