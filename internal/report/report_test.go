package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/replay/internal/backtest"
	"github.com/newthinker/replay/internal/core"
	"github.com/newthinker/replay/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thresholdResult(t *testing.T) *backtest.Result {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := []float64{105, 101, 99, 115, 121, 110}
	series := make(core.PriceSeries, len(prices))
	for i, p := range prices {
		series[i] = core.PricePoint{Time: base.AddDate(0, 0, i), Price: p}
	}
	res, err := backtest.Simulate(backtest.Request{
		Symbol: "ETH",
		Strategy: strategy.Threshold{
			Signal:     core.ActionBuy,
			EntryPrice: strategy.Price(100),
			ExitPrice:  strategy.Price(120),
		},
		InitialCapital: 1000,
		Start:          base,
		End:            base.AddDate(0, 0, 5),
	}, series)
	require.NoError(t, err)
	res.ID = "run-42"
	return res
}

func TestMoneyAndPercent(t *testing.T) {
	assert.Equal(t, "1222.22", money(1000.0/99*121))
	assert.Equal(t, "0.10", money(0.1))
	assert.Equal(t, "+50.00%", percent(50))
	assert.Equal(t, "-4.00%", percent(-4))
	assert.Equal(t, "0.00%", percent(0))
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, thresholdResult(t)))

	out := buf.String()
	assert.Contains(t, out, "=== Backtest: ETH ===")
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "Final value:  1222.22")
	assert.Contains(t, out, "Buy & hold:   +4.76%")
	assert.Contains(t, out, "Trades:       1")
	assert.Contains(t, out, "2024-01-03")
	assert.Contains(t, out, "reached exit target")
}

func TestWriteSummary_StatusWithoutTrades(t *testing.T) {
	res := &backtest.Result{
		Symbol:         "BTC",
		Description:    "MA Crossover (10/30)",
		InitialCapital: 1000,
		FinalValue:     1000,
		Status:         "Insufficient data: 10 price points available, 30 required for the 30-period moving average.",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, res))
	assert.Contains(t, buf.String(), "Status:       Insufficient data")
	assert.Contains(t, buf.String(), "Buy & hold:   n/a")
	assert.NotContains(t, buf.String(), "QUANTITY")
}

func TestWriteTradesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, thresholdResult(t)))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "run_id", rows[0][0])
	assert.Equal(t, []string{"run-42", "ETH", "1", "2024-01-03T00:00:00Z", "buy", "99.00"}, rows[1][:6])
	assert.Equal(t, "sell", rows[2][4])
	assert.Equal(t, "1222.22", rows[2][7])
}

func TestWriteTradesCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, WriteTradesCSVFile(path, thresholdResult(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}
