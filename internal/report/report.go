// Package report renders backtest results for people: a console summary and
// a CSV trade log.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/replay/internal/backtest"
)

// money renders v rounded to cents
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// percent renders v rounded to two places with a sign
func percent(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

// quantity keeps enough precision for fractional units
func quantity(v float64) string {
	return decimal.NewFromFloat(v).Round(8).String()
}

// WriteSummary prints a human readable summary of res
func WriteSummary(w io.Writer, res *backtest.Result) error {
	pw := &printer{w: w}

	pw.printf("=== Backtest: %s ===\n", res.Symbol)
	if res.ID != "" {
		pw.printf("Run:          %s\n", res.ID)
	}
	pw.printf("Strategy:     %s\n", res.Description)
	if !res.StartDate.IsZero() || !res.EndDate.IsZero() {
		pw.printf("Period:       %s to %s\n", dateOrDash(res.StartDate), dateOrDash(res.EndDate))
	}
	pw.printf("Capital:      %s\n", money(res.InitialCapital))
	pw.printf("Final value:  %s\n", money(res.FinalValue))
	pw.printf("P/L:          %s (%s)\n", money(res.TotalProfitLoss), percent(res.ProfitLossPercent))
	if res.BuyAndHoldPercent != nil {
		pw.printf("Buy & hold:   %s\n", percent(*res.BuyAndHoldPercent))
	} else {
		pw.printf("Buy & hold:   n/a\n")
	}
	pw.printf("Trades:       %d\n", res.TradeCount)
	if res.Stats.RoundTrips > 0 {
		pw.printf("Win rate:     %s of %d round trips\n",
			decimal.NewFromFloat(res.Stats.WinRate).StringFixed(1)+"%", res.Stats.RoundTrips)
		pw.printf("Max drawdown: %s\n", decimal.NewFromFloat(res.Stats.MaxDrawdown).StringFixed(2)+"%")
	}
	if res.Status != "" {
		pw.printf("Status:       %s\n", res.Status)
	}

	if len(res.Trades) > 0 {
		pw.printf("\n%-10s %-4s %14s %18s %14s  %s\n", "DATE", "SIDE", "PRICE", "QUANTITY", "CASH AFTER", "REASON")
		for _, t := range res.Trades {
			pw.printf("%-10s %-4s %14s %18s %14s  %s\n",
				t.Time.Format("2006-01-02"), t.Kind, money(t.Price), quantity(t.Quantity), money(t.CashAfter), t.Reason)
		}
	}
	return pw.err
}

// WriteTradesCSV writes the trade log of res to any io.Writer as CSV
func WriteTradesCSV(w io.Writer, res *backtest.Result) error {
	cw := csv.NewWriter(w)

	header := []string{
		"run_id",
		"symbol",
		"seq",
		"time", // RFC3339
		"kind",
		"price",
		"quantity",
		"cash_after",
		"units_after",
		"reason",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, t := range res.Trades {
		record := []string{
			res.ID,
			res.Symbol,
			strconv.Itoa(i + 1),
			t.Time.UTC().Format(time.RFC3339),
			string(t.Kind),
			money(t.Price),
			quantity(t.Quantity),
			money(t.CashAfter),
			quantity(t.UnitsAfter),
			t.Reason,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write trade %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteTradesCSVFile writes the trade log to a file at path
func WriteTradesCSVFile(path string, res *backtest.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return WriteTradesCSV(f, res)
}

func dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
