// Package crossover simulates the moving average crossover strategy: go long
// when the short SMA crosses above the long SMA, go flat when it crosses below.
package crossover

import (
	"fmt"

	"github.com/newthinker/replay/internal/core"
	"github.com/newthinker/replay/internal/indicator"
	"github.com/newthinker/replay/internal/portfolio"
	"github.com/newthinker/replay/internal/strategy"
)

// Run replays series under cfg starting with capital in cash.
// Every trade row counts towards TradeCount.
func Run(cfg strategy.Crossover, series core.PriceSeries, capital float64) strategy.Outcome {
	if len(series) == 0 || len(series) < cfg.LongWindow {
		out := strategy.Idle(capital, fmt.Sprintf(
			"Insufficient data: %d price points available, %d required for the %d-period moving average.",
			len(series), cfg.LongWindow, cfg.LongWindow))
		out.Insufficient = true
		return out
	}

	prices := series.Prices()
	shortMA := indicator.SMA(prices, cfg.ShortWindow)
	longMA := indicator.SMA(prices, cfg.LongWindow)

	ledger := portfolio.NewLedger(capital)

	// Index 0 has no previous sample to compare against
	for i := 1; i < len(series); i++ {
		if !indicator.Defined(shortMA[i-1], longMA[i-1], shortMA[i], longMA[i]) {
			continue
		}
		prevShort, prevLong := shortMA[i-1].V, longMA[i-1].V
		currShort, currLong := shortMA[i].V, longMA[i].V

		switch {
		case !ledger.IsOpen() && prevShort <= prevLong && currShort > currLong:
			ledger.Buy(series[i].Time, prices[i], fmt.Sprintf(
				"Golden Cross: MA%d (%.2f) crossed above MA%d (%.2f)",
				cfg.ShortWindow, currShort, cfg.LongWindow, currLong))
		case ledger.IsOpen() && prevShort >= prevLong && currShort < currLong:
			ledger.Sell(series[i].Time, prices[i], fmt.Sprintf(
				"Death Cross: MA%d (%.2f) crossed below MA%d (%.2f)",
				cfg.ShortWindow, currShort, cfg.LongWindow, currLong))
		}
	}

	last := series[len(series)-1]
	ledger.Close(last.Time, last.Price)

	trades := ledger.Trades()
	return strategy.Outcome{
		Position:   ledger.Position(),
		Trades:     trades,
		TradeCount: len(trades),
		FinalValue: ledger.Value(last.Price),
	}
}
