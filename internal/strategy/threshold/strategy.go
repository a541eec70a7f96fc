// Package threshold simulates entering at or below a target entry price and
// exiting at or above a target exit price, gated on an upstream buy signal.
package threshold

import (
	"fmt"

	"github.com/newthinker/replay/internal/core"
	"github.com/newthinker/replay/internal/portfolio"
	"github.com/newthinker/replay/internal/strategy"
)

// Precondition messages. Each failed gate has its own message so callers can
// tell them apart.
const (
	StatusMissingInputs = "Signal or entry/exit prices missing; the threshold strategy cannot be simulated."
	StatusSellSignal    = "Signal is SELL; the threshold strategy only opens positions on a BUY signal, so no trades were simulated."
	StatusHoldSignal    = "Signal is HOLD; no trades were simulated."
	StatusNoData        = "No price data available for the selected period."
)

// Precondition returns the status explaining why cfg cannot trade, or "" when
// the engine may run.
func Precondition(cfg strategy.Threshold) string {
	switch {
	case cfg.Signal == "" || cfg.EntryPrice == nil || cfg.ExitPrice == nil:
		return StatusMissingInputs
	case cfg.Signal == core.ActionSell:
		return StatusSellSignal
	case cfg.Signal == core.ActionHold:
		return StatusHoldSignal
	case cfg.Signal != core.ActionBuy:
		return fmt.Sprintf("Signal %q is not recognized; only BUY signals are simulated.", string(cfg.Signal))
	}
	return ""
}

// Run replays series under cfg starting with capital in cash.
// Only buy rows count towards TradeCount: a buy and its sell are one round trip.
func Run(cfg strategy.Threshold, series core.PriceSeries, capital float64) strategy.Outcome {
	if status := Precondition(cfg); status != "" {
		return strategy.Idle(capital, status)
	}
	if len(series) == 0 {
		out := strategy.Idle(capital, StatusNoData)
		out.Insufficient = true
		return out
	}

	entry, exit := *cfg.EntryPrice, *cfg.ExitPrice
	ledger := portfolio.NewLedger(capital)

	for _, p := range series {
		if p.Price <= 0 {
			continue
		}
		if !ledger.IsOpen() {
			if p.Price <= entry {
				ledger.Buy(p.Time, p.Price, fmt.Sprintf(
					"Price %.2f reached entry target %.2f", p.Price, entry))
			}
		} else if p.Price >= exit {
			ledger.Sell(p.Time, p.Price, fmt.Sprintf(
				"Price %.2f reached exit target %.2f", p.Price, exit))
		}
	}

	last := series[len(series)-1]
	ledger.Close(last.Time, last.Price)

	return strategy.Outcome{
		Position:   ledger.Position(),
		Trades:     ledger.Trades(),
		TradeCount: ledger.Count(portfolio.TradeBuy),
		FinalValue: ledger.Value(last.Price),
	}
}
