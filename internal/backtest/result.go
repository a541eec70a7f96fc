package backtest

import (
	"fmt"

	"github.com/newthinker/replay/internal/core"
	"github.com/newthinker/replay/internal/strategy"
)

// Assemble packages an engine outcome and the benchmark into a Result.
// benchmark is nil when buy-and-hold is undefined for the series.
func Assemble(req Request, out strategy.Outcome, benchmark *float64) (*Result, error) {
	if req.InitialCapital == 0 {
		// Unreachable for validated requests
		return nil, core.WrapError(core.ErrComputation,
			fmt.Errorf("profit/loss percent undefined for zero initial capital"))
	}

	pl := out.FinalValue - req.InitialCapital

	status := out.Status
	if out.TradeCount == 0 && status == "" {
		status = noSignalStatus(req.Strategy)
	}

	return &Result{
		Symbol:            req.Symbol,
		Strategy:          strategy.SpecOf(req.Strategy),
		Description:       req.Strategy.Description(),
		InitialCapital:    req.InitialCapital,
		StartDate:         req.Start,
		EndDate:           req.End,
		FinalValue:        out.FinalValue,
		TotalProfitLoss:   pl,
		ProfitLossPercent: pl / req.InitialCapital * 100,
		TradeCount:        out.TradeCount,
		Trades:            out.Trades,
		BuyAndHoldPercent: benchmark,
		Status:            status,
		Stats:             CalculateStats(out.Trades),
	}, nil
}

// noSignalStatus explains a zero-trade run that had enough data
func noSignalStatus(cfg strategy.Config) string {
	switch c := cfg.(type) {
	case strategy.Crossover:
		return fmt.Sprintf("No crossover signal: MA%d never crossed above MA%d in the selected period.",
			c.ShortWindow, c.LongWindow)
	case strategy.Threshold:
		if c.EntryPrice != nil {
			return fmt.Sprintf("No signal: price never reached the entry target of %.2f in the selected period.",
				*c.EntryPrice)
		}
	}
	return "No trades were triggered in the selected period."
}
