package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/replay/internal/core"
	"github.com/newthinker/replay/internal/portfolio"
	"github.com/newthinker/replay/internal/strategy"
)

// Request describes one backtest run
type Request struct {
	Symbol         string
	Strategy       strategy.Config
	InitialCapital float64
	// Start and End are informational; the series is expected to be filtered already
	Start time.Time
	End   time.Time
}

// Validate rejects configuration errors before any simulation starts
func (r Request) Validate() error {
	if r.Strategy == nil {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("strategy configuration required"))
	}
	if !(r.InitialCapital > 0) || math.IsInf(r.InitialCapital, 0) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial capital must be positive, got %v", r.InitialCapital))
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("end date must be after start date"))
	}
	return r.Strategy.Validate()
}

// Result holds the complete backtest output
type Result struct {
	ID                string                  `json:"id,omitempty"`
	Symbol            string                  `json:"symbol"`
	Strategy          strategy.Spec           `json:"strategy"`
	Description       string                  `json:"description"`
	InitialCapital    float64                 `json:"initial_capital"`
	StartDate         time.Time               `json:"start_date"`
	EndDate           time.Time               `json:"end_date"`
	FinalValue        float64                 `json:"final_value"`
	TotalProfitLoss   float64                 `json:"total_profit_loss"`
	ProfitLossPercent float64                 `json:"profit_loss_percent"`
	TradeCount        int                     `json:"trade_count"`
	Trades            []portfolio.TradeRecord `json:"trades"`
	BuyAndHoldPercent *float64                `json:"buy_and_hold_percent,omitempty"`
	Status            string                  `json:"status,omitempty"`
	Stats             Stats                   `json:"stats"`
}

// RoundTrip pairs an entry with its exit
type RoundTrip struct {
	Entry  portfolio.TradeRecord  `json:"entry"`
	Exit   *portfolio.TradeRecord `json:"exit,omitempty"` // nil if position still open
	Return float64                `json:"return"`         // Fractional return
}

// Stats holds performance statistics over closed round trips
type Stats struct {
	RoundTrips    int     `json:"round_trips"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`     // Percentage of profitable round trips
	MaxDrawdown   float64 `json:"max_drawdown"` // Largest peak-to-trough decline, percent
	SharpeRatio   float64 `json:"sharpe_ratio"` // Risk-adjusted return (annualized)
}

// IsWin returns true if the round trip was profitable
func (t RoundTrip) IsWin() bool {
	return t.Return > 0
}

// IsClosed returns true if the round trip has an exit
func (t RoundTrip) IsClosed() bool {
	return t.Exit != nil
}

// Clone returns a deep copy of r
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	if r.Trades != nil {
		c.Trades = make([]portfolio.TradeRecord, len(r.Trades))
		copy(c.Trades, r.Trades)
	}
	if r.BuyAndHoldPercent != nil {
		v := *r.BuyAndHoldPercent
		c.BuyAndHoldPercent = &v
	}
	c.Strategy = r.Strategy.Clone()
	return &c
}
