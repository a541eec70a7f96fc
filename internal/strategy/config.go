package strategy

import (
	"fmt"

	"github.com/newthinker/replay/internal/core"
	"github.com/newthinker/replay/internal/portfolio"
)

// Kind names a strategy variant
type Kind string

const (
	KindCrossover Kind = "crossover"
	KindThreshold Kind = "threshold"
)

// Config is a strategy configuration. It is a closed set: the only
// implementations are Crossover and Threshold.
type Config interface {
	Kind() Kind
	Validate() error
	Description() string
	isConfig()
}

// Crossover configures the moving average crossover strategy
type Crossover struct {
	ShortWindow int `json:"short_window"`
	LongWindow  int `json:"long_window"`
}

func (Crossover) Kind() Kind { return KindCrossover }
func (Crossover) isConfig()  {}

func (c Crossover) Description() string {
	return fmt.Sprintf("MA Crossover (%d/%d)", c.ShortWindow, c.LongWindow)
}

// Validate rejects non-positive windows and short >= long
func (c Crossover) Validate() error {
	if c.ShortWindow <= 0 || c.LongWindow <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("windows must be positive, got short=%d long=%d", c.ShortWindow, c.LongWindow))
	}
	if c.ShortWindow >= c.LongWindow {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("short window (%d) must be less than long window (%d)", c.ShortWindow, c.LongWindow))
	}
	return nil
}

// Threshold configures the entry/exit price strategy driven by an externally
// computed signal. A missing price or a non-buy signal is not a configuration
// error; the engine reports it as a status instead.
type Threshold struct {
	Signal     core.Action `json:"signal"`
	EntryPrice *float64    `json:"entry_price,omitempty"`
	ExitPrice  *float64    `json:"exit_price,omitempty"`
}

func (Threshold) Kind() Kind { return KindThreshold }
func (Threshold) isConfig()  {}

func (t Threshold) Description() string {
	return fmt.Sprintf("Threshold (%s, entry %s, exit %s)",
		signalLabel(t.Signal), priceLabel(t.EntryPrice), priceLabel(t.ExitPrice))
}

// Validate rejects negative target prices
func (t Threshold) Validate() error {
	if t.EntryPrice != nil && *t.EntryPrice < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("entry price cannot be negative, got %.4f", *t.EntryPrice))
	}
	if t.ExitPrice != nil && *t.ExitPrice < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("exit price cannot be negative, got %.4f", *t.ExitPrice))
	}
	return nil
}

// Price returns a pointer to p, for building Threshold literals
func Price(p float64) *float64 {
	return &p
}

func signalLabel(a core.Action) string {
	if a == "" {
		return "no signal"
	}
	return string(a)
}

func priceLabel(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *p)
}

// Outcome is what an engine hands to result assembly
type Outcome struct {
	Position   portfolio.Position
	Trades     []portfolio.TradeRecord
	TradeCount int
	FinalValue float64
	// Status is set when the engine skipped trading for a known reason
	Status string
	// Insufficient marks a status caused by too little price data
	Insufficient bool
}

// Idle builds a zero-trade outcome that keeps the initial capital
func Idle(capital float64, status string) Outcome {
	return Outcome{
		Position:   portfolio.Position{Cash: capital},
		FinalValue: capital,
		Status:     status,
	}
}
