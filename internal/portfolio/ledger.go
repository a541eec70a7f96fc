package portfolio

import (
	"time"
)

// Ledger owns the position and trade log of one simulation run.
// It is not safe for concurrent use; each run creates its own.
type Ledger struct {
	position Position
	trades   []TradeRecord
}

// NewLedger creates a flat ledger holding capital in cash
func NewLedger(capital float64) *Ledger {
	return &Ledger{position: Position{Cash: capital}}
}

// Position returns the current state
func (l *Ledger) Position() Position {
	return l.position
}

// IsOpen reports whether units are currently held
func (l *Ledger) IsOpen() bool {
	return l.position.Open
}

// Buy invests all cash at price. It returns false and records nothing when
// the trade cannot be executed (degenerate price or already open).
func (l *Ledger) Buy(t time.Time, price float64, reason string) bool {
	next, rec, err := ExecuteBuy(l.position, price, t, reason)
	if err != nil {
		return false
	}
	l.apply(next, rec)
	return true
}

// Sell liquidates all units at price, with the same failure semantics as Buy
func (l *Ledger) Sell(t time.Time, price float64, reason string) bool {
	next, rec, err := ExecuteSell(l.position, price, t, reason)
	if err != nil {
		return false
	}
	l.apply(next, rec)
	return true
}

// Close sells any open position at the final sample
func (l *Ledger) Close(t time.Time, price float64) bool {
	if !l.position.Open {
		return false
	}
	return l.Sell(t, price, ReasonEndOfPeriod)
}

func (l *Ledger) apply(next Position, rec TradeRecord) {
	l.position = next
	l.trades = append(l.trades, rec)
}

// Trades returns a copy of the trade log
func (l *Ledger) Trades() []TradeRecord {
	out := make([]TradeRecord, len(l.trades))
	copy(out, l.trades)
	return out
}

// Count returns the number of trade rows of the given kind
func (l *Ledger) Count(kind TradeKind) int {
	n := 0
	for _, t := range l.trades {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

// Value marks the position at price
func (l *Ledger) Value(price float64) float64 {
	return l.position.Value(price)
}
