// Package portfolio holds the cash/position bookkeeping shared by the
// strategy engines. Positions are all-in or all-out; there are no partial fills.
package portfolio

import (
	"fmt"
	"time"

	"github.com/newthinker/replay/internal/core"
)

// TradeKind is the side of a trade record
type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

// ReasonEndOfPeriod is the reason recorded when an open position is closed at
// the last available price.
const ReasonEndOfPeriod = "closed at end of period"

// Position is the cash/units state of a single run
type Position struct {
	Cash  float64 `json:"cash"`
	Units float64 `json:"units"`
	Open  bool    `json:"open"`
}

// Value returns cash plus units marked at price
func (p Position) Value(price float64) float64 {
	return p.Cash + p.Units*price
}

// TradeRecord is one row of the trade log. Records are never modified after
// they are appended.
type TradeRecord struct {
	Time       time.Time `json:"time"`
	Kind       TradeKind `json:"kind"`
	Price      float64   `json:"price"`
	Quantity   float64   `json:"quantity"`
	CashAfter  float64   `json:"cash_after"`
	UnitsAfter float64   `json:"units_after"`
	Reason     string    `json:"reason"`
}

// ExecuteBuy converts all cash into units at price.
// A non-positive price or an already open position leaves pos unchanged and
// returns an error; callers are expected to check before calling.
func ExecuteBuy(pos Position, price float64, t time.Time, reason string) (Position, TradeRecord, error) {
	if price <= 0 {
		return pos, TradeRecord{}, core.WrapError(core.ErrDegeneratePrice,
			fmt.Errorf("buy at %.4f", price))
	}
	if pos.Open {
		return pos, TradeRecord{}, core.WrapError(core.ErrInvalidTransition,
			fmt.Errorf("buy while position is open"))
	}

	units := pos.Cash / price
	next := Position{Cash: 0, Units: pos.Units + units, Open: true}
	return next, TradeRecord{
		Time:       t,
		Kind:       TradeBuy,
		Price:      price,
		Quantity:   units,
		CashAfter:  next.Cash,
		UnitsAfter: next.Units,
		Reason:     reason,
	}, nil
}

// ExecuteSell converts all units into cash at price.
func ExecuteSell(pos Position, price float64, t time.Time, reason string) (Position, TradeRecord, error) {
	if price <= 0 {
		return pos, TradeRecord{}, core.WrapError(core.ErrDegeneratePrice,
			fmt.Errorf("sell at %.4f", price))
	}
	if !pos.Open {
		return pos, TradeRecord{}, core.WrapError(core.ErrInvalidTransition,
			fmt.Errorf("sell without an open position"))
	}

	units := pos.Units
	next := Position{Cash: pos.Cash + units*price, Units: 0, Open: false}
	return next, TradeRecord{
		Time:       t,
		Kind:       TradeSell,
		Price:      price,
		Quantity:   units,
		CashAfter:  next.Cash,
		UnitsAfter: next.Units,
		Reason:     reason,
	}, nil
}
