package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// PricePoint is a single (timestamp, price) sample
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// PriceSeries is a time-ordered sequence of price samples
type PriceSeries []PricePoint

// Validate checks that timestamps never decrease and prices are finite and
// non-negative.
// An empty series is valid.
func (s PriceSeries) Validate() error {
	for i, p := range s {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return WrapError(ErrInvalidSeries,
				fmt.Errorf("non-finite price at index %d", i))
		}
		if p.Price < 0 {
			return WrapError(ErrInvalidSeries,
				fmt.Errorf("negative price %.4f at index %d", p.Price, i))
		}
		if i > 0 && p.Time.Before(s[i-1].Time) {
			return WrapError(ErrInvalidSeries,
				fmt.Errorf("timestamp at index %d precedes index %d", i, i-1))
		}
	}
	return nil
}

// EndOfDay returns the last instant of the calendar day that starts at day
func EndOfDay(day time.Time) time.Time {
	return day.Add(24*time.Hour - time.Nanosecond)
}

// Prices returns the price column of the series
func (s PriceSeries) Prices() []float64 {
	prices := make([]float64, len(s))
	for i, p := range s {
		prices[i] = p.Price
	}
	return prices
}

// First returns the earliest sample, or false for an empty series
func (s PriceSeries) First() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[0], true
}

// Last returns the latest sample, or false for an empty series
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// Between returns the samples with start <= Time <= end.
// A zero start or end leaves that side open.
func (s PriceSeries) Between(start, end time.Time) PriceSeries {
	out := make(PriceSeries, 0, len(s))
	for _, p := range s {
		if !start.IsZero() && p.Time.Before(start) {
			continue
		}
		if !end.IsZero() && p.Time.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Action represents a directional trading signal
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// IsKnown reports whether the action is buy, sell or hold
func (a Action) IsKnown() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

// ParseAction normalizes a signal string such as "BUY" or " Sell ".
// Unrecognized values are returned unchanged.
func ParseAction(s string) Action {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if a.IsKnown() {
		return a
	}
	return Action(s)
}
