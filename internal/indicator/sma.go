package indicator

import (
	"math"

	"github.com/shopspring/decimal"
)

// Value is one element of an indicator series aligned with its price input.
// Valid is false where there is not enough look-back to compute it.
type Value struct {
	V     float64
	Valid bool
}

// meanPlaces is the decimal precision of each mean before conversion to float64
const meanPlaces = 32

// SMA calculates the Simple Moving Average aligned with prices.
// The result always has len(prices) elements; element i is defined iff
// i >= period-1. A period <= 0 or longer than the input yields an all-undefined
// series rather than an error. Windows holding a NaN or infinite price are
// left undefined.
//
// The running sum is exact, so windows with equal means give identical values.
func SMA(prices []float64, period int) []Value {
	result := make([]Value, len(prices))
	if period <= 0 || period > len(prices) {
		return result
	}

	exact := make([]decimal.Decimal, len(prices))
	n := decimal.NewFromInt(int64(period))
	sum := decimal.Zero
	lastBad := -1

	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			lastBad = i
		} else {
			exact[i] = decimal.NewFromFloat(p)
		}

		sum = sum.Add(exact[i])
		if i >= period {
			sum = sum.Sub(exact[i-period])
		}
		if i < period-1 || lastBad > i-period {
			continue
		}
		result[i] = Value{V: sum.DivRound(n, meanPlaces).InexactFloat64(), Valid: true}
	}

	return result
}

// Defined reports whether every given value is defined
func Defined(values ...Value) bool {
	for _, v := range values {
		if !v.Valid {
			return false
		}
	}
	return true
}
