package backtest

import "github.com/newthinker/replay/internal/core"

// BuyAndHold returns the percent return of buying at first and holding until
// last. It reports false when first is zero.
func BuyAndHold(capital, first, last float64) (float64, bool) {
	if first == 0 || capital == 0 {
		return 0, false
	}
	units := capital / first
	return (units*last - capital) / capital * 100, true
}

// BuyAndHoldSeries applies BuyAndHold to the first and last samples of series
func BuyAndHoldSeries(capital float64, series core.PriceSeries) (float64, bool) {
	first, ok := series.First()
	if !ok {
		return 0, false
	}
	last, _ := series.Last()
	return BuyAndHold(capital, first.Price, last.Price)
}
