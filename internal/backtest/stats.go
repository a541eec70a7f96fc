package backtest

import (
	"math"

	"github.com/newthinker/replay/internal/portfolio"
)

// RoundTrips pairs each buy in the trade log with the sell that follows it
func RoundTrips(trades []portfolio.TradeRecord) []RoundTrip {
	var trips []RoundTrip
	var open *RoundTrip

	for _, tr := range trades {
		switch tr.Kind {
		case portfolio.TradeBuy:
			if open == nil {
				open = &RoundTrip{Entry: tr}
			}
		case portfolio.TradeSell:
			if open != nil {
				exit := tr
				open.Exit = &exit
				if open.Entry.Price > 0 {
					open.Return = (exit.Price - open.Entry.Price) / open.Entry.Price
				}
				trips = append(trips, *open)
				open = nil
			}
		}
	}

	if open != nil {
		trips = append(trips, *open)
	}
	return trips
}

// CalculateStats computes performance statistics from a trade log
func CalculateStats(trades []portfolio.TradeRecord) Stats {
	trips := RoundTrips(trades)
	if len(trips) == 0 {
		return Stats{}
	}

	var winning, losing int
	var returns []float64

	for _, t := range trips {
		if !t.IsClosed() {
			continue
		}
		returns = append(returns, t.Return)
		if t.IsWin() {
			winning++
		} else {
			losing++
		}
	}

	closed := winning + losing
	var winRate float64
	if closed > 0 {
		winRate = float64(winning) / float64(closed) * 100
	}

	return Stats{
		RoundTrips:    closed,
		WinningTrades: winning,
		LosingTrades:  losing,
		WinRate:       winRate,
		MaxDrawdown:   calculateMaxDrawdown(returns) * 100,
		SharpeRatio:   calculateSharpeRatio(returns),
	}
}

// calculateMaxDrawdown finds the largest peak-to-trough decline
func calculateMaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	var maxDD float64
	peak := 1.0
	cumulative := 1.0

	for _, r := range returns {
		cumulative *= (1 + r)
		if cumulative > peak {
			peak = cumulative
		}
		dd := (peak - cumulative) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// calculateSharpeRatio computes risk-adjusted return
// Assumes risk-free rate of 0 for simplicity
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}

	// Annualize (assuming ~252 trading days)
	annualizedReturn := mean * 252
	annualizedStdDev := stdDev * math.Sqrt(252)

	return annualizedReturn / annualizedStdDev
}
