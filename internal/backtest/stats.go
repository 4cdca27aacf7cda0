package backtest

import (
	"math"
)

// CalculateStats computes performance statistics from round trips and the equity curve
func CalculateStats(trips []RoundTrip, startingCash float64, equity []EquityPoint) Stats {
	var stats Stats

	if len(equity) > 0 {
		if startingCash > 0 {
			stats.TotalReturn = (equity[len(equity)-1].Value/startingCash - 1) * 100
		}
		stats.MaxDrawdown = calculateMaxDrawdown(startingCash, equity) * 100
		stats.SharpeRatio = calculateSharpeRatio(equityReturns(startingCash, equity))
	}

	if len(trips) == 0 {
		return stats
	}

	var winning, losing int
	for _, t := range trips {
		if !t.IsClosed() {
			continue
		}
		if t.IsWin() {
			winning++
		} else {
			losing++
		}
	}

	closed := winning + losing
	stats.TotalTrades = len(trips)
	stats.WinningTrades = winning
	stats.LosingTrades = losing
	if closed > 0 {
		stats.WinRate = float64(winning) / float64(closed) * 100
	}

	return stats
}

// equityReturns converts an equity curve into per-bar fractional returns
func equityReturns(startingCash float64, equity []EquityPoint) []float64 {
	returns := make([]float64, 0, len(equity))
	prev := startingCash
	for _, p := range equity {
		if prev > 0 {
			returns = append(returns, p.Value/prev-1)
		} else {
			returns = append(returns, 0)
		}
		prev = p.Value
	}
	return returns
}

// calculateMaxDrawdown finds the largest peak-to-trough decline
func calculateMaxDrawdown(startingCash float64, equity []EquityPoint) float64 {
	var maxDD float64
	peak := startingCash

	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			dd := (peak - p.Value) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// calculateSharpeRatio computes risk-adjusted return
// Assumes risk-free rate of 0 and daily bars
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
	return mean / stdDev * math.Sqrt(252)
}
