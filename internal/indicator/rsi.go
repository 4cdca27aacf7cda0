package indicator

import (
	talib "github.com/markcheno/go-talib"
)

// RSI calculates the Relative Strength Index using Wilder smoothing.
// Returns slice of length: len(prices) - period, empty when there is not
// enough data.
func RSI(prices []float64, period int) []float64 {
	if period < 2 || len(prices) <= period {
		return []float64{}
	}
	out := talib.Rsi(prices, period)
	return out[period:]
}
