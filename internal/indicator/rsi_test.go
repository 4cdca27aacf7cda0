package indicator

import (
	"testing"
)

func TestRSI_NotEnoughData(t *testing.T) {
	if got := RSI([]float64{1, 2, 3}, 14); len(got) != 0 {
		t.Errorf("expected empty slice, got %d values", len(got))
	}
}

func TestRSI_Bounds(t *testing.T) {
	prices := []float64{44, 44.3, 44.1, 43.6, 44.3, 44.8, 45.1, 45.4, 45.8, 46.1, 45.9, 46.2, 45.6, 46.3, 46.3, 46.0, 46.4, 46.2, 45.6, 46.2}

	rsi := RSI(prices, 14)
	if len(rsi) != len(prices)-14 {
		t.Fatalf("expected %d values, got %d", len(prices)-14, len(rsi))
	}
	for i, v := range rsi {
		if v < 0 || v > 100 {
			t.Errorf("rsi[%d] = %f out of [0,100]", i, v)
		}
	}
}

func TestRSI_MonotonicRise(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = float64(100 + i)
	}

	rsi := RSI(prices, 14)
	last := rsi[len(rsi)-1]
	if !almostEqual(last, 100, 1e-6) {
		t.Errorf("strictly rising prices should give RSI 100, got %f", last)
	}
}
