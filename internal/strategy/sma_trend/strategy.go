package sma_trend

import (
	"fmt"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/indicator"
	"github.com/newthinker/tradelab/internal/strategy"
)

// Name is the registry key.
const Name = "sma_trend"

// Params configures the trend filter
type Params struct {
	FastPeriod int `mapstructure:"fast_period"`
	SlowPeriod int `mapstructure:"slow_period"`
}

// SMATrend stays long while the fast SMA of closes is above the slow SMA.
// It holds until a full slow window of closes has been seen.
type SMATrend struct {
	fastPeriod int
	slowPeriod int
	closes     *indicator.Window
}

// New creates a new SMA trend decider
func New(fastPeriod, slowPeriod int) (*SMATrend, error) {
	if fastPeriod < 1 || slowPeriod < 1 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("periods must be positive, got %d/%d", fastPeriod, slowPeriod))
	}
	if fastPeriod >= slowPeriod {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fast_period (%d) must be less than slow_period (%d)", fastPeriod, slowPeriod))
	}
	return &SMATrend{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		closes:     indicator.NewWindow(slowPeriod),
	}, nil
}

// Definition returns the registry entry for this strategy
func Definition() strategy.Definition {
	return strategy.Definition{
		Name:        Name,
		Description: "Long while SMA(fast) of closes is above SMA(slow), flat while below",
		Defaults: map[string]any{
			"fast_period": 20,
			"slow_period": 50,
		},
		New: func(params map[string]any) (backtest.Decider, error) {
			var p Params
			if err := strategy.DecodeParams(params, &p); err != nil {
				return nil, err
			}
			return New(p.FastPeriod, p.SlowPeriod)
		},
	}
}

func (s *SMATrend) Decide(bar core.OHLCV) (backtest.Decision, error) {
	s.closes.Push(bar.Close)
	if !s.closes.Full() {
		return backtest.Hold, nil
	}

	fast, _ := s.closes.Mean(s.fastPeriod)
	slow, _ := s.closes.Mean(s.slowPeriod)

	switch {
	case fast > slow:
		return backtest.Decision{Buy: true}, nil
	case fast < slow:
		return backtest.Decision{Sell: true}, nil
	default:
		return backtest.Hold, nil
	}
}
