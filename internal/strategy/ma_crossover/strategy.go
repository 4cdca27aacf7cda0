package ma_crossover

import (
	"fmt"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/indicator"
	"github.com/newthinker/tradelab/internal/strategy"
)

// Name is the registry key.
const Name = "ma_crossover"

// Params configures the crossover periods and the averaging method
type Params struct {
	FastPeriod int    `mapstructure:"fast_period"`
	SlowPeriod int    `mapstructure:"slow_period"`
	Average    string `mapstructure:"average"` // "sma" or "ema"
}

// MACrossover implements a moving average crossover strategy. It only acts
// on the bar where the fast MA crosses the slow MA.
type MACrossover struct {
	fastPeriod int
	slowPeriod int
	average    func(prices []float64, period int) []float64
	closes     *indicator.Window
}

// New creates a new MA Crossover strategy
func New(fastPeriod, slowPeriod int) (*MACrossover, error) {
	if fastPeriod < 1 || fastPeriod >= slowPeriod {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("need 0 < fast_period < slow_period, got %d/%d", fastPeriod, slowPeriod))
	}
	return &MACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		average:    indicator.SMA,
		// one extra close to compare against the previous bar's averages
		closes: indicator.NewWindow(slowPeriod + 1),
	}, nil
}

// WithAverage switches the averaging method. EMAs are seeded over the
// trailing window only.
func (m *MACrossover) WithAverage(kind string) (*MACrossover, error) {
	switch kind {
	case "", "sma":
		m.average = indicator.SMA
	case "ema":
		m.average = indicator.EMA
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown average %q, want sma or ema", kind))
	}
	return m, nil
}

// Definition returns the registry entry for this strategy
func Definition() strategy.Definition {
	return strategy.Definition{
		Name:        Name,
		Description: "Buy on golden cross, sell on death cross of MA(fast) and MA(slow)",
		Defaults: map[string]any{
			"fast_period": 20,
			"slow_period": 50,
			"average":     "sma",
		},
		New: func(params map[string]any) (backtest.Decider, error) {
			var p Params
			if err := strategy.DecodeParams(params, &p); err != nil {
				return nil, err
			}
			m, err := New(p.FastPeriod, p.SlowPeriod)
			if err != nil {
				return nil, err
			}
			return m.WithAverage(p.Average)
		},
	}
}

func (m *MACrossover) Decide(bar core.OHLCV) (backtest.Decision, error) {
	m.closes.Push(bar.Close)
	if !m.closes.Full() {
		return backtest.Hold, nil
	}

	prices := m.closes.Values()
	fastMA := m.average(prices, m.fastPeriod)
	slowMA := m.average(prices, m.slowPeriod)

	currFast := fastMA[len(fastMA)-1]
	prevFast := fastMA[len(fastMA)-2]
	currSlow := slowMA[len(slowMA)-1]
	prevSlow := slowMA[len(slowMA)-2]

	// Golden Cross: fast crosses above slow
	if prevFast <= prevSlow && currFast > currSlow {
		return backtest.Decision{Buy: true}, nil
	}
	// Death Cross: fast crosses below slow
	if prevFast >= prevSlow && currFast < currSlow {
		return backtest.Decision{Sell: true}, nil
	}
	return backtest.Hold, nil
}
