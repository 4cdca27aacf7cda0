package rsi_reversion

import (
	"fmt"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/indicator"
	"github.com/newthinker/tradelab/internal/strategy"
)

// Name is the registry key.
const Name = "rsi_reversion"

// Params configures the RSI thresholds
type Params struct {
	Period   int     `mapstructure:"period"`
	Lower    float64 `mapstructure:"lower"`
	Upper    float64 `mapstructure:"upper"`
	Lookback int     `mapstructure:"lookback"`
}

// RSIReversion buys when RSI drops below the lower threshold and sells when
// it rises above the upper one. RSI is computed over the trailing lookback
// closes.
type RSIReversion struct {
	period int
	lower  float64
	upper  float64
	closes *indicator.Window
}

// New creates a new RSI reversion decider
func New(p Params) (*RSIReversion, error) {
	switch {
	case p.Period < 2:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("period must be >= 2, got %d", p.Period))
	case p.Lookback <= p.Period:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback (%d) must exceed period (%d)", p.Lookback, p.Period))
	case p.Lower < 0 || p.Upper > 100 || p.Lower >= p.Upper:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("need 0 <= lower < upper <= 100, got %g/%g", p.Lower, p.Upper))
	}
	return &RSIReversion{
		period: p.Period,
		lower:  p.Lower,
		upper:  p.Upper,
		closes: indicator.NewWindow(p.Lookback),
	}, nil
}

// Definition returns the registry entry for this strategy
func Definition() strategy.Definition {
	return strategy.Definition{
		Name:        Name,
		Description: "Buy when RSI(period) < lower, sell when RSI(period) > upper",
		Defaults: map[string]any{
			"period":   14,
			"lower":    30.0,
			"upper":    70.0,
			"lookback": 100,
		},
		New: func(params map[string]any) (backtest.Decider, error) {
			var p Params
			if err := strategy.DecodeParams(params, &p); err != nil {
				return nil, err
			}
			return New(p)
		},
	}
}

func (r *RSIReversion) Decide(bar core.OHLCV) (backtest.Decision, error) {
	r.closes.Push(bar.Close)
	if r.closes.Len() <= r.period {
		return backtest.Hold, nil
	}

	values := indicator.RSI(r.closes.Values(), r.period)
	if len(values) == 0 {
		return backtest.Hold, nil
	}
	rsi := values[len(values)-1]

	switch {
	case rsi < r.lower:
		return backtest.Decision{Buy: true}, nil
	case rsi > r.upper:
		return backtest.Decision{Sell: true}, nil
	default:
		return backtest.Hold, nil
	}
}
