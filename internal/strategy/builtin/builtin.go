// Package builtin registers the strategies shipped with tradelab.
package builtin

import (
	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/strategy"
	"github.com/newthinker/tradelab/internal/strategy/ma_crossover"
	"github.com/newthinker/tradelab/internal/strategy/rsi_reversion"
	"github.com/newthinker/tradelab/internal/strategy/sma_trend"
)

// BuyHoldName is the registry key of the buy-and-hold baseline.
const BuyHoldName = "buy_hold"

// Register adds every builtin strategy to reg.
func Register(reg *strategy.Registry) {
	reg.Register(sma_trend.Definition())
	reg.Register(ma_crossover.Definition())
	reg.Register(rsi_reversion.Definition())
	reg.Register(BuyHold())
}

// BuyHold asks to buy on every bar. The engine ignores the request once a
// position is open, so this holds from the first bar to the end.
func BuyHold() strategy.Definition {
	return strategy.Definition{
		Name:        BuyHoldName,
		Description: "Buy on the first bar and hold to the end",
		Defaults:    map[string]any{},
		New: func(params map[string]any) (backtest.Decider, error) {
			if err := strategy.DecodeParams(params, &struct{}{}); err != nil {
				return nil, err
			}
			return backtest.DeciderFunc(func(core.OHLCV) (backtest.Decision, error) {
				return backtest.Decision{Buy: true}, nil
			}), nil
		},
	}
}
