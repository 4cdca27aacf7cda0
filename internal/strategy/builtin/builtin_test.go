package builtin

import (
	"testing"
	"time"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegister_AllBuiltins(t *testing.T) {
	reg := strategy.NewRegistry()
	Register(reg)

	var names []string
	for _, d := range reg.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"buy_hold", "ma_crossover", "rsi_reversion", "sma_trend"}, names)

	for _, name := range names {
		d, err := reg.New(name, nil)
		require.NoError(t, err, name)
		assert.NotNil(t, d, name)
	}
}

func TestBuyHold_RejectsParams(t *testing.T) {
	_, err := BuyHold().New(map[string]any{"period": 3})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestBuyHold_MatchesPriceRatio(t *testing.T) {
	closes := []float64{100, 90, 120, 150}
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = core.OHLCV{Symbol: "TEST", Open: c, High: c, Low: c, Close: c, Time: base.AddDate(0, 0, i)}
	}
	series, err := backtest.NewSeries(bars)
	require.NoError(t, err)

	engine, err := backtest.NewEngine(backtest.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	d, err := BuyHold().New(nil)
	require.NoError(t, err)

	result, err := engine.Run(BuyHoldName, series, d)
	require.NoError(t, err)

	assert.Len(t, result.Trades, 1)
	assert.InDelta(t, 15000.0, result.FinalValue, 1e-9)
}
