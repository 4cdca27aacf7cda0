package app

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Data.Parquet.Dir = filepath.Join(t.TempDir(), "bars")
	cfg.Storage.Path = filepath.Join(t.TempDir(), "cache")
	return cfg
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "yahoo", a.Provider().Name())
	assert.Len(t, a.Strategies().List(), 4)
	assert.NotNil(t, a.Backtester())
	assert.Equal(t, 10000.0, a.Backtester().Engine().Config().StartingCash)
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	a, err := New(nil, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, config.Defaults().Data.Provider, a.Provider().Name())
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.Provider = "bloomberg"

	_, err := New(cfg, zap.NewNop())
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestNew_AlpacaRequiresCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.Provider = "alpaca"

	_, err := New(cfg, zap.NewNop())
	assert.Error(t, err)

	cfg.Data.Alpaca.APIKey = "key"
	cfg.Data.Alpaca.APISecret = "secret"
	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "alpaca", a.Provider().Name())
}

func TestNew_StrategyParamsOverrideDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Strategies = map[string]config.StrategyConfig{
		"sma_trend": {Params: map[string]any{"fast_period": 5}},
	}

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	def, ok := a.Strategies().Get("sma_trend")
	require.True(t, ok)
	assert.Equal(t, 5, def.Defaults["fast_period"])
	assert.Equal(t, 50, def.Defaults["slow_period"])
}

func TestNew_InvalidStrategyParams(t *testing.T) {
	cfg := testConfig(t)
	cfg.Strategies = map[string]config.StrategyConfig{
		"sma_trend": {Params: map[string]any{"fast_period": 80}},
	}

	_, err := New(cfg, zap.NewNop())
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestNew_UnknownConfiguredStrategy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Strategies = map[string]config.StrategyConfig{"moon": {}}

	_, err := New(cfg, zap.NewNop())
	assert.True(t, errors.Is(err, core.ErrStrategyNotFound))
}

func TestApp_ParquetBacktestWithSQLiteCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.Provider = "parquet"
	cfg.Data.Cache.Enabled = true
	cfg.Storage.Type = "sqlite"
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "cache.db")

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	var bars []core.OHLCV
	for i, c := range []float64{100, 90, 120, 150} {
		bars = append(bars, core.OHLCV{
			Symbol: "AAPL", Interval: "1d",
			Open: c, High: c, Low: c, Close: c,
			Time: start.AddDate(0, 0, i),
		})
	}
	require.NoError(t, a.Parquet().Write(t.Context(), bars))

	req := backtest.Request{Symbol: "AAPL", Start: start, End: start.AddDate(0, 0, 3)}
	for range 2 {
		decider, err := a.Strategies().New("buy_hold", nil)
		require.NoError(t, err)

		result, err := a.Backtester().Run(t.Context(), req, "buy_hold", decider)
		require.NoError(t, err)
		assert.InDelta(t, 15000.0, result.FinalValue, 1e-9)
		assert.Len(t, result.Equity, 4)
	}
}
