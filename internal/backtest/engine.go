package backtest

import (
	"errors"
	"fmt"
	"math"

	"github.com/newthinker/tradelab/internal/core"
	"go.uber.org/zap"
)

// DefaultStartingCash is the cash a run starts with when none is configured.
const DefaultStartingCash = 10000.0

// Config holds engine settings
type Config struct {
	StartingCash float64
	WholeShares  bool // floor position sizes to whole shares
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{StartingCash: DefaultStartingCash}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if math.IsNaN(c.StartingCash) || math.IsInf(c.StartingCash, 0) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("starting cash must be finite, got %v", c.StartingCash))
	}
	if c.StartingCash < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("starting cash cannot be negative, got %.2f", c.StartingCash))
	}
	return nil
}

// Observer receives engine events. *metrics.Registry implements it.
type Observer interface {
	ObserveCallbackFailure(strategy string)
	ObserveTrade(side string)
}

type nopObserver struct{}

func (nopObserver) ObserveCallbackFailure(string) {}
func (nopObserver) ObserveTrade(string)           {}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver routes engine events to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// Engine replays a Series through a Decider bar by bar. An Engine holds no
// per-run state and may be shared by concurrent runs.
type Engine struct {
	cfg      Config
	logger   *zap.Logger
	observer Observer
}

// NewEngine creates an Engine, rejecting invalid configuration with core.ErrConfigInvalid.
func NewEngine(cfg Config, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// WithConfig returns a new Engine sharing e's logger and observer but using cfg.
func (e *Engine) WithConfig(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clone := *e
	clone.cfg = cfg
	return &clone, nil
}

// Run replays series through decider and returns the result summary.
//
// For each bar the decider is invoked, its intent is resolved against the
// flat/holding state, any execution fills at the bar's close, and the
// portfolio is marked to that close. A failing or panicking decider is treated
// as a hold for that bar and recorded in Result.Diagnostics; it never aborts
// the run. Fatal errors are returned before any bar is replayed.
func (e *Engine) Run(strategy string, series *Series, decider Decider) (*Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if series == nil || series.Len() == 0 {
		return nil, core.WrapError(core.ErrInvalidData, core.ErrNoData)
	}
	if decider == nil {
		return nil, core.WrapError(core.ErrConfigInvalid, errors.New("decider is required"))
	}

	n := series.Len()
	portfolio := NewPortfolio(e.cfg.StartingCash, e.cfg.WholeShares)
	result := &Result{
		Strategy:     strategy,
		Symbol:       series.Symbol(),
		StartDate:    series.First().Time,
		EndDate:      series.Last().Time,
		StartingCash: e.cfg.StartingCash,
		Equity:       make([]EquityPoint, 0, n),
		Prices:       make([]EquityPoint, 0, n),
		Trades:       []TradeLogEntry{},
		Diagnostics:  []Diagnostic{},
	}

	log := e.logger.With(zap.String("strategy", strategy), zap.String("symbol", result.Symbol))
	log.Debug("starting backtest",
		zap.Float64("starting_cash", e.cfg.StartingCash),
		zap.Int("bars", n),
	)

	for i := 0; i < n; i++ {
		bar := series.At(i)

		decision, err := safeDecide(decider, bar)
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Index:   i,
				Time:    bar.Time,
				Message: err.Error(),
				Err:     core.WrapError(core.ErrCallbackFailed, err),
			})
			e.observer.ObserveCallbackFailure(strategy)
			log.Warn("decision callback failed, holding",
				zap.Int("bar", i),
				zap.Time("time", bar.Time),
				zap.Error(err),
			)
			decision = Hold
		}

		switch decision.Resolve(portfolio.State()) {
		case core.ActionBuy:
			if size, ok := portfolio.Buy(bar.Close); ok {
				result.Trades = append(result.Trades, e.record(log, core.SideBuy, bar, size))
			}
		case core.ActionSell:
			if size, ok := portfolio.Sell(bar.Close); ok {
				result.Trades = append(result.Trades, e.record(log, core.SideSell, bar, size))
			}
		}

		value := portfolio.Mark(bar.Close)
		result.Equity = append(result.Equity, EquityPoint{Time: bar.Time, Value: value})
		result.Prices = append(result.Prices, EquityPoint{Time: bar.Time, Value: bar.Close})
	}

	result.FinalValue = result.Equity[n-1].Value
	result.Final = portfolio.Snapshot()
	result.RoundTrips = buildRoundTrips(result.Trades, series.Last().Close)
	result.Stats = CalculateStats(result.RoundTrips, e.cfg.StartingCash, result.Equity)

	log.Info("backtest complete",
		zap.Float64("final_value", result.FinalValue),
		zap.Int("trades", len(result.Trades)),
		zap.Int("diagnostics", len(result.Diagnostics)),
	)

	return result, nil
}

func (e *Engine) record(log *zap.Logger, side core.Side, bar core.OHLCV, size float64) TradeLogEntry {
	e.observer.ObserveTrade(string(side))
	log.Debug("order executed",
		zap.String("side", string(side)),
		zap.Time("time", bar.Time),
		zap.Float64("price", bar.Close),
		zap.Float64("size", size),
	)
	return TradeLogEntry{
		Time:  bar.Time,
		Side:  side,
		Price: bar.Close,
		Size:  size,
	}
}

// buildRoundTrips pairs alternating buys and sells into round trips. A trailing
// open buy is marked at lastClose and left open.
func buildRoundTrips(trades []TradeLogEntry, lastClose float64) []RoundTrip {
	trips := []RoundTrip{}
	var open *RoundTrip

	for _, t := range trades {
		switch t.Side {
		case core.SideBuy:
			if open == nil {
				open = &RoundTrip{
					EntryTime:  t.Time,
					EntryPrice: t.Price,
					Size:       t.Size,
				}
			}
		case core.SideSell:
			if open != nil {
				exit := t.Time
				open.ExitTime = &exit
				open.ExitPrice = t.Price
				open.Return = tradeReturn(open.EntryPrice, open.ExitPrice)
				trips = append(trips, *open)
				open = nil
			}
		}
	}

	if open != nil {
		open.ExitPrice = lastClose
		open.Return = tradeReturn(open.EntryPrice, lastClose)
		trips = append(trips, *open)
	}

	return trips
}

func tradeReturn(entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	return (exit - entry) / entry
}
