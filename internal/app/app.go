package app

import (
	"fmt"
	"io"
	"maps"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/collector"
	"github.com/newthinker/tradelab/internal/collector/alpaca"
	"github.com/newthinker/tradelab/internal/collector/parquetfile"
	"github.com/newthinker/tradelab/internal/collector/yahoo"
	"github.com/newthinker/tradelab/internal/config"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/metrics"
	"github.com/newthinker/tradelab/internal/storage/archive"
	"github.com/newthinker/tradelab/internal/strategy"
	"github.com/newthinker/tradelab/internal/strategy/builtin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// App wires configuration into the services the CLI and the HTTP server run on
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	providers  *collector.Registry
	provider   collector.HistoryProvider
	strategies *strategy.Registry
	metrics    *metrics.Registry
	engine     *backtest.Engine
	backtester *backtest.Backtester
	parquet    *parquetfile.Store

	closers []io.Closer
}

// New builds an App from cfg. The caller must Close it.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Defaults()
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		providers:  collector.NewRegistry(),
		strategies: strategy.NewRegistry(logger),
		metrics:    metrics.NewRegistry(),
	}

	a.parquet = parquetfile.New(cfg.Data.Parquet.Dir, logger)
	a.providers.Register(yahoo.New(logger))
	a.providers.Register(a.parquet)
	if cfg.Data.Alpaca.APIKey != "" {
		a.providers.Register(alpaca.New(collector.Config{
			APIKey:    cfg.Data.Alpaca.APIKey,
			APISecret: cfg.Data.Alpaca.APISecret,
			BaseURL:   cfg.Data.Alpaca.BaseURL,
		}, cfg.Data.Alpaca.Feed, logger))
	}

	provider, err := a.providers.MustGet(cfg.Data.Provider)
	if err != nil {
		return nil, err
	}
	if cfg.Data.Cache.Enabled {
		store, err := archive.New(archive.Config{
			Type:   cfg.Storage.Type,
			Path:   cfg.Storage.Path,
			SQLite: cfg.Storage.SQLite.Path,
			S3: archive.S3Config{
				Bucket:    cfg.Storage.S3.Bucket,
				Endpoint:  cfg.Storage.S3.Endpoint,
				Region:    cfg.Storage.S3.Region,
				AccessKey: cfg.Storage.S3.AccessKey,
				SecretKey: cfg.Storage.S3.SecretKey,
				Prefix:    cfg.Storage.S3.Prefix,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("opening cache storage: %w", err)
		}
		if c, ok := store.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
		provider = collector.NewCached(provider, store, cfg.Data.Cache.TTL, logger)
	}
	a.provider = provider

	builtin.Register(a.strategies)
	if err := applyStrategyParams(a.strategies, cfg); err != nil {
		a.Close()
		return nil, err
	}

	a.engine, err = backtest.NewEngine(backtest.Config{
		StartingCash: cfg.Backtest.StartingCash,
		WholeShares:  cfg.Backtest.WholeShares,
	}, logger, backtest.WithObserver(a.metrics))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.backtester = backtest.New(provider, a.engine, logger).WithRecorder(a.metrics)

	logger.Debug("app initialized",
		zap.String("provider", provider.Name()),
		zap.Strings("available_providers", a.providers.Names()),
		zap.Bool("cache", cfg.Data.Cache.Enabled),
	)
	return a, nil
}

// applyStrategyParams layers configured params over each builtin's defaults
func applyStrategyParams(reg *strategy.Registry, cfg *config.Config) error {
	for name := range cfg.Strategies {
		def, ok := reg.Get(name)
		if !ok {
			return core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("configured strategy %q is not registered", name))
		}
		defaults := maps.Clone(def.Defaults)
		if defaults == nil {
			defaults = map[string]any{}
		}
		maps.Copy(defaults, cfg.StrategyParams(name))
		// Fail at startup rather than on the first run.
		if _, err := def.New(defaults); err != nil {
			return fmt.Errorf("strategy %s: %w", name, err)
		}
		def.Defaults = defaults
		reg.Register(def)
	}
	return nil
}

// Config returns the configuration the app was built from
func (a *App) Config() *config.Config { return a.cfg }

// Provider returns the history provider backtests load bars from
func (a *App) Provider() collector.HistoryProvider { return a.provider }

// ProviderNamed returns a registered provider by name, bypassing the cache
func (a *App) ProviderNamed(name string) (collector.HistoryProvider, error) {
	return a.providers.MustGet(name)
}

// Parquet returns the local parquet bar store
func (a *App) Parquet() *parquetfile.Store { return a.parquet }

// Strategies returns the strategy registry
func (a *App) Strategies() *strategy.Registry { return a.strategies }

// Metrics returns the metrics registry
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Backtester returns the shared backtester
func (a *App) Backtester() *backtest.Backtester { return a.backtester }

// Close releases storage handles
func (a *App) Close() error {
	var err error
	for _, c := range a.closers {
		err = multierr.Append(err, c.Close())
	}
	a.closers = nil
	return err
}
