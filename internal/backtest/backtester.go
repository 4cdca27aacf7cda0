package backtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/tradelab/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HistoryProvider defines the interface for fetching historical OHLCV data
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// RunRecorder receives one event per completed or failed backtest.
type RunRecorder interface {
	RecordBacktest(status string, duration float64)
}

// Request describes the data a backtest replays.
type Request struct {
	Symbol   string
	Start    time.Time
	End      time.Time
	Interval string // defaults to "1d"
}

// Candidate is a named decider to run in RunMany. Each candidate must carry
// its own Decider instance.
type Candidate struct {
	Name    string
	Decider Decider
}

// Backtester loads history from a provider and replays it through an Engine
type Backtester struct {
	provider HistoryProvider
	engine   *Engine
	recorder RunRecorder
	logger   *zap.Logger
}

// New creates a new Backtester with the given history provider and engine
func New(provider HistoryProvider, engine *Engine, logger *zap.Logger) *Backtester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backtester{
		provider: provider,
		engine:   engine,
		logger:   logger,
	}
}

// WithRecorder sets the run recorder and returns b.
func (b *Backtester) WithRecorder(r RunRecorder) *Backtester {
	b.recorder = r
	return b
}

// WithEngine returns a copy of b that replays through engine.
func (b *Backtester) WithEngine(engine *Engine) *Backtester {
	clone := *b
	clone.engine = engine
	return &clone
}

// Engine returns the engine used for replays.
func (b *Backtester) Engine() *Engine {
	return b.engine
}

// Load fetches history for req and validates it into a Series.
func (b *Backtester) Load(ctx context.Context, req Request) (*Series, error) {
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("symbol is required"))
	}
	if req.End.Before(req.Start) {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("end date must be after start date"))
	}
	interval := req.Interval
	if interval == "" {
		interval = "1d"
	}

	bars, err := b.provider.FetchHistory(ctx, req.Symbol, req.Start, req.End, interval)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}

	return NewSeries(bars)
}

// Run executes a backtest of decider for req
func (b *Backtester) Run(ctx context.Context, req Request, strategy string, decider Decider) (*Result, error) {
	start := time.Now()

	result, err := b.run(ctx, req, strategy, decider)
	b.record(err, start)
	if err != nil {
		b.logger.Warn("backtest failed",
			zap.String("strategy", strategy),
			zap.String("symbol", req.Symbol),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

func (b *Backtester) run(ctx context.Context, req Request, strategy string, decider Decider) (*Result, error) {
	series, err := b.Load(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.engine.Run(strategy, series, decider)
}

// RunMany fetches history once and replays it through every candidate
// concurrently. Each replay gets its own copy of the series and its own
// portfolio; results are returned in candidate order.
func (b *Backtester) RunMany(ctx context.Context, req Request, candidates []Candidate) ([]*Result, error) {
	series, err := b.Load(ctx, req)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(candidates))
	g, gctx := errgroup.WithContext(ctx)

	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			r, err := b.engine.Run(c.Name, series.Clone(), c.Decider)
			b.record(err, start)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Backtester) record(err error, start time.Time) {
	if b.recorder == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	b.recorder.RecordBacktest(status, time.Since(start).Seconds())
}
