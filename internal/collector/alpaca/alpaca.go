package alpaca

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/newthinker/tradelab/internal/collector"
	"github.com/newthinker/tradelab/internal/core"
	"go.uber.org/zap"
)

// barsClient is the subset of *marketdata.Client used here
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Alpaca fetches US equity bars from the Alpaca market-data API
type Alpaca struct {
	client barsClient
	feed   string
	logger *zap.Logger
}

// New creates an Alpaca provider from API credentials. An empty BaseURL
// uses the SDK default.
func New(cfg collector.Config, feed string, logger *zap.Logger) *Alpaca {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	return newWithClient(marketdata.NewClient(opts), feed, logger)
}

func newWithClient(client barsClient, feed string, logger *zap.Logger) *Alpaca {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alpaca{
		client: client,
		feed:   feed,
		logger: logger,
	}
}

func (a *Alpaca) Name() string {
	return "alpaca"
}

// FetchHistory fetches bars for symbol between start and end inclusive
func (a *Alpaca) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if symbol == "" {
		return nil, fmt.Errorf("symbol cannot be empty")
	}
	if interval == "" {
		interval = "1d"
	}

	tf, err := toTimeFrame(interval)
	if err != nil {
		return nil, err
	}

	req := marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
	}
	if a.feed != "" {
		req.Feed = marketdata.Feed(a.feed)
	}

	bars, err := a.client.GetBars(strings.ToUpper(symbol), req)
	if err != nil {
		return nil, fmt.Errorf("GetBars: %w", err)
	}

	data := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		data = append(data, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			Volume:   float64(b.Volume),
			Time:     b.Timestamp.UTC(),
		})
	}

	a.logger.Debug("fetched alpaca bars",
		zap.String("symbol", symbol),
		zap.Int("bars", len(data)),
	)
	return data, nil
}

func toTimeFrame(interval string) (marketdata.TimeFrame, error) {
	switch interval {
	case "1m":
		return marketdata.OneMin, nil
	case "1h":
		return marketdata.OneHour, nil
	case "1d":
		return marketdata.OneDay, nil
	default:
		return marketdata.TimeFrame{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("alpaca: unsupported interval %q", interval))
	}
}
