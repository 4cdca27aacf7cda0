package collector

import (
	"context"
	"time"

	"github.com/newthinker/tradelab/internal/core"
)

// Config holds collector configuration
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Dir       string
}

// HistoryProvider fetches historical bars for one symbol. Returned bars are
// ordered oldest first.
type HistoryProvider interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}
