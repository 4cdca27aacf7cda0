package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/storage/archive"
	"go.uber.org/zap"
)

// cacheEntry is the stored form of one fetch
type cacheEntry struct {
	FetchedAt time.Time    `json:"fetched_at"`
	Bars      []core.OHLCV `json:"bars"`
}

// Cached wraps a provider with an archive-backed cache of fetched history.
// Entries older than ttl are refetched; a zero ttl never expires.
type Cached struct {
	inner  HistoryProvider
	store  archive.Storage
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewCached creates a caching wrapper around inner
func NewCached(inner HistoryProvider, store archive.Storage, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (c *Cached) Name() string {
	return c.inner.Name()
}

// FetchHistory serves from the cache when a fresh entry exists. Storage
// failures fall through to the wrapped provider.
func (c *Cached) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	key := c.key(symbol, start, end, interval)

	if bars, ok := c.load(ctx, key); ok {
		c.logger.Debug("history cache hit", zap.String("key", key), zap.Int("bars", len(bars)))
		return bars, nil
	}

	bars, err := c.inner.FetchHistory(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return bars, nil
	}

	data, err := json.Marshal(cacheEntry{FetchedAt: c.now().UTC(), Bars: bars})
	if err == nil {
		err = c.store.Write(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("history cache write failed", zap.String("key", key), zap.Error(err))
	}
	return bars, nil
}

func (c *Cached) load(ctx context.Context, key string) ([]core.OHLCV, bool) {
	data, err := c.store.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("history cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("history cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.FetchedAt) > c.ttl {
		return nil, false
	}
	return entry.Bars, true
}

// key is bars/<provider>/<SYMBOL>/<interval>/<start>_<end>.json
func (c *Cached) key(symbol string, start, end time.Time, interval string) string {
	if interval == "" {
		interval = "1d"
	}
	return fmt.Sprintf("bars/%s/%s/%s/%s_%s.json",
		c.inner.Name(),
		strings.ToUpper(symbol),
		interval,
		start.UTC().Format("20060102"),
		end.UTC().Format("20060102"),
	)
}
