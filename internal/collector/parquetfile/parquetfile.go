// Package parquetfile stores daily bars as parquet files and replays them
// as a history provider.
package parquetfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"
)

// BarRecord is the on-disk schema for one bar.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Interval  string  `parquet:"interval"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// Store reads and writes bars under <dir>/<SYMBOL>/<YYYY>.parquet
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a store rooted at dir
func New(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

func (s *Store) Name() string {
	return "parquet"
}

// Write merges bars into the per-year files of their symbol. A bar with the
// same timestamp as an existing record replaces it.
func (s *Store) Write(_ context.Context, bars []core.OHLCV) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		if b.Symbol == "" {
			return core.WrapError(core.ErrInvalidData, fmt.Errorf("bar at %s has no symbol", b.Time.Format(time.RFC3339)))
		}
		k := key{symbol: strings.ToUpper(b.Symbol), year: b.Time.UTC().Year()}
		groups[k] = append(groups[k], toRecord(b))
	}

	for k, records := range groups {
		path := s.path(k.symbol, k.year)

		existing, err := readFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return core.WrapError(core.ErrStorageFailed, fmt.Errorf("reading %s: %w", path, err))
		}
		merged := merge(existing, records)

		if err := writeFile(path, merged); err != nil {
			return core.WrapError(core.ErrStorageFailed, fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err))
		}
		s.logger.Debug("wrote parquet bars",
			zap.String("path", path),
			zap.Int("rows", len(merged)),
		)
	}
	return nil
}

// FetchHistory reads bars for symbol with start <= time <= end. interval is
// ignored; files hold whatever interval was written.
func (s *Store) FetchHistory(ctx context.Context, symbol string, start, end time.Time, _ string) ([]core.OHLCV, error) {
	symbol = strings.ToUpper(symbol)
	if _, err := os.Stat(filepath.Join(s.dir, symbol)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("no parquet data for %s in %s", symbol, s.dir))
		}
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	var bars []core.OHLCV
	for year := start.UTC().Year(); year <= end.UTC().Year(); year++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, err := readFile(s.path(symbol, year))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}

		for _, r := range records {
			t := time.UnixMilli(r.Timestamp).UTC()
			if t.Before(start) || t.After(end) {
				continue
			}
			bars = append(bars, fromRecord(r))
		}
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// path returns <dir>/<SYMBOL>/<YYYY>.parquet
func (s *Store) path(symbol string, year int) string {
	return filepath.Join(s.dir, symbol, fmt.Sprintf("%d.parquet", year))
}

func toRecord(b core.OHLCV) BarRecord {
	return BarRecord{
		Symbol:    strings.ToUpper(b.Symbol),
		Interval:  b.Interval,
		Timestamp: b.Time.UnixMilli(),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
	}
}

func fromRecord(r BarRecord) core.OHLCV {
	return core.OHLCV{
		Symbol:   r.Symbol,
		Interval: r.Interval,
		Open:     r.Open,
		High:     r.High,
		Low:      r.Low,
		Close:    r.Close,
		Volume:   r.Volume,
		Time:     time.UnixMilli(r.Timestamp).UTC(),
	}
}

func writeFile(path string, records []BarRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readFile(path string) ([]BarRecord, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[BarRecord](path)
}

// merge deduplicates by timestamp, preferring incoming records, and returns
// the result sorted by time.
func merge(existing, incoming []BarRecord) []BarRecord {
	byTS := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		byTS[r.Timestamp] = r
	}
	for _, r := range incoming {
		byTS[r.Timestamp] = r
	}

	out := make([]BarRecord, 0, len(byTS))
	for _, r := range byTS {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}
