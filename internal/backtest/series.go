package backtest

import (
	"fmt"

	"github.com/newthinker/tradelab/internal/core"
)

// Series is an immutable, strictly time-ordered sequence of bars for one instrument.
type Series struct {
	bars []core.OHLCV
}

// NewSeries validates bars and returns a Series owning a private copy of them.
// It fails with core.ErrInvalidData when bars is empty, when any bar carries a
// non-finite or negative field, or when timestamps are not strictly increasing.
func NewSeries(bars []core.OHLCV) (*Series, error) {
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrInvalidData, core.ErrNoData)
	}

	owned := make([]core.OHLCV, len(bars))
	copy(owned, bars)

	for i, bar := range owned {
		if err := bar.Validate(); err != nil {
			return nil, core.WrapError(core.ErrInvalidData,
				fmt.Errorf("bar %d (%s): %w", i, bar.Time.Format("2006-01-02"), err))
		}
		if i > 0 && !bar.Time.After(owned[i-1].Time) {
			return nil, core.WrapError(core.ErrInvalidData,
				fmt.Errorf("bar %d (%s): timestamps not strictly increasing", i, bar.Time.Format("2006-01-02")))
		}
	}

	return &Series{bars: owned}, nil
}

// Len returns the number of bars.
func (s *Series) Len() int {
	return len(s.bars)
}

// At returns the bar at index i. It panics if i is out of range.
func (s *Series) At(i int) core.OHLCV {
	return s.bars[i]
}

// First returns the earliest bar.
func (s *Series) First() core.OHLCV {
	return s.bars[0]
}

// Last returns the latest bar.
func (s *Series) Last() core.OHLCV {
	return s.bars[len(s.bars)-1]
}

// Symbol returns the instrument symbol carried by the bars, if any.
func (s *Series) Symbol() string {
	return s.bars[0].Symbol
}

// Bars returns a copy of the underlying bars.
func (s *Series) Bars() []core.OHLCV {
	out := make([]core.OHLCV, len(s.bars))
	copy(out, s.bars)
	return out
}

// Clone returns an independent Series over the same bars.
func (s *Series) Clone() *Series {
	return &Series{bars: s.Bars()}
}
