package backtest

import (
	"time"

	"github.com/newthinker/tradelab/internal/core"
)

var baseTime = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// barsFromCloses builds daily bars with the given closes.
func barsFromCloses(closes ...float64) []core.OHLCV {
	bars := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = core.OHLCV{
			Symbol:   "TEST",
			Interval: "1d",
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   1000,
			Time:     baseTime.AddDate(0, 0, i),
		}
	}
	return bars
}

func mustSeries(closes ...float64) *Series {
	s, err := NewSeries(barsFromCloses(closes...))
	if err != nil {
		panic(err)
	}
	return s
}

// scriptedDecider returns decisions by call index and holds afterwards.
type scriptedDecider struct {
	decisions []Decision
	calls     int
}

func (s *scriptedDecider) Decide(bar core.OHLCV) (Decision, error) {
	i := s.calls
	s.calls++
	if i < len(s.decisions) {
		return s.decisions[i], nil
	}
	return Hold, nil
}
