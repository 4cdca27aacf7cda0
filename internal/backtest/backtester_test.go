package backtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider implements HistoryProvider for testing
type mockProvider struct {
	data  []core.OHLCV
	err   error
	calls int
}

func (m *mockProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

type recorder struct {
	mu       sync.Mutex
	statuses []string
}

func (r *recorder) RecordBacktest(status string, duration float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func testRequest() Request {
	return Request{Symbol: "TEST", Start: baseTime, End: baseTime.AddDate(0, 1, 0)}
}

func TestBacktester_Run(t *testing.T) {
	provider := &mockProvider{data: barsFromCloses(10, 20, 10)}
	rec := &recorder{}
	bt := New(provider, newTestEngine(t, 100), nil).WithRecorder(rec)

	result, err := bt.Run(context.Background(), testRequest(), "buy_once",
		&scriptedDecider{decisions: []Decision{{Buy: true}}})
	require.NoError(t, err)

	assert.Equal(t, "buy_once", result.Strategy)
	assert.Equal(t, "TEST", result.Symbol)
	assert.Equal(t, 100.0, result.FinalValue)
	assert.Equal(t, []string{"success"}, rec.statuses)
}

func TestBacktester_Run_NoData(t *testing.T) {
	rec := &recorder{}
	bt := New(&mockProvider{data: []core.OHLCV{}}, newTestEngine(t, 100), nil).WithRecorder(rec)

	_, err := bt.Run(context.Background(), testRequest(), "test", &scriptedDecider{})
	assert.ErrorIs(t, err, core.ErrInvalidData)
	assert.ErrorIs(t, err, core.ErrNoData)
	assert.Equal(t, []string{"failed"}, rec.statuses)
}

func TestBacktester_Run_ProviderError(t *testing.T) {
	bt := New(&mockProvider{err: errors.New("provider error")}, newTestEngine(t, 100), nil)

	_, err := bt.Run(context.Background(), testRequest(), "test", &scriptedDecider{})
	assert.ErrorIs(t, err, core.ErrCollectorFailed)
}

func TestBacktester_Run_UnorderedData(t *testing.T) {
	bars := barsFromCloses(10, 11, 12)
	bars[1], bars[2] = bars[2], bars[1]
	bt := New(&mockProvider{data: bars}, newTestEngine(t, 100), nil)

	_, err := bt.Run(context.Background(), testRequest(), "test", &scriptedDecider{})
	assert.ErrorIs(t, err, core.ErrInvalidData)
}

func TestBacktester_Run_BadRequest(t *testing.T) {
	provider := &mockProvider{data: barsFromCloses(10)}
	bt := New(provider, newTestEngine(t, 100), nil)

	_, err := bt.Run(context.Background(), Request{Start: baseTime, End: baseTime}, "test", &scriptedDecider{})
	assert.ErrorIs(t, err, core.ErrConfigMissing)

	_, err = bt.Run(context.Background(), Request{Symbol: "TEST", Start: baseTime, End: baseTime.AddDate(0, 0, -1)}, "test", &scriptedDecider{})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)

	assert.Equal(t, 0, provider.calls, "provider must not be called for invalid requests")
}

func TestBacktester_Run_ContextCancellation(t *testing.T) {
	bt := New(&mockProvider{data: barsFromCloses(10, 11)}, newTestEngine(t, 100), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := bt.Run(ctx, testRequest(), "test", &scriptedDecider{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBacktester_RunMany(t *testing.T) {
	provider := &mockProvider{data: barsFromCloses(10, 20, 40, 20)}
	rec := &recorder{}
	bt := New(provider, newTestEngine(t, 100), nil).WithRecorder(rec)

	results, err := bt.RunMany(context.Background(), testRequest(), []Candidate{
		{Name: "hold", Decider: &scriptedDecider{}},
		{Name: "buy_once", Decider: &scriptedDecider{decisions: []Decision{{Buy: true}}}},
		{Name: "round_trip", Decider: &scriptedDecider{decisions: []Decision{{Buy: true}, {}, {Sell: true}}}},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 1, provider.calls, "history is fetched once")
	assert.Equal(t, "hold", results[0].Strategy)
	assert.Equal(t, 100.0, results[0].FinalValue)
	assert.Equal(t, 200.0, results[1].FinalValue)
	assert.Equal(t, 400.0, results[2].FinalValue)
	assert.Len(t, rec.statuses, 3)
}

func TestBacktester_RunMany_Failure(t *testing.T) {
	bt := New(&mockProvider{data: barsFromCloses(10, 20)}, newTestEngine(t, 100), nil)

	_, err := bt.RunMany(context.Background(), testRequest(), []Candidate{
		{Name: "ok", Decider: &scriptedDecider{}},
		{Name: "missing", Decider: nil},
	})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "missing")
}
