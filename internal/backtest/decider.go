package backtest

import (
	"fmt"

	"github.com/newthinker/tradelab/internal/core"
)

// Decision is the raw intent returned by a Decider for one bar. Buy and Sell
// may both be set; the engine resolves them against the current state.
type Decision struct {
	Buy  bool `json:"buy"`
	Sell bool `json:"sell"`
}

// Hold is the zero Decision.
var Hold = Decision{}

// Resolve maps the raw intent onto the action that applies in state.
// A buy only applies while flat and a sell only while holding; anything else holds.
func (d Decision) Resolve(state State) core.Action {
	switch {
	case d.Buy && state == StateFlat:
		return core.ActionBuy
	case d.Sell && state == StateHolding:
		return core.ActionSell
	default:
		return core.ActionHold
	}
}

// Decider is the user-supplied decision callback. It sees bars one at a time in
// chronological order and may keep private state between calls. A Decider
// instance belongs to a single run.
type Decider interface {
	Decide(bar core.OHLCV) (Decision, error)
}

// DeciderFunc adapts a plain function to the Decider interface.
type DeciderFunc func(bar core.OHLCV) (Decision, error)

// Decide calls f(bar).
func (f DeciderFunc) Decide(bar core.OHLCV) (Decision, error) {
	return f(bar)
}

// safeDecide invokes d and converts a panic into an error.
func safeDecide(d Decider, bar core.OHLCV) (dec Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			dec = Hold
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.Decide(bar)
}
