package backtest

import (
	"time"

	"github.com/newthinker/tradelab/internal/core"
)

// Result holds the complete backtest output
type Result struct {
	Strategy     string          `json:"strategy"`
	Symbol       string          `json:"symbol"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	StartingCash float64         `json:"starting_cash"`
	FinalValue   float64         `json:"final_value"`
	Final        PortfolioState  `json:"final_state"`
	Equity       []EquityPoint   `json:"equity"`
	Prices       []EquityPoint   `json:"prices"` // close per bar, for charting
	Trades       []TradeLogEntry `json:"trades"`
	RoundTrips   []RoundTrip     `json:"round_trips"`
	Diagnostics  []Diagnostic    `json:"diagnostics"`
	Stats        Stats           `json:"stats"`
}

// EquityPoint is the marked portfolio value after one bar.
type EquityPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// TradeLogEntry records one executed order.
type TradeLogEntry struct {
	Time  time.Time `json:"time"`
	Side  core.Side `json:"side"`
	Price float64   `json:"price"`
	Size  float64   `json:"size"`
}

// Diagnostic is a recovered, per-bar decision callback failure.
type Diagnostic struct {
	Index   int       `json:"index"`
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// RoundTrip pairs an entry with its exit
type RoundTrip struct {
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   *time.Time `json:"exit_time,omitempty"` // nil if position still open
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	Size       float64    `json:"size"`
	Return     float64    `json:"return"` // fractional return
}

// Stats holds performance statistics
type Stats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`     // Percentage of profitable closed trades
	TotalReturn   float64 `json:"total_return"` // Percentage change of portfolio value
	MaxDrawdown   float64 `json:"max_drawdown"` // Largest peak-to-trough decline, percent
	SharpeRatio   float64 `json:"sharpe_ratio"` // Risk-adjusted return (annualized)
}

// IsWin returns true if the round trip was profitable
func (t RoundTrip) IsWin() bool {
	return t.Return > 0
}

// IsClosed returns true if the round trip has an exit
func (t RoundTrip) IsClosed() bool {
	return t.ExitTime != nil
}

// HasDiagnostics reports whether any bar's callback failed during the run.
func (r *Result) HasDiagnostics() bool {
	return len(r.Diagnostics) > 0
}
