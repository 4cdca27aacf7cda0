package backtest

import "math"

// State is the position state of a Portfolio.
type State int

const (
	StateFlat State = iota
	StateHolding
)

func (s State) String() string {
	if s == StateHolding {
		return "holding"
	}
	return "flat"
}

// PortfolioState is a point-in-time snapshot of a Portfolio.
type PortfolioState struct {
	Cash         float64 `json:"cash"`
	PositionSize float64 `json:"position_size"`
	LastClose    float64 `json:"last_close"`
}

// Portfolio is the single-position, long-only broker state of one run.
// Buys invest all available cash; sells liquidate the whole position.
type Portfolio struct {
	cash        float64
	size        float64
	lastClose   float64
	wholeShares bool
}

// NewPortfolio creates a flat portfolio holding cash.
func NewPortfolio(cash float64, wholeShares bool) *Portfolio {
	return &Portfolio{cash: cash, wholeShares: wholeShares}
}

// State returns StateHolding when a position is open.
func (p *Portfolio) State() State {
	if p.size > 0 {
		return StateHolding
	}
	return StateFlat
}

func (p *Portfolio) Cash() float64 { return p.cash }

func (p *Portfolio) Size() float64 { return p.size }

// Buy opens a position with all available cash at price. It reports false,
// leaving the portfolio unchanged, when already holding or when the
// resulting size would be zero.
func (p *Portfolio) Buy(price float64) (float64, bool) {
	if p.State() == StateHolding || price <= 0 || p.cash <= 0 {
		return 0, false
	}

	if !p.wholeShares {
		p.size = p.cash / price
		p.cash = 0
		return p.size, true
	}

	size := math.Floor(p.cash / price)
	if size <= 0 {
		return 0, false
	}
	p.size = size
	p.cash = math.Max(0, p.cash-size*price)
	return size, true
}

// Sell liquidates the whole position at price. It reports false when flat.
func (p *Portfolio) Sell(price float64) (float64, bool) {
	if p.State() == StateFlat {
		return 0, false
	}
	size := p.size
	p.cash += size * price
	p.size = 0
	return size, true
}

// Mark records close as the latest price and returns the total value.
func (p *Portfolio) Mark(close float64) float64 {
	p.lastClose = close
	return p.Value(close)
}

// Value returns cash plus the position marked at price.
func (p *Portfolio) Value(price float64) float64 {
	return p.cash + p.size*price
}

// Snapshot returns the current state.
func (p *Portfolio) Snapshot() PortfolioState {
	return PortfolioState{
		Cash:         p.cash,
		PositionSize: p.size,
		LastClose:    p.lastClose,
	}
}
