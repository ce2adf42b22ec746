// Package portfolio tracks open positions and P&L for paper trading.
//
// It maintains a real-time view of positions keyed by instrument, marks
// them to the latest stream price, and exposes realized plus unrealized
// P&L in account currency terms (price units × units).
package portfolio

import (
	"sync"

	"fxengine/internal/model"
)

// Position is one instrument's net position. Positive units are long,
// negative short.
type Position struct {
	Instrument string  `json:"instrument"`
	Units      float64 `json:"units"`
	AvgPrice   float64 `json:"avg_price"`
	LastPrice  float64 `json:"last_price"`
}

// UnrealizedPnL marks the position to LastPrice.
func (p *Position) UnrealizedPnL() float64 {
	if p.LastPrice == 0 {
		return 0
	}
	return (p.LastPrice - p.AvgPrice) * p.Units
}

// Portfolio tracks all open positions.
type Portfolio struct {
	mu        sync.RWMutex
	positions map[string]*Position
}

func New() *Portfolio {
	return &Portfolio{positions: make(map[string]*Position)}
}

// UpdatePrice marks the instrument's position to the tick mid.
func (pf *Portfolio) UpdatePrice(tick model.PriceTick) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pos, ok := pf.positions[tick.Instrument]; ok {
		pos.LastPrice = tick.Mid()
	}
}

// Apply folds a fill into the position. Positive units buy, negative sell.
// Returns the realized P&L from any position reduction.
func (pf *Portfolio) Apply(instrument string, units, price float64) float64 {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	pos, ok := pf.positions[instrument]
	if !ok {
		pos = &Position{Instrument: instrument}
		pf.positions[instrument] = pos
	}

	var realized float64
	switch {
	case pos.Units == 0 || sameSign(pos.Units, units):
		// Opening or adding: weighted average entry.
		total := pos.AvgPrice*pos.Units + price*units
		pos.Units += units
		if pos.Units != 0 {
			pos.AvgPrice = total / pos.Units
		}
	default:
		// Reducing or flipping.
		closed := units
		if abs(units) > abs(pos.Units) {
			closed = -pos.Units
		}
		realized = (price - pos.AvgPrice) * -closed
		pos.Units += units
		if pos.Units == 0 {
			pos.AvgPrice = 0
		} else if !sameSign(pos.Units, -closed) {
			// Flipped through zero: remainder opens at the fill price.
			pos.AvgPrice = price
		}
	}
	pos.LastPrice = price
	if pos.Units == 0 {
		delete(pf.positions, instrument)
	}
	return realized
}

// Positions returns a snapshot of all open positions.
func (pf *Portfolio) Positions() []Position {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	out := make([]Position, 0, len(pf.positions))
	for _, p := range pf.positions {
		out = append(out, *p)
	}
	return out
}

// OpenCount returns the number of open positions.
func (pf *Portfolio) OpenCount() int {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return len(pf.positions)
}

// TotalUnrealizedPnL sums unrealized P&L across positions.
func (pf *Portfolio) TotalUnrealizedPnL() float64 {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	var total float64
	for _, p := range pf.positions {
		total += p.UnrealizedPnL()
	}
	return total
}

// TotalExposure sums |units| × last price across positions.
func (pf *Portfolio) TotalExposure() float64 {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	var total float64
	for _, p := range pf.positions {
		price := p.LastPrice
		if price == 0 {
			price = p.AvgPrice
		}
		total += abs(p.Units) * price
	}
	return total
}

func sameSign(a, b float64) bool { return (a > 0) == (b > 0) }

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
