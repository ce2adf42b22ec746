package portfolio

import (
	"fmt"
	"log"
	"sync"
)

// Limits defines runtime risk thresholds for the paper trader. These gate
// new trades at execution time; per-trade sizing lives in the analysis
// package.
type Limits struct {
	MaxPositionUnits float64 `json:"max_position_units"` // max |units| per instrument
	MaxDailyLoss     float64 `json:"max_daily_loss"`     // max realized daily loss
	MaxOpenPositions int     `json:"max_open_positions"`
	MaxExposure      float64 `json:"max_exposure"`     // max total |units| × price
	MaxDrawdownPct   float64 `json:"max_drawdown_pct"` // 0-100
}

// DefaultLimits returns conservative defaults for a 10k practice account.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionUnits: 50000,
		MaxDailyLoss:     200,
		MaxOpenPositions: 5,
		MaxExposure:      100000,
		MaxDrawdownPct:   5.0,
	}
}

// LimitGuard validates trades against Limits and tracks equity drawdown.
type LimitGuard struct {
	mu        sync.RWMutex
	limits    Limits
	portfolio *Portfolio

	dailyPnL   float64
	equity     float64
	peakEquity float64
}

func NewLimitGuard(limits Limits, pf *Portfolio, initialEquity float64) *LimitGuard {
	return &LimitGuard{
		limits:     limits,
		portfolio:  pf,
		equity:     initialEquity,
		peakEquity: initialEquity,
	}
}

// CanTrade reports whether a new trade passes every limit. The returned
// reason names the first violated limit.
func (g *LimitGuard) CanTrade(instrument string, units, price float64) (bool, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if abs(units) > g.limits.MaxPositionUnits {
		return false, fmt.Sprintf("position size %.0f exceeds limit %.0f", abs(units), g.limits.MaxPositionUnits)
	}
	if g.dailyPnL <= -g.limits.MaxDailyLoss {
		return false, fmt.Sprintf("daily loss limit reached (%.2f)", g.dailyPnL)
	}
	if g.portfolio.OpenCount() >= g.limits.MaxOpenPositions {
		return false, fmt.Sprintf("open positions at limit (%d)", g.limits.MaxOpenPositions)
	}
	if g.portfolio.TotalExposure()+abs(units)*price > g.limits.MaxExposure {
		return false, "exposure limit exceeded"
	}
	if g.peakEquity > 0 {
		drawdown := (g.peakEquity - g.equity) / g.peakEquity * 100
		if drawdown >= g.limits.MaxDrawdownPct {
			return false, fmt.Sprintf("drawdown %.1f%% at limit", drawdown)
		}
	}
	return true, ""
}

// RecordPnL folds realized P&L into the daily total and equity curve.
func (g *LimitGuard) RecordPnL(realized float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyPnL += realized
	g.equity += realized
	if g.equity > g.peakEquity {
		g.peakEquity = g.equity
	}
	if g.dailyPnL <= -g.limits.MaxDailyLoss {
		log.Printf("[portfolio] daily loss limit hit: %.2f", g.dailyPnL)
	}
}

// ResetDaily clears the daily P&L counter (call at session rollover).
func (g *LimitGuard) ResetDaily() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyPnL = 0
}

// Equity returns the current equity estimate.
func (g *LimitGuard) Equity() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.equity
}
