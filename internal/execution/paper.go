package execution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"fxengine/internal/model"
	"fxengine/internal/portfolio"
	"fxengine/internal/strategy"
)

// Fill is one simulated execution.
type Fill struct {
	OrderID   string          `json:"order_id"`
	Signal    strategy.Signal `json:"signal"`
	FillPrice float64         `json:"fill_price"`
	FillUnits float64         `json:"fill_units"` // signed: positive long
	FilledAt  time.Time       `json:"filled_at"`
	Slippage  float64         `json:"slippage"` // price units, always adverse
	Realized  float64         `json:"realized"` // P&L from any position reduction
}

// PaperExecutor simulates execution against the live price feed without
// touching the broker. Fills are applied to a Portfolio and optionally
// gated by a LimitGuard and recorded in a Journal.
type PaperExecutor struct {
	mu       sync.RWMutex
	fills    []Fill
	resultCh chan OrderResult
	orderSeq int64

	portfolio *portfolio.Portfolio
	guard     *portfolio.LimitGuard // nil disables limit checks
	journal   *Journal              // nil disables the audit log

	// PriceFn resolves the current price for market orders (signals with
	// Price == 0). Typically backed by the latest stream tick.
	PriceFn func(instrument string) float64

	slippagePips float64
}

func NewPaperExecutor(pf *portfolio.Portfolio, guard *portfolio.LimitGuard,
	journal *Journal, resultBufferSize int, slippagePips float64) *PaperExecutor {
	return &PaperExecutor{
		fills:        make([]Fill, 0, 256),
		resultCh:     make(chan OrderResult, resultBufferSize),
		portfolio:    pf,
		guard:        guard,
		journal:      journal,
		slippagePips: slippagePips,
	}
}

// Results returns the channel of order results.
func (p *PaperExecutor) Results() <-chan OrderResult {
	return p.resultCh
}

// Fills returns a snapshot of all fills.
func (p *PaperExecutor) Fills() []Fill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}

// Run consumes signals and simulates execution until ctx is cancelled or
// the channel closes.
func (p *PaperExecutor) Run(ctx context.Context, signalCh <-chan strategy.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signalCh:
			if !ok {
				return
			}
			p.resultCh <- p.Execute(sig)
		}
	}
}

// Execute simulates one signal synchronously.
func (p *PaperExecutor) Execute(sig strategy.Signal) OrderResult {
	price := sig.Price
	if price == 0 && p.PriceFn != nil {
		price = p.PriceFn(sig.Instrument)
	}
	if price == 0 {
		return OrderResult{Status: "REJECTED", Message: "no price available", Signal: sig}
	}

	units := sig.Units
	if sig.Action == strategy.ActionSell || sig.Action == strategy.ActionExit {
		units = -units
	}

	if p.guard != nil {
		if ok, reason := p.guard.CanTrade(sig.Instrument, units, price); !ok {
			log.Printf("[paper] rejected %s %s: %s", sig.Action, sig.Instrument, reason)
			return OrderResult{Status: "REJECTED", Message: reason, Signal: sig}
		}
	}

	// Slippage is always adverse: buys fill higher, sells lower.
	slippage := p.slippagePips * model.PipSize(sig.Instrument)
	if units > 0 {
		price += slippage
	} else {
		price -= slippage
	}

	realized := p.portfolio.Apply(sig.Instrument, units, price)
	if p.guard != nil && realized != 0 {
		p.guard.RecordPnL(realized)
	}

	p.mu.Lock()
	p.orderSeq++
	fill := Fill{
		OrderID:   fmt.Sprintf("PAPER-%d", p.orderSeq),
		Signal:    sig,
		FillPrice: price,
		FillUnits: units,
		FilledAt:  time.Now().UTC(),
		Slippage:  slippage,
		Realized:  realized,
	}
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	if p.journal != nil {
		if err := p.journal.RecordFill(fill); err != nil {
			log.Printf("[paper] journal: %v", err)
		}
	}

	log.Printf("[paper] %s %s %s %.0f @ %.5f (slip %.5f) order=%s",
		sig.StrategyName, sig.Action, sig.Instrument, units, price, slippage, fill.OrderID)

	return OrderResult{
		OrderID: fill.OrderID,
		Status:  "FILLED",
		Message: fmt.Sprintf("paper filled at %.5f", price),
		Signal:  sig,
	}
}
