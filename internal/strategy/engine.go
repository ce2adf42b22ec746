// Package strategy provides incremental per-candle trading strategies.
//
// A Strategy receives closed candles one at a time and emits trading
// signals (BUY/SELL). Unlike the batch signal generator, strategies keep
// incremental state and are meant to sit on a live candle feed.
package strategy

import (
	"context"
	"log"

	"fxengine/internal/model"
)

// Signal represents a trading signal emitted by a strategy.
type Signal struct {
	StrategyName string  `json:"strategy_name"`
	Action       Action  `json:"action"`
	Instrument   string  `json:"instrument"`
	Units        float64 `json:"units"`
	Price        float64 `json:"price"` // 0 = market order
	Reason       string  `json:"reason"`
}

// Action represents a trading action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionExit Action = "EXIT"
)

// Strategy is the interface that all incremental strategies implement.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// OnCandle is called for each closed candle. Return a Signal if the
	// strategy wants to act, or nil to skip.
	OnCandle(instrument string, candle model.OHLC) *Signal
}

// Engine routes candles to registered strategies and collects signals on
// one channel.
type Engine struct {
	strategies []Strategy
	signals    chan Signal
}

func NewEngine(buffer int) *Engine {
	if buffer <= 0 {
		buffer = 64
	}
	return &Engine{signals: make(chan Signal, buffer)}
}

// Register adds a strategy. Not safe to call once candles flow.
func (e *Engine) Register(s Strategy) {
	e.strategies = append(e.strategies, s)
	log.Printf("[strategy] registered %s", s.Name())
}

// Signals returns the signal output channel.
func (e *Engine) Signals() <-chan Signal {
	return e.signals
}

// OnCandle feeds one closed candle to every strategy. Signals that cannot
// be buffered are dropped with a log line.
func (e *Engine) OnCandle(ctx context.Context, instrument string, candle model.OHLC) {
	for _, s := range e.strategies {
		sig := s.OnCandle(instrument, candle)
		if sig == nil {
			continue
		}
		select {
		case e.signals <- *sig:
		case <-ctx.Done():
			return
		default:
			log.Printf("[strategy] signal channel full, dropping %s %s", sig.Action, sig.Instrument)
		}
	}
}
