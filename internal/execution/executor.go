// Package execution routes strategy signals into order placement.
//
// Two executors share one result contract: PaperExecutor simulates fills
// locally for paper trading, BrokerExecutor places real market orders
// through the broker API.
package execution

import (
	"context"
	"fmt"
	"log"

	"fxengine/internal/broker"
	"fxengine/internal/model"
	"fxengine/internal/strategy"
)

// OrderResult is the outcome of acting on one signal.
type OrderResult struct {
	OrderID string          `json:"order_id"`
	Status  string          `json:"status"` // FILLED, PLACED, REJECTED, ERROR
	Message string          `json:"message"`
	Signal  strategy.Signal `json:"signal"`
}

// BrokerExecutor places live market orders for strategy signals.
type BrokerExecutor struct {
	client   *broker.Client
	resultCh chan OrderResult
}

func NewBrokerExecutor(client *broker.Client, resultBufferSize int) *BrokerExecutor {
	return &BrokerExecutor{
		client:   client,
		resultCh: make(chan OrderResult, resultBufferSize),
	}
}

// Results returns the channel of order results.
func (e *BrokerExecutor) Results() <-chan OrderResult {
	return e.resultCh
}

// Run consumes signals and places orders until ctx is cancelled or the
// channel closes.
func (e *BrokerExecutor) Run(ctx context.Context, signalCh <-chan strategy.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signalCh:
			if !ok {
				return
			}
			e.resultCh <- e.execute(ctx, sig)
		}
	}
}

func (e *BrokerExecutor) execute(ctx context.Context, sig strategy.Signal) OrderResult {
	units := sig.Units
	if sig.Action == strategy.ActionSell || sig.Action == strategy.ActionExit {
		units = -units
	}
	resp, err := e.client.PlaceOrder(ctx, model.OrderRequest{
		Instrument: sig.Instrument,
		Units:      units,
		Type:       "MARKET",
	})
	if err != nil {
		log.Printf("[executor] %s %s failed: %v", sig.Action, sig.Instrument, err)
		return OrderResult{Status: "ERROR", Message: err.Error(), Signal: sig}
	}
	return OrderResult{
		OrderID: resp.LastTransactionID,
		Status:  "PLACED",
		Message: fmt.Sprintf("market order for %.0f units", units),
		Signal:  sig,
	}
}
