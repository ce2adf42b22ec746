// Package notify delivers surfaced trading signals to external channels
// (webhooks, logs).
package notify

import (
	"context"
	"log"

	"fxengine/internal/model"
)

// Notifier is the interface for all delivery backends.
type Notifier interface {
	// NotifySignal delivers a signal. Returns error if delivery fails.
	NotifySignal(ctx context.Context, sig model.Signal) error
}

// LogNotifier logs signals instead of delivering them (useful for
// development and as a fallback when no webhook is configured).
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifySignal(ctx context.Context, sig model.Signal) error {
	log.Printf("[notify] %s %s %s conf=%.0f price=%.5f reason=%q",
		sig.Instrument, sig.Type, sig.Strength, sig.Confidence, sig.Price, sig.Reason)
	return nil
}

// Multi fans a signal out to several notifiers; the first error wins but
// all notifiers are attempted.
type Multi []Notifier

func (m Multi) NotifySignal(ctx context.Context, sig model.Signal) error {
	var firstErr error
	for _, n := range m {
		if err := n.NotifySignal(ctx, sig); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
