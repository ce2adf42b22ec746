package model

import "time"

// SignalType is the trade direction a signal recommends.
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
)

// SignalStatus tracks a signal through its lifecycle.
type SignalStatus string

const (
	SignalActive    SignalStatus = "active"
	SignalTriggered SignalStatus = "triggered"
	SignalExpired   SignalStatus = "expired"
)

// Signal is one surfaced trading recommendation.
type Signal struct {
	ID          string       `json:"id"`
	Instrument  string       `json:"instrument"`
	Type        SignalType   `json:"type"`
	Strength    string       `json:"strength"` // weak | moderate | strong
	Confidence  float64      `json:"confidence"`
	Price       float64      `json:"price"`
	Time        time.Time    `json:"timestamp"`
	Indicators  []string     `json:"indicators"`
	Reason      string       `json:"reason"`
	StopLoss    float64      `json:"stopLoss,omitempty"`
	TakeProfit  float64      `json:"takeProfit,omitempty"`
	Granularity string       `json:"timeframe"`
	Status      SignalStatus `json:"status"`
}

// ExpiryDuration returns how long a signal stays actionable for its
// granularity: fast timeframes go stale quickly.
func (s Signal) ExpiryDuration() time.Duration {
	switch s.Granularity {
	case "M5":
		return 2 * time.Hour
	case "H1":
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ExpiresAt returns the instant the signal stops being actionable.
func (s Signal) ExpiresAt() time.Time {
	return s.Time.Add(s.ExpiryDuration())
}
