package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// PriceTick is one live price update from the broker's pricing stream.
type PriceTick struct {
	Instrument string    `json:"instrument"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	Time       time.Time `json:"time"`
}

// Mid returns the bid/ask midpoint.
func (t PriceTick) Mid() float64 { return (t.Bid + t.Ask) / 2 }

// Spread returns the ask-bid distance.
func (t PriceTick) Spread() float64 { return t.Ask - t.Bid }

// JSON returns the JSON-encoded tick (ignoring errors for hot-path usage).
func (t PriceTick) JSON() []byte {
	b, _ := json.Marshal(t)
	return b
}

// streamMessage is one newline-delimited JSON line on the pricing stream.
type streamMessage struct {
	Type       string        `json:"type"`
	Instrument string        `json:"instrument"`
	Time       string        `json:"time"`
	Bids       []PriceBucket `json:"bids"`
	Asks       []PriceBucket `json:"asks"`
}

// ParseStreamLine parses one stream line. It returns (tick, true, nil) for
// a PRICE message, (zero, false, nil) for heartbeats and other message
// types, and an error for malformed lines — the caller logs and skips
// those without terminating the stream.
func ParseStreamLine(line []byte) (PriceTick, bool, error) {
	var msg streamMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return PriceTick{}, false, fmt.Errorf("model: stream line: %w", err)
	}
	if msg.Type != "PRICE" {
		return PriceTick{}, false, nil
	}
	if len(msg.Bids) == 0 || len(msg.Asks) == 0 {
		return PriceTick{}, false, fmt.Errorf("model: stream PRICE for %s has an empty book", msg.Instrument)
	}
	bid, err := parsePrice(msg.Bids[0].Price, "stream.bid")
	if err != nil {
		return PriceTick{}, false, err
	}
	ask, err := parsePrice(msg.Asks[0].Price, "stream.ask")
	if err != nil {
		return PriceTick{}, false, err
	}
	ts, err := time.Parse(time.RFC3339, msg.Time)
	if err != nil {
		ts = time.Now().UTC()
	}
	return PriceTick{Instrument: msg.Instrument, Bid: bid, Ask: ask, Time: ts}, true, nil
}

// PipSize returns the standardized pip increment for an instrument:
// 0.01 for JPY-quoted pairs, 0.0001 otherwise.
func PipSize(instrument string) float64 {
	for i := 0; i+2 < len(instrument); i++ {
		if instrument[i:i+3] == "JPY" {
			return 0.01
		}
	}
	return 0.0001
}
