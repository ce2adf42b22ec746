package model

import (
	"fmt"
	"time"
)

// Wire schemas for the broker's v3 REST API. Each endpoint gets an explicit
// response type decoded and validated at the client boundary so unchecked
// shapes never reach indicator math.

// PriceBar is one side of a candle quote (open/high/low/close as
// decimal strings, matching the broker wire format).
type PriceBar struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

// BrokerCandle is a raw candle as returned by the candles endpoint.
type BrokerCandle struct {
	Time     string    `json:"time"`
	Mid      *PriceBar `json:"mid,omitempty"`
	Bid      *PriceBar `json:"bid,omitempty"`
	Ask      *PriceBar `json:"ask,omitempty"`
	Volume   float64   `json:"volume"`
	Complete bool      `json:"complete"`
}

// CandlesResponse is the candles endpoint payload.
type CandlesResponse struct {
	Instrument  string         `json:"instrument"`
	Granularity string         `json:"granularity"`
	Candles     []BrokerCandle `json:"candles"`
}

// Parse converts the wire candles into validated OHLC observations.
// Candles without a mid quote are skipped; a candle that parses but
// violates the OHLC invariant is a schema error.
func (r *CandlesResponse) Parse() ([]OHLC, error) {
	out := make([]OHLC, 0, len(r.Candles))
	var prev time.Time
	for i, bc := range r.Candles {
		if bc.Mid == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339, bc.Time)
		if err != nil {
			return nil, fmt.Errorf("model: candle[%d]: bad time %q: %w", i, bc.Time, err)
		}
		o, err := parsePrice(bc.Mid.O, "candle.o")
		if err != nil {
			return nil, err
		}
		h, err := parsePrice(bc.Mid.H, "candle.h")
		if err != nil {
			return nil, err
		}
		l, err := parsePrice(bc.Mid.L, "candle.l")
		if err != nil {
			return nil, err
		}
		c, err := parsePrice(bc.Mid.C, "candle.c")
		if err != nil {
			return nil, err
		}
		candle := OHLC{Time: ts, Open: o, High: h, Low: l, Close: c, Volume: bc.Volume, Complete: bc.Complete}
		if !candle.Valid() {
			return nil, fmt.Errorf("model: candle[%d] at %s violates OHLC invariant", i, bc.Time)
		}
		if !prev.IsZero() && !ts.After(prev) {
			return nil, fmt.Errorf("model: candle[%d] at %s out of order", i, bc.Time)
		}
		prev = ts
		out = append(out, candle)
	}
	return out, nil
}

// Account is the account summary endpoint payload (the subset the engine
// consumes; balances are decimal strings on the wire).
type Account struct {
	ID                string `json:"id"`
	Alias             string `json:"alias,omitempty"`
	Currency          string `json:"currency"`
	Balance           string `json:"balance"`
	NAV               string `json:"NAV"`
	UnrealizedPL      string `json:"unrealizedPL"`
	PL                string `json:"pl"`
	MarginUsed        string `json:"marginUsed"`
	MarginAvailable   string `json:"marginAvailable"`
	PositionValue     string `json:"positionValue"`
	OpenTradeCount    int    `json:"openTradeCount"`
	OpenPositionCount int    `json:"openPositionCount"`
	PendingOrderCount int    `json:"pendingOrderCount"`
	LastTransactionID string `json:"lastTransactionID"`
}

// AccountResponse wraps the account endpoint payload.
type AccountResponse struct {
	Account Account `json:"account"`
}

// Instrument describes one tradeable pair and its trading constraints.
type Instrument struct {
	Name                  string `json:"name"`
	Type                  string `json:"type"`
	DisplayName           string `json:"displayName"`
	PipLocation           int    `json:"pipLocation"`
	DisplayPrecision      int    `json:"displayPrecision"`
	TradeUnitsPrecision   int    `json:"tradeUnitsPrecision"`
	MinimumTradeSize      string `json:"minimumTradeSize"`
	MaximumOrderUnits     string `json:"maximumOrderUnits"`
	MaximumPositionSize   string `json:"maximumPositionSize"`
	MarginRate            string `json:"marginRate"`
}

// InstrumentsResponse is the instruments endpoint payload.
type InstrumentsResponse struct {
	Instruments []Instrument `json:"instruments"`
}

// PriceBucket is one bid/ask ladder entry.
type PriceBucket struct {
	Price     string  `json:"price"`
	Liquidity float64 `json:"liquidity,omitempty"`
}

// Price is one instrument's current pricing snapshot.
type Price struct {
	Type        string        `json:"type,omitempty"`
	Instrument  string        `json:"instrument"`
	Time        string        `json:"time"`
	Bids        []PriceBucket `json:"bids"`
	Asks        []PriceBucket `json:"asks"`
	CloseoutBid string        `json:"closeoutBid,omitempty"`
	CloseoutAsk string        `json:"closeoutAsk,omitempty"`
	Tradeable   bool          `json:"tradeable,omitempty"`
}

// Mid returns the best bid/ask midpoint, or an error when either side of
// the book is empty or unparseable.
func (p *Price) Mid() (float64, error) {
	if len(p.Bids) == 0 || len(p.Asks) == 0 {
		return 0, fmt.Errorf("model: pricing for %s has an empty book", p.Instrument)
	}
	bid, err := parsePrice(p.Bids[0].Price, "pricing.bid")
	if err != nil {
		return 0, err
	}
	ask, err := parsePrice(p.Asks[0].Price, "pricing.ask")
	if err != nil {
		return 0, err
	}
	return (bid + ask) / 2, nil
}

// PricingResponse is the pricing endpoint payload.
type PricingResponse struct {
	Time   string  `json:"time"`
	Prices []Price `json:"prices"`
}

// PositionSide is one direction of a position.
type PositionSide struct {
	Units        string `json:"units"`
	AveragePrice string `json:"averagePrice,omitempty"`
	PL           string `json:"pl"`
	UnrealizedPL string `json:"unrealizedPL"`
}

// Position is one instrument's open position.
type Position struct {
	Instrument   string       `json:"instrument"`
	PL           string       `json:"pl"`
	UnrealizedPL string       `json:"unrealizedPL"`
	MarginUsed   string       `json:"marginUsed,omitempty"`
	Long         PositionSide `json:"long"`
	Short        PositionSide `json:"short"`
}

// PositionsResponse is the positions endpoint payload.
type PositionsResponse struct {
	Positions         []Position `json:"positions"`
	LastTransactionID string     `json:"lastTransactionID"`
}

// Trade is one open trade.
type Trade struct {
	ID           string `json:"id"`
	Instrument   string `json:"instrument"`
	Price        string `json:"price"`
	OpenTime     string `json:"openTime"`
	State        string `json:"state"`
	InitialUnits string `json:"initialUnits"`
	CurrentUnits string `json:"currentUnits"`
	UnrealizedPL string `json:"unrealizedPL"`
	MarginUsed   string `json:"marginUsed"`
}

// TradesResponse is the trades endpoint payload.
type TradesResponse struct {
	Trades            []Trade `json:"trades"`
	LastTransactionID string  `json:"lastTransactionID"`
}

// OrderRequest describes a market order to place. Units are positive for
// long, negative for short. TakeProfit/StopLoss are pip distances from the
// current price; zero means omitted.
type OrderRequest struct {
	Instrument string
	Units      float64
	Type       string // "MARKET"
	TakeProfit float64 // pips
	StopLoss   float64 // pips
}

// OrderResponse is the order-create endpoint payload (structural subset).
type OrderResponse struct {
	OrderCreateTransaction map[string]any `json:"orderCreateTransaction,omitempty"`
	OrderFillTransaction   map[string]any `json:"orderFillTransaction,omitempty"`
	RelatedTransactionIDs  []string       `json:"relatedTransactionIDs,omitempty"`
	LastTransactionID      string         `json:"lastTransactionID,omitempty"`
}
