// Package model defines the market-data types shared across the engine:
// parsed candles, live price ticks, and the typed broker response schemas
// validated at the client boundary.
package model

import (
	"fmt"
	"strconv"
	"time"
)

// OHLC is one parsed candle observation. Prices are mid quotes in the
// instrument's quote currency. Complete is false only for the most recent,
// still-forming candle.
type OHLC struct {
	Time     time.Time `json:"time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Complete bool      `json:"complete"`
}

// Valid reports whether the candle satisfies the OHLC invariant
// low ≤ min(open, close) ≤ max(open, close) ≤ high, with positive prices
// and non-negative volume.
func (c OHLC) Valid() bool {
	if c.Low <= 0 || c.Volume < 0 {
		return false
	}
	lo, hi := c.Open, c.Close
	if lo > hi {
		lo, hi = hi, lo
	}
	return c.Low <= lo && hi <= c.High
}

// Body returns the absolute open-close distance.
func (c OHLC) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-low distance.
func (c OHLC) Range() float64 { return c.High - c.Low }

// UpperShadow returns the distance from the body top to the high.
func (c OHLC) UpperShadow() float64 {
	top := c.Open
	if c.Close > top {
		top = c.Close
	}
	return c.High - top
}

// LowerShadow returns the distance from the low to the body bottom.
func (c OHLC) LowerShadow() float64 {
	bottom := c.Open
	if c.Close < bottom {
		bottom = c.Close
	}
	return bottom - c.Low
}

// Bullish reports close > open.
func (c OHLC) Bullish() bool { return c.Close > c.Open }

// Bearish reports close < open.
func (c OHLC) Bearish() bool { return c.Close < c.Open }

// Typical returns the typical price (H+L+C)/3.
func (c OHLC) Typical() float64 { return (c.High + c.Low + c.Close) / 3 }

// SyntheticTick returns a forming candle built from a live mid price:
// open = high = low = close = mid, zero volume, Complete=false. It is
// appended to a fetched series so indicators see the live price.
func SyntheticTick(mid float64, at time.Time) OHLC {
	return OHLC{
		Time:     at,
		Open:     mid,
		High:     mid,
		Low:      mid,
		Close:    mid,
		Volume:   0,
		Complete: false,
	}
}

// Closes extracts the close series from candles.
func Closes(candles []OHLC) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// CompleteOnly filters out forming candles.
func CompleteOnly(candles []OHLC) []OHLC {
	out := make([]OHLC, 0, len(candles))
	for _, c := range candles {
		if c.Complete {
			out = append(out, c)
		}
	}
	return out
}

// parsePrice parses a broker decimal-string price, rejecting non-positive
// values. Broker APIs quote prices as strings to avoid float wire drift.
func parsePrice(s, field string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("model: %s: invalid price %q: %w", field, s, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("model: %s: non-positive price %q", field, s)
	}
	return v, nil
}
