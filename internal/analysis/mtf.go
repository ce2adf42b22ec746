// Package analysis layers cross-timeframe context and risk assessment on
// top of the indicator engine.
package analysis

import (
	"context"
	"fmt"
	"math"

	"fxengine/internal/indicator"
	"fxengine/internal/model"
)

// Timeframes scanned, fastest first, with their bias weights. Slower
// timeframes carry more weight: a daily trend outvotes a 5-minute wiggle.
var timeframeWeights = []struct {
	Granularity string
	Weight      float64
}{
	{"M5", 1},
	{"H1", 2},
	{"H4", 3},
	{"D", 4},
}

// CandleSource is the slice of the broker client MTF needs.
type CandleSource interface {
	GetCandles(ctx context.Context, instrument, granularity string, count int) ([]model.OHLC, error)
}

// TimeframeTrend is one granularity's verdict.
type TimeframeTrend struct {
	Granularity string  `json:"timeframe"`
	Trend       string  `json:"trend"` // bullish | bearish | neutral
	Strength    float64 `json:"strength"`
	Price       float64 `json:"price"`
}

// MTFResult is the cross-timeframe summary for one instrument.
type MTFResult struct {
	Instrument string           `json:"instrument"`
	Timeframes []TimeframeTrend `json:"timeframes"`
	Bias       string           `json:"overallBias"` // bullish | bearish | neutral
	BiasScore  float64          `json:"biasScore"`   // -1..1 weighted
	Confluence float64          `json:"confluence"`  // 0..100
}

// MTF analyzes an instrument across the standard timeframes.
type MTF struct {
	source CandleSource
}

func NewMTF(source CandleSource) *MTF {
	return &MTF{source: source}
}

// Analyze fetches candles per timeframe (the source caches), classifies
// each trend, and computes the weighted bias and confluence. A timeframe
// whose fetch fails degrades to neutral with zero weight rather than
// failing the whole analysis; an error is returned only when every fetch
// fails.
func (m *MTF) Analyze(ctx context.Context, instrument string) (MTFResult, error) {
	result := MTFResult{Instrument: instrument, Bias: "neutral"}

	var weightedSum, weightTotal float64
	trendCounts := map[string]int{}
	failures := 0
	var lastErr error

	for _, tf := range timeframeWeights {
		candles, err := m.source.GetCandles(ctx, instrument, tf.Granularity, 50)
		if err != nil {
			failures++
			lastErr = err
			result.Timeframes = append(result.Timeframes, TimeframeTrend{
				Granularity: tf.Granularity, Trend: "neutral",
			})
			trendCounts["neutral"]++
			continue
		}

		trend := classifyTrend(candles)
		result.Timeframes = append(result.Timeframes, trend.withGranularity(tf.Granularity))
		trendCounts[trend.Trend]++

		switch trend.Trend {
		case "bullish":
			weightedSum += tf.Weight
		case "bearish":
			weightedSum -= tf.Weight
		}
		weightTotal += tf.Weight
	}

	if failures == len(timeframeWeights) {
		return result, fmt.Errorf("analysis: mtf for %s: all timeframes failed: %w", instrument, lastErr)
	}

	if weightTotal > 0 {
		result.BiasScore = weightedSum / weightTotal
	}
	if result.BiasScore > 0.2 {
		result.Bias = "bullish"
	} else if result.BiasScore < -0.2 {
		result.Bias = "bearish"
	}

	maxAgree := 0
	for _, n := range trendCounts {
		if n > maxAgree {
			maxAgree = n
		}
	}
	result.Confluence = float64(maxAgree) / float64(len(timeframeWeights)) * 100

	return result, nil
}

// classifyTrend compares price against SMA(10) and SMA(20): price above
// both with the fast average leading is bullish, the mirror is bearish,
// anything else is neutral. Strength scales with the price's distance from
// the slow average.
func classifyTrend(candles []model.OHLC) TimeframeTrend {
	complete := model.CompleteOnly(candles)
	closes := model.Closes(complete)

	out := TimeframeTrend{Trend: "neutral"}
	if len(closes) == 0 {
		return out
	}
	price := closes[len(closes)-1]
	out.Price = price

	fast, okFast := indicator.SMA(closes, 10)
	slow, okSlow := indicator.SMA(closes, 20)
	if !okFast || !okSlow || slow == 0 {
		return out
	}

	switch {
	case price > fast && fast > slow:
		out.Trend = "bullish"
	case price < fast && fast < slow:
		out.Trend = "bearish"
	default:
		return out
	}
	out.Strength = math.Min(100, math.Abs(price-slow)/slow*1000)
	return out
}

func (t TimeframeTrend) withGranularity(g string) TimeframeTrend {
	t.Granularity = g
	return t
}
