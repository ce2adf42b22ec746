package indicator

import (
	"math"
	"sort"

	"fxengine/internal/model"
)

// Trend classifies the prevailing market direction.
type Trend string

const (
	TrendUp       Trend = "uptrend"
	TrendDown     Trend = "downtrend"
	TrendSideways Trend = "sideways"
)

// PivotPoints holds the standard floor-trader pivot levels.
type PivotPoints struct {
	Pivot float64 `json:"pivot"`
	R1    float64 `json:"r1"`
	R2    float64 `json:"r2"`
	R3    float64 `json:"r3"`
	S1    float64 `json:"s1"`
	S2    float64 `json:"s2"`
	S3    float64 `json:"s3"`
}

// MarketStructure summarizes trend, key levels, and pivots.
type MarketStructure struct {
	Trend      Trend       `json:"trend"`
	Strength   float64     `json:"strength"`
	Support    []float64   `json:"support"`
	Resistance []float64   `json:"resistance"`
	Pivots     PivotPoints `json:"pivotPoints"`
}

// AnalyzeStructure classifies the trend from SMA(20) vs SMA(50) divergence,
// clusters recent highs/lows into support/resistance (levels touched at
// least twice within 0.1% tolerance), and computes floor-trader pivots from
// the latest candle. Requires ≥50 candles.
func AnalyzeStructure(candles []model.OHLC) (MarketStructure, bool) {
	if len(candles) < 50 {
		return MarketStructure{}, false
	}
	closes := model.Closes(candles)

	shortSMA, _ := SMA(closes, 20)
	longSMA, _ := SMA(closes, 50)

	trend := TrendSideways
	strength := 50.0
	if shortSMA > longSMA {
		trend = TrendUp
		strength = math.Min(100, 50+(shortSMA-longSMA)/longSMA*1000)
	} else if shortSMA < longSMA {
		trend = TrendDown
		strength = math.Min(100, 50+(longSMA-shortSMA)/longSMA*1000)
	}

	recent := candles[len(candles)-20:]
	lows := make([]float64, len(recent))
	highs := make([]float64, len(recent))
	for i, c := range recent {
		lows[i] = c.Low
		highs[i] = c.High
	}

	last := candles[len(candles)-1]
	pivot := (last.High + last.Low + last.Close) / 3

	return MarketStructure{
		Trend:      trend,
		Strength:   strength,
		Support:    clusterLevels(lows, false),
		Resistance: clusterLevels(highs, true),
		Pivots: PivotPoints{
			Pivot: pivot,
			R1:    2*pivot - last.Low,
			R2:    pivot + (last.High - last.Low),
			R3:    last.High + 2*(pivot-last.Low),
			S1:    2*pivot - last.High,
			S2:    pivot - (last.High - last.Low),
			S3:    last.Low - 2*(last.High-pivot),
		},
	}, true
}

// clusterLevels keeps prices touched at least twice within 0.1% tolerance,
// deduplicated, and returns the three most relevant: support sorted
// descending (nearest below price first), resistance ascending.
func clusterLevels(prices []float64, ascending bool) []float64 {
	var touched []float64
	for _, p := range prices {
		count := 0
		for _, q := range prices {
			if math.Abs(q-p) < p*0.001 {
				count++
			}
		}
		if count >= 2 {
			touched = append(touched, p)
		}
	}

	seen := make(map[float64]bool, len(touched))
	uniq := touched[:0]
	for _, p := range touched {
		if !seen[p] {
			seen[p] = true
			uniq = append(uniq, p)
		}
	}

	if ascending {
		sort.Float64s(uniq)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(uniq)))
	}
	if len(uniq) > 3 {
		uniq = uniq[:3]
	}
	return uniq
}
