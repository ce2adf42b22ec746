package indicator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"fxengine/internal/model"
)

// VolumeLevel is one discretized price bucket of a volume profile.
type VolumeLevel struct {
	PriceLevel float64 `json:"priceLevel"`
	Volume     float64 `json:"volume"`
	Percentage float64 `json:"percentage"`
	Type       string  `json:"type"` // high | medium | low
}

// VolumeIndicators aggregates the volume-derived readings. Nil pointers
// mean "insufficient history".
type VolumeIndicators struct {
	VWAP                    *float64 `json:"vwap"`
	OBV                     *float64 `json:"obv"`
	ADL                     *float64 `json:"adl"`
	MFI                     *float64 `json:"mfi"`
	VolumeMA                *float64 `json:"volumeMA"`
	VolumeRatio             *float64 `json:"volumeRatio"`
	PriceVolumeConfirmation string   `json:"priceVolumeConfirmation"` // bullish | bearish | neutral
}

// VWAP returns the volume-weighted typical price over all complete candles.
func VWAP(candles []model.OHLC) (float64, bool) {
	var totalVolume, totalVolumePrice float64
	for _, c := range candles {
		if !c.Complete || c.Volume == 0 {
			continue
		}
		totalVolumePrice += c.Typical() * c.Volume
		totalVolume += c.Volume
	}
	if totalVolume == 0 {
		return 0, false
	}
	return totalVolumePrice / totalVolume, true
}

// OBV returns the signed cumulative volume by close direction.
func OBV(candles []model.OHLC) (float64, bool) {
	if len(candles) < 2 {
		return 0, false
	}
	var obv float64
	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		if !cur.Complete || !prev.Complete {
			continue
		}
		switch {
		case cur.Close > prev.Close:
			obv += cur.Volume
		case cur.Close < prev.Close:
			obv -= cur.Volume
		}
	}
	return obv, true
}

// ADL returns the accumulation/distribution line: money-flow-multiplier
// weighted volume summed over the series.
func ADL(candles []model.OHLC) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	var adl float64
	for _, c := range candles {
		if !c.Complete || c.High == c.Low {
			continue
		}
		multiplier := ((c.Close - c.Low) - (c.High - c.Close)) / (c.High - c.Low)
		adl += multiplier * c.Volume
	}
	return adl, true
}

// MFI returns the Money Flow Index: the positive/negative money-flow ratio
// mapped onto a 0–100 oscillator. Returns 100 when negative flow is zero.
func MFI(candles []model.OHLC, period int) (float64, bool) {
	if period <= 0 || len(candles) < period+1 {
		return 0, false
	}
	window := candles[len(candles)-period-1:]

	var positiveFlow, negativeFlow float64
	for i := 1; i < len(window); i++ {
		cur, prev := window[i], window[i-1]
		if !cur.Complete || !prev.Complete {
			continue
		}
		curTypical := cur.Typical()
		prevTypical := prev.Typical()
		rawFlow := curTypical * cur.Volume
		switch {
		case curTypical > prevTypical:
			positiveFlow += rawFlow
		case curTypical < prevTypical:
			negativeFlow += rawFlow
		}
	}
	if negativeFlow == 0 {
		return 100, true
	}
	ratio := positiveFlow / negativeFlow
	return 100 - 100/(1+ratio), true
}

// VolumeProfile bins volume into levels price buckets across the series'
// high-low range. A candle's volume is split across buckets by closed-form
// interval overlap — the fraction of [low, high] covered by each bucket —
// rather than fixed-step iteration, which drifts for small price steps.
// Levels are sorted by volume descending and percentages sum to ~100.
func VolumeProfile(candles []model.OHLC, levels int) []VolumeLevel {
	if levels <= 0 {
		return nil
	}
	valid := make([]model.OHLC, 0, len(candles))
	for _, c := range candles {
		if c.Complete && c.Volume > 0 {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	minPrice := math.Inf(1)
	maxPrice := math.Inf(-1)
	for _, c := range valid {
		minPrice = math.Min(minPrice, c.Low)
		maxPrice = math.Max(maxPrice, c.High)
	}
	if maxPrice == minPrice {
		return []VolumeLevel{{PriceLevel: minPrice, Volume: totalVolume(valid), Percentage: 100, Type: "high"}}
	}

	priceStep := (maxPrice - minPrice) / float64(levels)
	volumeByLevel := make([]float64, levels)

	for _, c := range valid {
		if c.High == c.Low {
			// Point candle: all volume into the containing bucket.
			idx := bucketIndex(c.Low, minPrice, priceStep, levels)
			volumeByLevel[idx] += c.Volume
			continue
		}
		span := c.High - c.Low
		lo := bucketIndex(c.Low, minPrice, priceStep, levels)
		hi := bucketIndex(c.High, minPrice, priceStep, levels)
		for i := lo; i <= hi; i++ {
			bucketLow := minPrice + float64(i)*priceStep
			bucketHigh := bucketLow + priceStep
			overlap := math.Min(c.High, bucketHigh) - math.Max(c.Low, bucketLow)
			if overlap > 0 {
				volumeByLevel[i] += c.Volume * overlap / span
			}
		}
	}

	total := sum(volumeByLevel)
	maxAtLevel := highest(volumeByLevel)

	profile := make([]VolumeLevel, 0, levels)
	for i, vol := range volumeByLevel {
		if vol == 0 {
			continue
		}
		levelType := "low"
		if vol > maxAtLevel*0.7 {
			levelType = "high"
		} else if vol > maxAtLevel*0.3 {
			levelType = "medium"
		}
		profile = append(profile, VolumeLevel{
			PriceLevel: minPrice + float64(i)*priceStep,
			Volume:     vol,
			Percentage: vol / total * 100,
			Type:       levelType,
		})
	}

	sort.Slice(profile, func(i, j int) bool { return profile[i].Volume > profile[j].Volume })
	if len(profile) > levels {
		profile = profile[:levels]
	}
	return profile
}

func bucketIndex(price, minPrice, priceStep float64, levels int) int {
	idx := int(math.Floor((price - minPrice) / priceStep))
	if idx < 0 {
		idx = 0
	}
	if idx >= levels {
		idx = levels - 1
	}
	return idx
}

func totalVolume(candles []model.OHLC) float64 {
	var t float64
	for _, c := range candles {
		t += c.Volume
	}
	return t
}

// PointOfControl returns the highest-volume level of a profile, or false
// when the profile is empty. Assumes profile is sorted by volume descending
// (as VolumeProfile returns it).
func PointOfControl(profile []VolumeLevel) (VolumeLevel, bool) {
	if len(profile) == 0 {
		return VolumeLevel{}, false
	}
	return profile[0], true
}

// ValueArea is the smallest set of highest-volume levels covering 70% of
// traded volume.
type ValueArea struct {
	High   float64       `json:"high"`
	Low    float64       `json:"low"`
	Levels []VolumeLevel `json:"levels"`
}

// ComputeValueArea accumulates profile levels (highest volume first) until
// 70% of total volume is covered.
func ComputeValueArea(profile []VolumeLevel) (ValueArea, bool) {
	if len(profile) == 0 {
		return ValueArea{}, false
	}
	var total float64
	for _, l := range profile {
		total += l.Volume
	}
	target := total * 0.7

	var accumulated float64
	var levels []VolumeLevel
	for _, l := range profile {
		levels = append(levels, l)
		accumulated += l.Volume
		if accumulated >= target {
			break
		}
	}

	low := levels[0].PriceLevel
	high := levels[0].PriceLevel
	for _, l := range levels[1:] {
		low = math.Min(low, l.PriceLevel)
		high = math.Max(high, l.PriceLevel)
	}
	return ValueArea{High: high, Low: low, Levels: levels}, true
}

// VolumeAlert flags an unusual volume event on the latest candle.
type VolumeAlert struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"` // high_volume | volume_spike
	Timestamp    time.Time `json:"timestamp"`
	Price        float64   `json:"price"`
	Volume       float64   `json:"volume"`
	Description  string    `json:"description"`
	Significance string    `json:"significance"` // low | medium | high
}

// VolumeAlerts inspects the latest candle against the trailing 20-candle
// average: >2× average raises high_volume (high significance beyond 3×),
// >1.5× with a price move over 0.001 raises volume_spike.
func VolumeAlerts(candles []model.OHLC, now time.Time) []VolumeAlert {
	if len(candles) < 20 {
		return nil
	}
	recent := candles[len(candles)-20:]
	current := candles[len(candles)-1]
	if !current.Complete || current.Volume == 0 {
		return nil
	}

	var avgVolume float64
	for _, c := range recent {
		if c.Complete {
			avgVolume += c.Volume
		}
	}
	avgVolume /= float64(len(recent))
	if avgVolume == 0 {
		return nil
	}

	var alerts []VolumeAlert

	if current.Volume > avgVolume*2 {
		significance := "medium"
		if current.Volume > avgVolume*3 {
			significance = "high"
		}
		alerts = append(alerts, VolumeAlert{
			ID:           fmt.Sprintf("vol_alert_%d", now.UnixMilli()),
			Type:         "high_volume",
			Timestamp:    now,
			Price:        current.Close,
			Volume:       current.Volume,
			Description:  fmt.Sprintf("Volume spike: %d%% above average", int(math.Round(current.Volume/avgVolume*100))),
			Significance: significance,
		})
	}

	if current.Volume > avgVolume*1.5 && len(recent) > 1 {
		priceChange := current.Close - recent[len(recent)-2].Close
		if math.Abs(priceChange) > 0.001 {
			direction := "bearish"
			if priceChange > 0 {
				direction = "bullish"
			}
			alerts = append(alerts, VolumeAlert{
				ID:           fmt.Sprintf("vol_spike_%d", now.UnixMilli()),
				Type:         "volume_spike",
				Timestamp:    now,
				Price:        current.Close,
				Volume:       current.Volume,
				Description:  fmt.Sprintf("Volume spike with %s price action", direction),
				Significance: "high",
			})
		}
	}

	return alerts
}

// AnalyzeVolume computes the full volume indicator set over the series.
func AnalyzeVolume(candles []model.OHLC) VolumeIndicators {
	out := VolumeIndicators{PriceVolumeConfirmation: "neutral"}

	if v, ok := VWAP(candles); ok {
		out.VWAP = &v
	}
	if v, ok := OBV(candles); ok {
		out.OBV = &v
	}
	if v, ok := ADL(candles); ok {
		out.ADL = &v
	}
	if v, ok := MFI(candles, 14); ok {
		out.MFI = &v
	}

	if len(candles) >= 20 {
		var volSum float64
		for _, c := range candles[len(candles)-20:] {
			if c.Complete {
				volSum += c.Volume
			}
		}
		ma := volSum / 20
		out.VolumeMA = &ma
		if ma > 0 {
			current := candles[len(candles)-1].Volume
			if current > 0 {
				ratio := current / ma
				out.VolumeRatio = &ratio
			}
		}
	}

	out.PriceVolumeConfirmation = priceVolumeConfirmation(candles)
	return out
}

// priceVolumeConfirmation counts directional volume agreement over the last
// 10 candles: price and volume both rising confirms the move, rising price
// on falling volume hints at weakness (half weight).
func priceVolumeConfirmation(candles []model.OHLC) string {
	if len(candles) < 10 {
		return "neutral"
	}
	recent := candles[len(candles)-10:]

	var bullish, bearish float64
	for i := 1; i < len(recent); i++ {
		cur, prev := recent[i], recent[i-1]
		if !cur.Complete || !prev.Complete || cur.Volume == 0 || prev.Volume == 0 {
			continue
		}
		priceChange := cur.Close - prev.Close
		volumeChange := cur.Volume - prev.Volume
		switch {
		case priceChange > 0 && volumeChange > 0:
			bullish++
		case priceChange < 0 && volumeChange > 0:
			bearish++
		case priceChange > 0 && volumeChange < 0:
			bearish += 0.5
		case priceChange < 0 && volumeChange < 0:
			bullish += 0.5
		}
	}

	if bullish > bearish*1.5 {
		return "bullish"
	}
	if bearish > bullish*1.5 {
		return "bearish"
	}
	return "neutral"
}
