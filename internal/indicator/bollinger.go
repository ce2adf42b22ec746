package indicator

import "math"

// Bands holds a Bollinger Bands reading. PercentB is NaN when the band
// width is zero (flat price series) — callers must check math.IsNaN.
type Bands struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	PercentB float64 `json:"percentB"`
}

// Bollinger returns SMA(period) ± stdDev × population standard deviation of
// the trailing window, with %B = (lastClose - lower) / (upper - lower).
func Bollinger(closes []float64, period int, stdDev float64) (Bands, bool) {
	if period <= 0 || len(closes) < period {
		return Bands{}, false
	}
	middle, _ := SMA(closes, period)
	window := lastN(closes, period)

	var variance float64
	for _, price := range window {
		d := price - middle
		variance += d * d
	}
	variance /= float64(period)
	sd := math.Sqrt(variance)

	upper := middle + sd*stdDev
	lower := middle - sd*stdDev
	current := closes[len(closes)-1]

	// Division by zero on a flat series yields NaN by design.
	percentB := (current - lower) / (upper - lower)

	return Bands{Upper: upper, Middle: middle, Lower: lower, PercentB: percentB}, true
}
