package indicator

import (
	"math"

	"fxengine/internal/model"
)

// trueRanges returns the true-range series: one value per candle after the
// first, max(high-low, |high-prevClose|, |low-prevClose|).
func trueRanges(candles []model.OHLC) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		tr := cur.High - cur.Low
		if v := math.Abs(cur.High - prev.Close); v > tr {
			tr = v
		}
		if v := math.Abs(cur.Low - prev.Close); v > tr {
			tr = v
		}
		out = append(out, tr)
	}
	return out
}

// ATR returns the mean true range over the trailing period.
func ATR(candles []model.OHLC, period int) (float64, bool) {
	if period <= 0 || len(candles) < period+1 {
		return 0, false
	}
	trs := trueRanges(candles)
	if len(trs) < period {
		return 0, false
	}
	return sum(lastN(trs, period)) / float64(period), true
}

// DI holds a directional-movement reading. ADX here is the raw DX value
// — |+DI − −DI| / (+DI + −DI) × 100 — not a smoothed average of DX over
// time. The approximation is kept deliberately for parity.
type DI struct {
	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"plusDI"`
	MinusDI float64 `json:"minusDI"`
}

// ADX returns the directional indicators accumulated over the trailing
// window.
func ADX(candles []model.OHLC, period int) (DI, bool) {
	if period <= 0 || len(candles) < period+1 {
		return DI{}, false
	}

	trs := make([]float64, 0, len(candles)-1)
	plusDMs := make([]float64, 0, len(candles)-1)
	minusDMs := make([]float64, 0, len(candles)-1)

	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]

		tr := cur.High - cur.Low
		if v := math.Abs(cur.High - prev.Close); v > tr {
			tr = v
		}
		if v := math.Abs(cur.Low - prev.Close); v > tr {
			tr = v
		}
		trs = append(trs, tr)

		highDiff := cur.High - prev.High
		lowDiff := prev.Low - cur.Low

		plusDM, minusDM := 0.0, 0.0
		if highDiff > lowDiff && highDiff > 0 {
			plusDM = highDiff
		}
		if lowDiff > highDiff && lowDiff > 0 {
			minusDM = lowDiff
		}
		plusDMs = append(plusDMs, plusDM)
		minusDMs = append(minusDMs, minusDM)
	}

	if len(trs) < period {
		return DI{}, false
	}

	smoothedTR := sum(lastN(trs, period))
	if smoothedTR == 0 {
		return DI{}, false
	}
	plusDI := sum(lastN(plusDMs, period)) / smoothedTR * 100
	minusDI := sum(lastN(minusDMs, period)) / smoothedTR * 100

	if plusDI+minusDI == 0 {
		return DI{PlusDI: plusDI, MinusDI: minusDI}, true
	}
	dx := math.Abs(plusDI-minusDI) / (plusDI + minusDI) * 100
	return DI{ADX: dx, PlusDI: plusDI, MinusDI: minusDI}, true
}
