package indicator

import (
	"math"

	"fxengine/internal/model"
)

// RSI returns the Relative Strength Index using Wilder smoothing: initial
// average gain/loss over the first period changes, then
// avg = (avg*(period-1) + value) / period over the remainder of the series.
// Returns 100 when the smoothed average loss is zero.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// Stoch holds a Stochastic oscillator reading.
type Stoch struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// Stochastic returns %K = (close - lowestLow)/(highestHigh - lowestLow)×100
// over the trailing kPeriod window. %D = %K × 0.9 — a deliberate
// simplification, not a moving average of %K (kept for parity with the
// tuned signal thresholds). A zero-range window yields {50, 50}.
func Stochastic(candles []model.OHLC, kPeriod int) (Stoch, bool) {
	if kPeriod <= 0 || len(candles) < kPeriod {
		return Stoch{}, false
	}
	window := candles[len(candles)-kPeriod:]
	highs := make([]float64, kPeriod)
	lows := make([]float64, kPeriod)
	for i, c := range window {
		highs[i] = c.High
		lows[i] = c.Low
	}
	hh := highest(highs)
	ll := lowest(lows)
	if hh == ll {
		return Stoch{K: 50, D: 50}, true
	}
	k := (window[kPeriod-1].Close - ll) / (hh - ll) * 100
	return Stoch{K: k, D: k * 0.9}, true
}

// WilliamsR returns Williams %R over the trailing window: a 0..-100
// oscillator measuring the close against the high-low range.
func WilliamsR(candles []model.OHLC, period int) (float64, bool) {
	if period <= 0 || len(candles) < period {
		return 0, false
	}
	window := candles[len(candles)-period:]
	highs := make([]float64, period)
	lows := make([]float64, period)
	for i, c := range window {
		highs[i] = c.High
		lows[i] = c.Low
	}
	hh := highest(highs)
	ll := lowest(lows)
	if hh == ll {
		return 0, false
	}
	close := candles[len(candles)-1].Close
	return (hh - close) / (hh - ll) * -100, true
}

// CCI returns the Commodity Channel Index over the trailing window:
// (TP - SMA(TP)) / (0.015 × mean deviation).
func CCI(candles []model.OHLC, period int) (float64, bool) {
	if period <= 0 || len(candles) < period {
		return 0, false
	}
	window := candles[len(candles)-period:]
	tps := make([]float64, period)
	for i, c := range window {
		tps[i] = c.Typical()
	}
	smaTP := sum(tps) / float64(period)

	var meanDev float64
	for _, tp := range tps {
		meanDev += math.Abs(tp - smaTP)
	}
	meanDev /= float64(period)
	if meanDev == 0 {
		return 0, false
	}
	return (tps[period-1] - smaTP) / (0.015 * meanDev), true
}

// Momentum returns the percentage change of the latest close versus the
// close period bars earlier.
func Momentum(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	current := closes[len(closes)-1]
	past := closes[len(closes)-1-period]
	if past == 0 {
		return 0, false
	}
	return (current - past) / past * 100, true
}

// ROC returns the rate of change, identical in formula to Momentum; both
// exist because callers configure them independently.
func ROC(closes []float64, period int) (float64, bool) {
	return Momentum(closes, period)
}
