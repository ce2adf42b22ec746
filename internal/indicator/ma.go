package indicator

// SMA returns the arithmetic mean of the last period closes.
func SMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	return sum(lastN(closes, period)) / float64(period), true
}

// EMA returns the exponential moving average with multiplier 2/(period+1).
//
// The recursion is seeded with the FIRST price of the entire series and
// iterated over every element, not SMA-seeded over a trailing window. This
// diverges from the textbook EMA but is kept deliberately: downstream
// signal thresholds were tuned against this behavior.
func EMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	multiplier := 2.0 / float64(period+1)
	ema := closes[0]
	for _, price := range closes[1:] {
		ema = price*multiplier + ema*(1-multiplier)
	}
	return ema, true
}

// EMASeries returns the full EMA series with the same seeding as EMA:
// out[0] = closes[0], out[i] = closes[i]*m + out[i-1]*(1-m).
func EMASeries(closes []float64, period int) ([]float64, bool) {
	if period <= 0 || len(closes) < period {
		return nil, false
	}
	multiplier := 2.0 / float64(period+1)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = closes[i]*multiplier + out[i-1]*(1-multiplier)
	}
	return out, true
}
