// Package indicator provides technical indicator calculations over candle
// data: moving averages, oscillators, volatility bands, candlestick pattern
// recognition, market structure, and volume analytics.
//
// Every calculation is a pure function of its input series. When the series
// is shorter than the required lookback the function reports ok=false ("no
// result") instead of panicking; callers must treat ok=false as "indicator
// unavailable", not zero. No function mutates its input — all are safe to
// call concurrently.
package indicator

// lastN returns the trailing n elements of s. Callers check length first.
func lastN(s []float64, n int) []float64 {
	return s[len(s)-n:]
}

// highest returns the maximum of s.
func highest(s []float64) float64 {
	h := s[0]
	for _, v := range s[1:] {
		if v > h {
			h = v
		}
	}
	return h
}

// lowest returns the minimum of s.
func lowest(s []float64) float64 {
	l := s[0]
	for _, v := range s[1:] {
		if v < l {
			l = v
		}
	}
	return l
}

func sum(s []float64) float64 {
	var t float64
	for _, v := range s {
		t += v
	}
	return t
}
