package indicator

// MACD holds a Moving Average Convergence Divergence reading.
type MACD struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACDSnapshot returns the latest MACD value: EMA(fast) − EMA(slow).
// The signal line is 0.9 × macd — a deliberate shortcut, NOT an EMA of the
// MACD series; kept for parity with the tuned display thresholds. For
// crossover detection use MACDSeries, which carries a true signal line.
func MACDSnapshot(closes []float64, fast, slow, signalPeriod int) (MACD, bool) {
	if len(closes) < slow+signalPeriod {
		return MACD{}, false
	}
	fastEMA, ok := EMA(closes, fast)
	if !ok {
		return MACD{}, false
	}
	slowEMA, ok := EMA(closes, slow)
	if !ok {
		return MACD{}, false
	}
	macd := fastEMA - slowEMA
	signal := macd * 0.9
	return MACD{MACD: macd, Signal: signal, Histogram: macd - signal}, true
}

// MACDSeries returns the full MACD series with a true EMA(signalPeriod)
// signal line, suitable for crossover detection.
func MACDSeries(closes []float64, fast, slow, signalPeriod int) ([]MACD, bool) {
	if len(closes) < slow+signalPeriod {
		return nil, false
	}
	fastEMA, ok := EMASeries(closes, fast)
	if !ok {
		return nil, false
	}
	slowEMA, ok := EMASeries(closes, slow)
	if !ok {
		return nil, false
	}
	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine, ok := EMASeries(macdLine, signalPeriod)
	if !ok {
		return nil, false
	}
	out := make([]MACD, len(closes))
	for i := range closes {
		out[i] = MACD{
			MACD:      macdLine[i],
			Signal:    signalLine[i],
			Histogram: macdLine[i] - signalLine[i],
		}
	}
	return out, true
}
