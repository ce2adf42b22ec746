package indicator

import "fxengine/internal/model"

// Ichimoku holds an Ichimoku Cloud reading.
type Ichimoku struct {
	TenkanSen   float64 `json:"tenkanSen"`
	KijunSen    float64 `json:"kijunSen"`
	SenkouSpanA float64 `json:"senkouSpanA"`
	SenkouSpanB float64 `json:"senkouSpanB"`
	ChikouSpan  float64 `json:"chikouSpan"`
}

// midpoint returns (highest high + lowest low) / 2 over the trailing window.
func midpoint(candles []model.OHLC, period int) float64 {
	window := candles[len(candles)-period:]
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, c := range window {
		highs[i] = c.High
		lows[i] = c.Low
	}
	return (highest(highs) + lowest(lows)) / 2
}

// IchimokuCloud returns the five Ichimoku lines: Tenkan (9-period
// midpoint), Kijun (26), Senkou A (Tenkan/Kijun average), Senkou B
// (52-period midpoint), and Chikou (current close). Requires ≥52 candles.
func IchimokuCloud(candles []model.OHLC) (Ichimoku, bool) {
	if len(candles) < 52 {
		return Ichimoku{}, false
	}
	tenkan := midpoint(candles, 9)
	kijun := midpoint(candles, 26)
	return Ichimoku{
		TenkanSen:   tenkan,
		KijunSen:    kijun,
		SenkouSpanA: (tenkan + kijun) / 2,
		SenkouSpanB: midpoint(candles, 52),
		ChikouSpan:  candles[len(candles)-1].Close,
	}, true
}
