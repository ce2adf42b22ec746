package indicator

import "fxengine/internal/model"

// Summary is the full analysis snapshot over one candle series. Pointer
// fields are nil when the series is too short for that indicator.
type Summary struct {
	RSI        *float64         `json:"rsi"`
	MACD       *MACD            `json:"macd"`
	Bollinger  *Bands           `json:"bollinger"`
	Stochastic *Stoch           `json:"stochastic"`
	WilliamsR  *float64         `json:"williamsR"`
	CCI        *float64         `json:"cci"`
	Momentum   *float64         `json:"momentum"`
	ROC        *float64         `json:"roc"`
	ATR        *float64         `json:"atr"`
	ADX        *DI              `json:"adx"`
	Ichimoku   *Ichimoku        `json:"ichimoku"`
	SMA20      *float64         `json:"sma20"`
	SMA50      *float64         `json:"sma50"`
	EMA12      *float64         `json:"ema12"`
	EMA26      *float64         `json:"ema26"`
	Patterns   []Pattern        `json:"patterns"`
	Structure  *MarketStructure `json:"marketStructure"`
	Volume     VolumeIndicators `json:"volume"`
}

// Analyze computes every indicator the series supports. Indicators whose
// minimum history is not met are left nil rather than failing the whole
// snapshot.
func Analyze(candles []model.OHLC) Summary {
	closes := model.Closes(candles)
	var s Summary

	if v, ok := RSI(closes, 14); ok {
		s.RSI = &v
	}
	if v, ok := MACDSnapshot(closes, 12, 26, 9); ok {
		s.MACD = &v
	}
	if v, ok := Bollinger(closes, 20, 2); ok {
		s.Bollinger = &v
	}
	if v, ok := Stochastic(candles, 14); ok {
		s.Stochastic = &v
	}
	if v, ok := WilliamsR(candles, 14); ok {
		s.WilliamsR = &v
	}
	if v, ok := CCI(candles, 20); ok {
		s.CCI = &v
	}
	if v, ok := Momentum(closes, 10); ok {
		s.Momentum = &v
	}
	if v, ok := ROC(closes, 10); ok {
		s.ROC = &v
	}
	if v, ok := ATR(candles, 14); ok {
		s.ATR = &v
	}
	if v, ok := ADX(candles, 14); ok {
		s.ADX = &v
	}
	if v, ok := IchimokuCloud(candles); ok {
		s.Ichimoku = &v
	}
	if v, ok := SMA(closes, 20); ok {
		s.SMA20 = &v
	}
	if v, ok := SMA(closes, 50); ok {
		s.SMA50 = &v
	}
	if v, ok := EMA(closes, 12); ok {
		s.EMA12 = &v
	}
	if v, ok := EMA(closes, 26); ok {
		s.EMA26 = &v
	}

	s.Patterns = RecognizePatterns(candles)
	if v, ok := AnalyzeStructure(candles); ok {
		s.Structure = &v
	}
	s.Volume = AnalyzeVolume(candles)
	return s
}
