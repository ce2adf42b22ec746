package indicator

import (
	"math"
	"testing"
	"time"

	"fxengine/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func candle(close float64) model.OHLC {
	return model.OHLC{
		Open: close, High: close + 0.0005, Low: close - 0.0005, Close: close,
		Volume: 100, Complete: true,
	}
}

func series(closes ...float64) []model.OHLC {
	out := make([]model.OHLC, len(closes))
	for i, c := range closes {
		out[i] = candle(c)
	}
	return out
}

func ramp(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// SMA / EMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Hand-calculated SMA(3) over 100, 102, 104, 103, 105:
	// last window (104, 103, 105) → 104.0
	got, ok := SMA([]float64{100, 102, 104, 103, 105}, 3)
	if !ok {
		t.Fatal("SMA(3): not ok on 5 closes")
	}
	assertClose(t, "SMA(3)", got, 104.0, 0.0001)
}

func TestSMA_InsufficientData(t *testing.T) {
	if _, ok := SMA([]float64{1, 2}, 3); ok {
		t.Error("SMA(3) on 2 closes: want ok=false")
	}
	if _, ok := SMA(nil, 3); ok {
		t.Error("SMA(3) on nil: want ok=false")
	}
	if _, ok := SMA([]float64{1, 2, 3}, 0); ok {
		t.Error("SMA(0): want ok=false")
	}
}

func TestSMA_EMA_ConstantSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 1.2345
	}
	sma, _ := SMA(closes, 20)
	assertClose(t, "SMA constant", sma, 1.2345, 1e-9)
	ema, _ := EMA(closes, 12)
	assertClose(t, "EMA constant", ema, 1.2345, 1e-9)
}

func TestEMA_SeedsFromFirstClose(t *testing.T) {
	// EMA(2) over 10, 20: m = 2/3, seed 10 → 20*(2/3) + 10*(1/3) = 16.6667
	got, ok := EMA([]float64{10, 20}, 2)
	if !ok {
		t.Fatal("EMA(2): not ok on 2 closes")
	}
	assertClose(t, "EMA(2)", got, 16.666667, 0.0001)
}

func TestEMASeries_FirstElementIsFirstClose(t *testing.T) {
	out, ok := EMASeries([]float64{1.1, 1.2, 1.3}, 2)
	if !ok {
		t.Fatal("EMASeries: not ok")
	}
	assertClose(t, "EMASeries[0]", out[0], 1.1, 1e-12)
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

func TestRSI_AllGains_Is100(t *testing.T) {
	// Monotonic rise 100..113: zero losses, RSI = 100.
	got, ok := RSI(ramp(100, 1, 15), 14)
	if !ok {
		t.Fatal("RSI(14): not ok on 15 closes")
	}
	assertClose(t, "RSI all gains", got, 100, 1e-9)
}

func TestRSI_Bounds(t *testing.T) {
	closes := []float64{44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10,
		45.42, 45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03}
	got, ok := RSI(closes, 14)
	if !ok {
		t.Fatal("RSI(14): not ok")
	}
	if got < 0 || got > 100 {
		t.Errorf("RSI out of bounds: %.4f", got)
	}
}

func TestRSI_InsufficientData(t *testing.T) {
	if _, ok := RSI(ramp(100, 1, 14), 14); ok {
		t.Error("RSI(14) needs period+1 closes, got ok=true on 14")
	}
}

// ────────────────────────────────────────────────────────────
// MACD Correctness
// ────────────────────────────────────────────────────────────

func TestMACDSnapshot_SignalIsNineTenths(t *testing.T) {
	closes := ramp(1.1000, 0.0010, 40)
	got, ok := MACDSnapshot(closes, 12, 26, 9)
	if !ok {
		t.Fatal("MACDSnapshot: not ok on 40 closes")
	}
	assertClose(t, "signal = 0.9*macd", got.Signal, got.MACD*0.9, 1e-12)
	assertClose(t, "histogram", got.Histogram, got.MACD-got.Signal, 1e-12)
}

func TestMACDSnapshot_InsufficientData(t *testing.T) {
	if _, ok := MACDSnapshot(ramp(1, 0.01, 34), 12, 26, 9); ok {
		t.Error("MACDSnapshot wants slow+signal closes, got ok=true on 34")
	}
}

func TestMACDSeries_SignalIsEMAOfMACDLine(t *testing.T) {
	closes := ramp(1.1000, 0.0010, 60)
	out, ok := MACDSeries(closes, 12, 26, 9)
	if !ok {
		t.Fatal("MACDSeries: not ok")
	}
	if len(out) != len(closes) {
		t.Fatalf("MACDSeries length: got %d, want %d", len(out), len(closes))
	}
	macdLine := make([]float64, len(out))
	for i, m := range out {
		macdLine[i] = m.MACD
	}
	sig, _ := EMASeries(macdLine, 9)
	assertClose(t, "signal line last", out[len(out)-1].Signal, sig[len(sig)-1], 1e-12)
}

// ────────────────────────────────────────────────────────────
// Bollinger Correctness
// ────────────────────────────────────────────────────────────

func TestBollinger_BandOrdering(t *testing.T) {
	closes := []float64{1.10, 1.11, 1.09, 1.12, 1.10, 1.13, 1.11, 1.12, 1.14,
		1.10, 1.11, 1.13, 1.12, 1.15, 1.11, 1.12, 1.13, 1.14, 1.12, 1.13}
	b, ok := Bollinger(closes, 20, 2)
	if !ok {
		t.Fatal("Bollinger: not ok on 20 closes")
	}
	if !(b.Upper >= b.Middle && b.Middle >= b.Lower) {
		t.Errorf("band ordering violated: %.5f / %.5f / %.5f", b.Upper, b.Middle, b.Lower)
	}
	if b.PercentB < 0 || b.PercentB > 1 {
		// %B can exceed [0,1] when price pierces a band; with this series it should not.
		t.Errorf("percentB: %.4f", b.PercentB)
	}
}

func TestBollinger_FlatSeries_PercentBIsNaN(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 1.25
	}
	b, ok := Bollinger(closes, 20, 2)
	if !ok {
		t.Fatal("Bollinger: not ok on flat series")
	}
	if !math.IsNaN(b.PercentB) {
		t.Errorf("flat series percentB: got %.4f, want NaN", b.PercentB)
	}
	assertClose(t, "flat upper=middle=lower", b.Upper, b.Lower, 1e-12)
}

// ────────────────────────────────────────────────────────────
// Stochastic / Williams %R / CCI
// ────────────────────────────────────────────────────────────

func TestStochastic_ZeroRange(t *testing.T) {
	candles := make([]model.OHLC, 14)
	for i := range candles {
		candles[i] = model.OHLC{Open: 1.2, High: 1.2, Low: 1.2, Close: 1.2, Complete: true}
	}
	s, ok := Stochastic(candles, 14)
	if !ok {
		t.Fatal("Stochastic: not ok on zero range")
	}
	assertClose(t, "zero-range K", s.K, 50, 1e-12)
	assertClose(t, "zero-range D", s.D, 50, 1e-12)
}

func TestStochastic_DIsNineTenthsOfK(t *testing.T) {
	s, ok := Stochastic(series(ramp(1.10, 0.001, 14)...), 14)
	if !ok {
		t.Fatal("Stochastic: not ok")
	}
	assertClose(t, "D = 0.9K", s.D, s.K*0.9, 1e-12)
	if s.K < 0 || s.K > 100 {
		t.Errorf("K out of bounds: %.4f", s.K)
	}
}

func TestWilliamsR_Bounds(t *testing.T) {
	w, ok := WilliamsR(series(ramp(1.10, 0.001, 14)...), 14)
	if !ok {
		t.Fatal("WilliamsR: not ok")
	}
	if w > 0 || w < -100 {
		t.Errorf("WilliamsR out of bounds: %.4f", w)
	}
}

func TestCCI_FlatSeries_NotOK(t *testing.T) {
	candles := make([]model.OHLC, 20)
	for i := range candles {
		candles[i] = model.OHLC{Open: 1, High: 1, Low: 1, Close: 1, Complete: true}
	}
	if _, ok := CCI(candles, 20); ok {
		t.Error("CCI on zero mean deviation: want ok=false")
	}
}

// ────────────────────────────────────────────────────────────
// ATR / ADX
// ────────────────────────────────────────────────────────────

func TestATR_HandComputed(t *testing.T) {
	// Non-overlapping ranges so TR = high − low each bar = 0.001.
	candles := series(ramp(1.10, 0.0, 15)...)
	atr, ok := ATR(candles, 14)
	if !ok {
		t.Fatal("ATR: not ok on 15 candles")
	}
	assertClose(t, "ATR constant range", atr, 0.001, 1e-9)
}

func TestADX_TrendingUp_PlusDIDominates(t *testing.T) {
	di, ok := ADX(series(ramp(1.10, 0.002, 20)...), 14)
	if !ok {
		t.Fatal("ADX: not ok on 20 candles")
	}
	if di.PlusDI <= di.MinusDI {
		t.Errorf("uptrend: +DI %.2f should exceed -DI %.2f", di.PlusDI, di.MinusDI)
	}
	if di.ADX < 0 || di.ADX > 100 {
		t.Errorf("ADX out of bounds: %.2f", di.ADX)
	}
}

// ────────────────────────────────────────────────────────────
// Ichimoku / Structure / Patterns
// ────────────────────────────────────────────────────────────

func TestIchimoku_RequiresFiftyTwo(t *testing.T) {
	if _, ok := IchimokuCloud(series(ramp(1.1, 0.001, 51)...)); ok {
		t.Error("IchimokuCloud on 51 candles: want ok=false")
	}
	ich, ok := IchimokuCloud(series(ramp(1.1, 0.001, 52)...))
	if !ok {
		t.Fatal("IchimokuCloud on 52 candles: not ok")
	}
	assertClose(t, "senkouA", ich.SenkouSpanA, (ich.TenkanSen+ich.KijunSen)/2, 1e-12)
}

func TestAnalyzeStructure_Uptrend(t *testing.T) {
	ms, ok := AnalyzeStructure(series(ramp(1.10, 0.001, 60)...))
	if !ok {
		t.Fatal("AnalyzeStructure: not ok on 60 candles")
	}
	if ms.Trend != TrendUp {
		t.Errorf("trend: got %s, want %s", ms.Trend, TrendUp)
	}
	if ms.Strength < 50 || ms.Strength > 100 {
		t.Errorf("strength out of range: %.2f", ms.Strength)
	}
	if ms.Pivots.R1 < ms.Pivots.Pivot || ms.Pivots.S1 > ms.Pivots.Pivot {
		t.Error("pivot ordering violated")
	}
}

func TestRecognizePatterns_BullishEngulfing(t *testing.T) {
	candles := []model.OHLC{
		{Open: 1.105, High: 1.106, Low: 1.099, Close: 1.100, Complete: true},
		{Open: 1.102, High: 1.103, Low: 1.097, Close: 1.098, Complete: true}, // red
		{Open: 1.097, High: 1.105, Low: 1.096, Close: 1.104, Complete: true}, // green, engulfs
	}
	found := false
	for _, p := range RecognizePatterns(candles) {
		if p.Name == "Bullish Engulfing" {
			found = true
			if p.Confidence != 85 {
				t.Errorf("engulfing confidence: got %d, want 85", p.Confidence)
			}
		}
	}
	if !found {
		t.Error("Bullish Engulfing not recognized")
	}
}

func TestRecognizePatterns_Doji(t *testing.T) {
	candles := []model.OHLC{
		candle(1.100), candle(1.101),
		{Open: 1.1000, High: 1.1010, Low: 1.0990, Close: 1.10001, Complete: true},
	}
	found := false
	for _, p := range RecognizePatterns(candles) {
		if p.Name == "Doji" {
			found = true
		}
	}
	if !found {
		t.Error("Doji not recognized")
	}
}

func TestRecognizePatterns_TooFewCandles(t *testing.T) {
	if got := RecognizePatterns(series(1.1, 1.2)); got != nil {
		t.Errorf("2 candles: want nil, got %d patterns", len(got))
	}
}

// ────────────────────────────────────────────────────────────
// Volume
// ────────────────────────────────────────────────────────────

func TestVWAP_WeightsByVolume(t *testing.T) {
	candles := []model.OHLC{
		{Open: 1, High: 1, Low: 1, Close: 1, Volume: 300, Complete: true},
		{Open: 2, High: 2, Low: 2, Close: 2, Volume: 100, Complete: true},
	}
	// typical prices 1 and 2; (1*300 + 2*100)/400 = 1.25
	v, ok := VWAP(candles)
	if !ok {
		t.Fatal("VWAP: not ok")
	}
	assertClose(t, "VWAP", v, 1.25, 1e-12)
}

func TestOBV_Direction(t *testing.T) {
	candles := []model.OHLC{
		{Close: 1.10, Volume: 100, High: 1.1, Low: 1.1, Open: 1.1, Complete: true},
		{Close: 1.11, Volume: 200, High: 1.11, Low: 1.11, Open: 1.11, Complete: true},
		{Close: 1.09, Volume: 50, High: 1.09, Low: 1.09, Open: 1.09, Complete: true},
	}
	v, ok := OBV(candles)
	if !ok {
		t.Fatal("OBV: not ok")
	}
	assertClose(t, "OBV", v, 150, 1e-12)
}

func TestMFI_AllPositiveFlow_Is100(t *testing.T) {
	v, ok := MFI(series(ramp(1.10, 0.001, 20)...), 14)
	if !ok {
		t.Fatal("MFI: not ok")
	}
	assertClose(t, "MFI all positive", v, 100, 1e-9)
}

func TestVolumeProfile_PercentagesSumToHundred(t *testing.T) {
	candles := make([]model.OHLC, 50)
	for i := range candles {
		base := 1.10 + 0.0001*float64(i%10)
		candles[i] = model.OHLC{
			Open: base, High: base + 0.0008, Low: base - 0.0008, Close: base + 0.0002,
			Volume: float64(100 + i), Complete: true,
		}
	}
	profile := VolumeProfile(candles, 20)
	if len(profile) == 0 {
		t.Fatal("empty profile")
	}
	var total float64
	for _, l := range profile {
		total += l.Percentage
		if l.Type != "high" && l.Type != "medium" && l.Type != "low" {
			t.Errorf("bad level type %q", l.Type)
		}
	}
	assertClose(t, "percentage sum", total, 100, 0.01)

	// Sorted by volume descending.
	for i := 1; i < len(profile); i++ {
		if profile[i].Volume > profile[i-1].Volume {
			t.Error("profile not sorted by volume desc")
			break
		}
	}
}

func TestVolumeProfile_ConservesVolume(t *testing.T) {
	candles := []model.OHLC{
		{Open: 1.10, High: 1.12, Low: 1.10, Close: 1.11, Volume: 400, Complete: true},
		{Open: 1.11, High: 1.14, Low: 1.11, Close: 1.13, Volume: 600, Complete: true},
	}
	profile := VolumeProfile(candles, 10)
	var total float64
	for _, l := range profile {
		total += l.Volume
	}
	assertClose(t, "total volume", total, 1000, 1e-6)
}

func TestPointOfControl_IsTopLevel(t *testing.T) {
	profile := []VolumeLevel{
		{PriceLevel: 1.11, Volume: 500},
		{PriceLevel: 1.10, Volume: 300},
	}
	poc, ok := PointOfControl(profile)
	if !ok || poc.PriceLevel != 1.11 {
		t.Errorf("POC: got %+v ok=%v", poc, ok)
	}
}

func TestComputeValueArea_CoversSeventyPercent(t *testing.T) {
	profile := []VolumeLevel{
		{PriceLevel: 1.11, Volume: 500},
		{PriceLevel: 1.10, Volume: 300},
		{PriceLevel: 1.12, Volume: 200},
	}
	va, ok := ComputeValueArea(profile)
	if !ok {
		t.Fatal("value area: not ok")
	}
	// 500 < 700, 500+300 = 800 >= 700 → two levels, range [1.10, 1.11].
	if len(va.Levels) != 2 {
		t.Errorf("value area levels: got %d, want 2", len(va.Levels))
	}
	assertClose(t, "VA high", va.High, 1.11, 1e-12)
	assertClose(t, "VA low", va.Low, 1.10, 1e-12)
}

func TestVolumeAlerts_SpikeDetected(t *testing.T) {
	candles := make([]model.OHLC, 25)
	for i := range candles {
		candles[i] = model.OHLC{Open: 1.1, High: 1.101, Low: 1.099, Close: 1.1, Volume: 100, Complete: true}
	}
	last := &candles[len(candles)-1]
	last.Volume = 400
	last.Close = 1.105

	alerts := VolumeAlerts(candles, time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))
	var haveHigh, haveSpike bool
	for _, a := range alerts {
		switch a.Type {
		case "high_volume":
			haveHigh = true
			if a.Significance != "high" {
				t.Errorf("4x volume significance: got %s, want high", a.Significance)
			}
		case "volume_spike":
			haveSpike = true
		}
	}
	if !haveHigh || !haveSpike {
		t.Errorf("alerts: high_volume=%v volume_spike=%v", haveHigh, haveSpike)
	}
}

func TestAnalyze_ShortSeries_NilIndicators(t *testing.T) {
	s := Analyze(series(1.1, 1.2, 1.3))
	if s.RSI != nil || s.MACD != nil || s.Ichimoku != nil || s.Structure != nil {
		t.Error("short series: long-lookback indicators should be nil")
	}
}

func TestAnalyze_FullSeries_Populated(t *testing.T) {
	s := Analyze(series(ramp(1.10, 0.0005, 60)...))
	if s.RSI == nil || s.MACD == nil || s.Bollinger == nil || s.ATR == nil ||
		s.ADX == nil || s.Ichimoku == nil || s.SMA20 == nil || s.Structure == nil {
		t.Error("60-candle series: expected all long-lookback indicators populated")
	}
}
