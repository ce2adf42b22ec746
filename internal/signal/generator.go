// Package signal turns indicator readings into trading signals and keeps a
// bounded book of everything surfaced.
package signal

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"fxengine/internal/indicator"
	"fxengine/internal/model"
)

// minCandles is the least history any rule needs a verdict on.
const minCandles = 50

// Config selects which rules run and how aggressively signals are filtered.
type Config struct {
	EnableRSI        bool
	EnableMACD       bool
	EnableBollinger  bool
	EnableStochastic bool
	EnableADX        bool

	// EnableMultiTimeframe gates ApplyBias: signals that run against the
	// higher-timeframe bias are suppressed.
	EnableMultiTimeframe bool

	MinConfidence    float64
	MaxSignalsPerDay int
}

// DefaultConfig enables every rule with the tuned thresholds.
func DefaultConfig() Config {
	return Config{
		EnableRSI:        true,
		EnableMACD:       true,
		EnableBollinger:  true,
		EnableStochastic: true,
		EnableADX:        true,

		EnableMultiTimeframe: true,

		MinConfidence:    70,
		MaxSignalsPerDay: 10,
	}
}

// Generator evaluates one instrument's candles against the enabled rules.
// Stateless; safe for concurrent use.
type Generator struct {
	cfg Config
}

func NewGenerator(cfg Config) *Generator {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 70
	}
	if cfg.MaxSignalsPerDay <= 0 {
		cfg.MaxSignalsPerDay = 10
	}
	return &Generator{cfg: cfg}
}

// candidate is one rule's raw verdict before confluence and filtering.
type candidate struct {
	typ        model.SignalType
	strength   string
	confidence float64
	indicator  string
	reason     string
}

// Generate evaluates the series and returns surfaced signals sorted by
// confidence, highest first. Incomplete candles are excluded; fewer than 50
// complete candles yields no signals.
func (g *Generator) Generate(instrument, granularity string, candles []model.OHLC, now time.Time) []model.Signal {
	complete := model.CompleteOnly(candles)
	if len(complete) < minCandles {
		return nil
	}
	closes := model.Closes(complete)
	price := closes[len(closes)-1]

	var candidates []candidate
	if g.cfg.EnableRSI {
		candidates = append(candidates, rsiRule(closes)...)
	}
	if g.cfg.EnableMACD {
		candidates = append(candidates, macdRule(closes)...)
	}
	if g.cfg.EnableBollinger {
		candidates = append(candidates, bollingerRule(closes)...)
	}
	if g.cfg.EnableStochastic {
		candidates = append(candidates, stochasticRule(complete)...)
	}
	if g.cfg.EnableADX {
		candidates = append(candidates, adxRule(complete)...)
	}
	if len(candidates) == 0 {
		return nil
	}

	atr, ok := indicator.ATR(complete, 14)
	if !ok || atr <= 0 {
		atr = 0.001
	}

	merged := confluence(candidates)

	signals := make([]model.Signal, 0, len(merged))
	for _, c := range merged {
		if c.confidence < g.cfg.MinConfidence {
			continue
		}
		sig := model.Signal{
			ID:          uuid.NewString(),
			Instrument:  instrument,
			Type:        c.typ,
			Strength:    c.strength,
			Confidence:  c.confidence,
			Price:       price,
			Time:        now,
			Indicators:  strings.Split(c.indicator, "+"),
			Reason:      c.reason,
			Granularity: granularity,
			Status:      model.SignalActive,
		}
		if c.typ == model.SignalBuy {
			sig.StopLoss = price - 2*atr
			sig.TakeProfit = price + 4*atr
		} else {
			sig.StopLoss = price + 2*atr
			sig.TakeProfit = price - 4*atr
		}
		signals = append(signals, sig)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Confidence > signals[j].Confidence
	})
	return signals
}

// ApplyBias drops signals that run against the higher-timeframe bias
// ("bullish" or "bearish"). A neutral bias, or a generator with the
// multi-timeframe filter disabled, passes everything through.
func (g *Generator) ApplyBias(signals []model.Signal, bias string) []model.Signal {
	if !g.cfg.EnableMultiTimeframe {
		return signals
	}
	var against model.SignalType
	switch bias {
	case "bullish":
		against = model.SignalSell
	case "bearish":
		against = model.SignalBuy
	default:
		return signals
	}
	kept := signals[:0]
	for _, sig := range signals {
		if sig.Type != against {
			kept = append(kept, sig)
		}
	}
	return kept
}

func rsiRule(closes []float64) []candidate {
	rsi, ok := indicator.RSI(closes, 14)
	if !ok {
		return nil
	}
	switch {
	case rsi < 30:
		strength := "moderate"
		if rsi < 20 {
			strength = "strong"
		}
		return []candidate{{
			typ:        model.SignalBuy,
			strength:   strength,
			confidence: math.Min(95, 30+(30-rsi)*2),
			indicator:  "RSI",
			reason:     fmt.Sprintf("RSI oversold at %.1f", rsi),
		}}
	case rsi > 70:
		strength := "moderate"
		if rsi > 80 {
			strength = "strong"
		}
		return []candidate{{
			typ:        model.SignalSell,
			strength:   strength,
			confidence: math.Min(95, 30+(rsi-70)*2),
			indicator:  "RSI",
			reason:     fmt.Sprintf("RSI overbought at %.1f", rsi),
		}}
	}
	return nil
}

// macdRule detects a signal-line crossover on the latest bar. The series
// form carries a true EMA signal line, unlike the display snapshot.
func macdRule(closes []float64) []candidate {
	series, ok := indicator.MACDSeries(closes, 12, 26, 9)
	if !ok || len(series) < 2 {
		return nil
	}
	prev := series[len(series)-2]
	cur := series[len(series)-1]

	crossedUp := prev.MACD <= prev.Signal && cur.MACD > cur.Signal
	crossedDown := prev.MACD >= prev.Signal && cur.MACD < cur.Signal

	switch {
	case crossedUp:
		strength := "moderate"
		if cur.Histogram > 0 && cur.MACD > 0 {
			strength = "strong"
		}
		return []candidate{{
			typ:        model.SignalBuy,
			strength:   strength,
			confidence: 75,
			indicator:  "MACD",
			reason:     "MACD bullish crossover",
		}}
	case crossedDown:
		strength := "moderate"
		if cur.Histogram < 0 && cur.MACD < 0 {
			strength = "strong"
		}
		return []candidate{{
			typ:        model.SignalSell,
			strength:   strength,
			confidence: 75,
			indicator:  "MACD",
			reason:     "MACD bearish crossover",
		}}
	}
	return nil
}

func bollingerRule(closes []float64) []candidate {
	b, ok := indicator.Bollinger(closes, 20, 2)
	if !ok || math.IsNaN(b.PercentB) {
		return nil
	}
	switch {
	case b.PercentB < 0.1:
		strength := "moderate"
		if b.PercentB < 0.05 {
			strength = "strong"
		}
		return []candidate{{
			typ:        model.SignalBuy,
			strength:   strength,
			confidence: 80,
			indicator:  "Bollinger",
			reason:     "Price at lower Bollinger band",
		}}
	case b.PercentB > 0.9:
		strength := "moderate"
		if b.PercentB > 0.95 {
			strength = "strong"
		}
		return []candidate{{
			typ:        model.SignalSell,
			strength:   strength,
			confidence: 80,
			indicator:  "Bollinger",
			reason:     "Price at upper Bollinger band",
		}}
	}
	return nil
}

func stochasticRule(candles []model.OHLC) []candidate {
	s, ok := indicator.Stochastic(candles, 14)
	if !ok {
		return nil
	}
	switch {
	case s.K < 20:
		return []candidate{{
			typ:        model.SignalBuy,
			strength:   "moderate",
			confidence: 70,
			indicator:  "Stochastic",
			reason:     fmt.Sprintf("Stochastic oversold, %%K at %.1f", s.K),
		}}
	case s.K > 80:
		return []candidate{{
			typ:        model.SignalSell,
			strength:   "moderate",
			confidence: 70,
			indicator:  "Stochastic",
			reason:     fmt.Sprintf("Stochastic overbought, %%K at %.1f", s.K),
		}}
	}
	return nil
}

func adxRule(candles []model.OHLC) []candidate {
	di, ok := indicator.ADX(candles, 14)
	if !ok || di.ADX <= 25 {
		return nil
	}
	if di.PlusDI > di.MinusDI {
		return []candidate{{
			typ:        model.SignalBuy,
			strength:   "moderate",
			confidence: 70,
			indicator:  "ADX",
			reason:     fmt.Sprintf("Strong uptrend, ADX at %.1f", di.ADX),
		}}
	}
	return []candidate{{
		typ:        model.SignalSell,
		strength:   "moderate",
		confidence: 70,
		indicator:  "ADX",
		reason:     fmt.Sprintf("Strong downtrend, ADX at %.1f", di.ADX),
	}}
}

// confluence appends one aggregate candidate per direction where two or
// more rules agree: strong, boosted confidence, union of indicator names.
// Every individual candidate passes through unchanged alongside it.
func confluence(candidates []candidate) []candidate {
	byType := map[model.SignalType][]candidate{}
	for _, c := range candidates {
		byType[c.typ] = append(byType[c.typ], c)
	}

	out := append([]candidate(nil), candidates...)
	for _, typ := range []model.SignalType{model.SignalBuy, model.SignalSell} {
		group := byType[typ]
		if len(group) < 2 {
			continue
		}
		var sum float64
		names := make([]string, len(group))
		reasons := make([]string, len(group))
		for i, c := range group {
			sum += c.confidence
			names[i] = c.indicator
			reasons[i] = c.reason
		}
		out = append(out, candidate{
			typ:        typ,
			strength:   "strong",
			confidence: math.Min(95, sum/float64(len(group))+15),
			indicator:  strings.Join(names, "+"),
			reason:     strings.Join(reasons, "; "),
		})
	}
	return out
}
