package indicator

import "fxengine/internal/model"

// PatternType classifies a candlestick pattern's directional bias.
type PatternType string

const (
	PatternBullish PatternType = "bullish"
	PatternBearish PatternType = "bearish"
	PatternNeutral PatternType = "neutral"
)

// Strength grades a pattern or signal.
type Strength string

const (
	StrengthWeak     Strength = "weak"
	StrengthModerate Strength = "moderate"
	StrengthStrong   Strength = "strong"
)

// Pattern is one recognized candlestick formation. Confidence values are a
// fixed taxonomy (70–90), not statistically derived.
type Pattern struct {
	Name        string      `json:"name"`
	Type        PatternType `json:"type"`
	Strength    Strength    `json:"strength"`
	Confidence  int         `json:"confidence"`
	Description string      `json:"description"`
}

// RecognizePatterns inspects the last one to three candles for Doji,
// Hammer, Shooting Star, Bullish/Bearish Engulfing, and Morning/Evening
// Star formations using body-size and shadow-ratio heuristics with fixed
// thresholds. Returns nil with fewer than three candles.
func RecognizePatterns(candles []model.OHLC) []Pattern {
	if len(candles) < 3 {
		return nil
	}

	var patterns []Pattern
	current := candles[len(candles)-1]
	previous := candles[len(candles)-2]
	beforePrevious := candles[len(candles)-3]

	// Doji: body under 10% of the candle range.
	if r := current.Range(); r > 0 && current.Body()/r < 0.1 {
		patterns = append(patterns, Pattern{
			Name:        "Doji",
			Type:        PatternNeutral,
			Strength:    StrengthModerate,
			Confidence:  70,
			Description: "Indecision in the market, potential reversal signal",
		})
	}

	// Hammer: long lower shadow, stubby upper shadow, bullish body.
	if current.Bullish() &&
		current.LowerShadow() > current.Body()*2 &&
		current.UpperShadow() < current.Body()*0.5 {
		patterns = append(patterns, Pattern{
			Name:        "Hammer",
			Type:        PatternBullish,
			Strength:    StrengthStrong,
			Confidence:  80,
			Description: "Strong bullish reversal pattern at support levels",
		})
	}

	// Shooting Star: mirror of the hammer.
	if current.Bearish() &&
		current.UpperShadow() > current.Body()*2 &&
		current.LowerShadow() < current.Body()*0.5 {
		patterns = append(patterns, Pattern{
			Name:        "Shooting Star",
			Type:        PatternBearish,
			Strength:    StrengthStrong,
			Confidence:  80,
			Description: "Strong bearish reversal pattern at resistance levels",
		})
	}

	// Engulfing: current body fully swallows the prior opposite body.
	if previous.Bearish() && current.Bullish() &&
		current.Open < previous.Close && current.Close > previous.Open {
		patterns = append(patterns, Pattern{
			Name:        "Bullish Engulfing",
			Type:        PatternBullish,
			Strength:    StrengthStrong,
			Confidence:  85,
			Description: "Strong bullish reversal after downtrend",
		})
	}
	if previous.Bullish() && current.Bearish() &&
		current.Open > previous.Close && current.Close < previous.Open {
		patterns = append(patterns, Pattern{
			Name:        "Bearish Engulfing",
			Type:        PatternBearish,
			Strength:    StrengthStrong,
			Confidence:  85,
			Description: "Strong bearish reversal after uptrend",
		})
	}

	// Morning Star: red candle, small middle body, green close above the
	// first candle's midpoint.
	if beforePrevious.Bearish() &&
		previous.Body() < beforePrevious.Body()*0.3 &&
		current.Bullish() &&
		current.Close > (beforePrevious.Open+beforePrevious.Close)/2 {
		patterns = append(patterns, Pattern{
			Name:        "Morning Star",
			Type:        PatternBullish,
			Strength:    StrengthStrong,
			Confidence:  90,
			Description: "Very strong 3-candle bullish reversal pattern",
		})
	}

	// Evening Star: mirror of the morning star.
	if beforePrevious.Bullish() &&
		previous.Body() < beforePrevious.Body()*0.3 &&
		current.Bearish() &&
		current.Close < (beforePrevious.Open+beforePrevious.Close)/2 {
		patterns = append(patterns, Pattern{
			Name:        "Evening Star",
			Type:        PatternBearish,
			Strength:    StrengthStrong,
			Confidence:  90,
			Description: "Very strong 3-candle bearish reversal pattern",
		})
	}

	return patterns
}
