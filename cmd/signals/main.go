// cmd/signals — one-shot analysis report.
//
// Fetches recent candles for each configured instrument, prints the
// indicator summary, multi-timeframe bias and any surfaced signals, then
// exits. Useful for eyeballing the engine's view of the market without
// running the full service.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"fxengine/config"
	"fxengine/internal/analysis"
	"fxengine/internal/broker"
	"fxengine/internal/cache"
	"fxengine/internal/indicator"
	"fxengine/internal/logger"
	"fxengine/internal/markethours"
	"fxengine/internal/signal"
)

func main() {
	cfg := config.Load()
	logger.Init("signals", slog.LevelWarn)

	instruments := cfg.ParseInstruments()
	if len(instruments) == 0 {
		log.Fatal("[signals] no valid instruments configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := broker.New(broker.Config{
		APIURL:    cfg.OandaAPIURL,
		StreamURL: cfg.OandaStreamURL,
		APIKey:    cfg.OandaAPIKey,
		AccountID: cfg.OandaAccountID,
		Retries:   cfg.APIRetries,
		Timeout:   cfg.APITimeout,
		RPS:       cfg.RateLimitRPS,
		Cache:     cache.New(),
	})
	gen := signal.NewGenerator(signal.DefaultConfig())
	mtf := analysis.NewMTF(client)
	now := time.Now().UTC()

	fmt.Printf("market: %s\n\n", markethours.StatusString(now))

	exitCode := 0
	for _, instrument := range instruments {
		if err := report(ctx, client, gen, mtf, instrument, cfg.Granularity, cfg.CandleCount, now); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", instrument, err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func report(ctx context.Context, client *broker.Client, gen *signal.Generator,
	mtf *analysis.MTF, instrument, granularity string, count int, now time.Time) error {

	candles, err := client.GetCandles(ctx, instrument, granularity, count)
	if err != nil {
		return err
	}

	s := indicator.Analyze(candles)
	fmt.Printf("== %s (%s, %d candles) ==\n", instrument, granularity, len(candles))
	printIndicator("RSI(14)", s.RSI)
	if s.MACD != nil {
		fmt.Printf("  MACD        %.5f  signal %.5f  hist %.5f\n", s.MACD.MACD, s.MACD.Signal, s.MACD.Histogram)
	}
	if s.Bollinger != nil {
		fmt.Printf("  Bollinger   %%B %.3f  [%.5f .. %.5f]\n", s.Bollinger.PercentB, s.Bollinger.Lower, s.Bollinger.Upper)
	}
	if s.Stochastic != nil {
		fmt.Printf("  Stochastic  %%K %.1f  %%D %.1f\n", s.Stochastic.K, s.Stochastic.D)
	}
	printIndicator("ATR(14)", s.ATR)
	if s.Structure != nil {
		fmt.Printf("  Structure   %s (strength %.0f)\n", s.Structure.Trend, s.Structure.Strength)
	}
	for _, p := range s.Patterns {
		fmt.Printf("  Pattern     %s (%s, conf %d)\n", p.Name, p.Type, p.Confidence)
	}

	if res, err := mtf.Analyze(ctx, instrument); err == nil {
		fmt.Printf("  MTF bias    %s (score %.2f, confluence %.0f%%)\n", res.Bias, res.BiasScore, res.Confluence)
	}

	signals := gen.Generate(instrument, granularity, candles, now)
	if len(signals) == 0 {
		fmt.Println("  no signals")
	}
	for _, sig := range signals {
		fmt.Printf("  SIGNAL %s %s conf %.0f @ %.5f  SL %.5f  TP %.5f  [%s]\n",
			sig.Type, sig.Strength, sig.Confidence, sig.Price, sig.StopLoss, sig.TakeProfit, sig.Reason)
	}
	fmt.Println()
	return nil
}

func printIndicator(label string, v *float64) {
	if v == nil {
		return
	}
	fmt.Printf("  %-11s %.4f\n", label, *v)
}
