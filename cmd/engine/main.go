// cmd/engine — long-running forex analysis engine.
//
// Streams live prices from the broker, runs periodic indicator analysis and
// signal generation per instrument, and exposes results over a WebSocket
// gateway, a REST API, Prometheus metrics, optional Redis snapshots and
// optional webhook/Telegram notifications. When paper trading is enabled,
// an SMA-crossover strategy trades the live feed against a simulated
// portfolio.
//
// Config (env vars, .env supported): see config.Load.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fxengine/config"
	"fxengine/internal/analysis"
	"fxengine/internal/api"
	"fxengine/internal/broker"
	"fxengine/internal/bus"
	"fxengine/internal/cache"
	"fxengine/internal/candles"
	"fxengine/internal/execution"
	"fxengine/internal/gateway"
	"fxengine/internal/logger"
	"fxengine/internal/markethours"
	"fxengine/internal/metrics"
	"fxengine/internal/model"
	"fxengine/internal/notify"
	"fxengine/internal/portfolio"
	"fxengine/internal/ringbuf"
	sigengine "fxengine/internal/signal"
	redisstore "fxengine/internal/store/redis"
	"fxengine/internal/strategy"
)

func main() {
	cfg := config.Load()
	slg := logger.Init("engine", slog.LevelInfo)
	instruments := cfg.ParseInstruments()
	if len(instruments) == 0 {
		log.Fatal("[engine] no valid instruments configured")
	}
	slg.Info("starting", "instruments", instruments, "granularity", cfg.Granularity)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetInstruments(instruments)

	reqCache := cache.New()
	go reqCache.RunCleanup(ctx, time.Minute)
	go syncCacheMetrics(ctx, reqCache, m)

	client := broker.New(broker.Config{
		APIURL:    cfg.OandaAPIURL,
		StreamURL: cfg.OandaStreamURL,
		APIKey:    cfg.OandaAPIKey,
		AccountID: cfg.OandaAccountID,
		Retries:   cfg.APIRetries,
		Timeout:   cfg.APITimeout,
		RPS:       cfg.RateLimitRPS,
		Cache:     reqCache,
		Metrics:   m,
	})

	var store *redisstore.Store
	if cfg.RedisEnabled {
		var err error
		store, err = redisstore.NewStore(redisstore.StoreConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}, m)
		if err != nil {
			// Snapshots are a cache; the engine runs without them.
			slg.Warn("redis unavailable, snapshots disabled", "err", err)
		} else {
			defer store.Close()
			health.StartLivenessChecker(ctx, store.Client(), 15*time.Second)
		}
	}

	book := sigengine.NewBook(100, cfg.SignalMaxPerDay)

	hub := gateway.NewHub()
	hub.OnDrop = func() { m.FanoutDropsTotal.WithLabelValues("gateway").Inc() }

	fan := bus.New(256)
	fan.OnDrop = func(int) { m.FanoutDropsTotal.WithLabelValues("subscriber").Inc() }

	var paper *execution.PaperExecutor
	var pf *portfolio.Portfolio
	if cfg.PaperTrading {
		paper, pf = startPaperTrading(ctx, cfg, fan, slg)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.Handle("/api/v1/", api.NewRouter(api.Deps{Book: book, Portfolio: pf, Paper: paper}))
	gwServer := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}
	go func() {
		slg.Info("gateway listening", "addr", cfg.GatewayAddr)
		if err := gwServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[engine] gateway: %v", err)
		}
	}()

	go metrics.Serve(ctx, cfg.MetricsAddr, health)

	var notifiers notify.Multi
	notifiers = append(notifiers, notify.NewLogNotifier())
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}

	runStreamPipeline(ctx, client, fan, hub, pf, m, health, instruments)

	gen := sigengine.NewGenerator(sigengine.Config{
		EnableRSI:        true,
		EnableMACD:       true,
		EnableBollinger:  true,
		EnableStochastic: true,
		EnableADX:        true,

		EnableMultiTimeframe: true,

		MinConfidence:    float64(cfg.SignalMinConfidence),
		MaxSignalsPerDay: cfg.SignalMaxPerDay,
	})
	mtf := analysis.NewMTF(client)

	runAnalysisLoop(ctx, analysisDeps{
		cfg:       cfg,
		log:       slg,
		client:    client,
		gen:       gen,
		book:      book,
		mtf:       mtf,
		hub:       hub,
		store:     store,
		notifiers: notifiers,
		metrics:   m,
		health:    health,
	}, instruments)

	<-ctx.Done()
	slg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	gwServer.Shutdown(shutdownCtx)
}

// syncCacheMetrics exports cache counters to Prometheus. The cache keeps
// its own counters so it stays metrics-agnostic; this loop bridges the two.
func syncCacheMetrics(ctx context.Context, c *cache.Cache, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	var lastHits, lastMisses uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := c.Stats()
			m.CacheHitsTotal.Add(float64(st.Hits - lastHits))
			m.CacheMissesTotal.Add(float64(st.Misses - lastMisses))
			lastHits, lastMisses = st.Hits, st.Misses
			m.CacheEntries.Set(float64(st.Entries))
		}
	}
}

// runStreamPipeline wires broker stream -> ring buffer -> fan-out. One
// subscriber forwards ticks to the gateway and marks paper positions to
// market. The ring buffer decouples the network reader from downstream
// consumers so a stalled consumer can never back-pressure the stream socket.
func runStreamPipeline(ctx context.Context, client *broker.Client, fan *bus.FanOut,
	hub *gateway.Hub, pf *portfolio.Portfolio,
	m *metrics.Metrics, health *metrics.HealthStatus, instruments []string) {

	ticks := client.StreamPricing(ctx, instruments)
	ring := ringbuf.New(4096)
	fanIn := make(chan model.PriceTick, 256)

	gwTicks := fan.Subscribe()

	// Producer: stream socket into the ring, ring into the fan-out.
	go func() {
		defer close(fanIn)
		health.SetStreamConnected(true)
		for tick := range ticks {
			m.TicksTotal.Inc()
			health.SetLastTickTime(tick.Time)
			if !ring.Push(tick) {
				m.RingBufOverflow.Inc()
				m.DroppedTicks.Inc()
			}
			for {
				t, ok := ring.Pop()
				if !ok {
					break
				}
				select {
				case fanIn <- t:
				case <-ctx.Done():
					return
				}
			}
		}
		health.SetStreamConnected(false)
	}()

	go fan.Run(ctx, fanIn)
	go func() {
		for tick := range gwTicks {
			hub.BroadcastTick(tick)
			if pf != nil {
				pf.UpdatePrice(tick)
			}
		}
	}()
}

// startPaperTrading wires tick resampling -> strategy engine -> paper
// executor. Returns the executor and portfolio for the REST API.
func startPaperTrading(ctx context.Context, cfg *config.Config, fan *bus.FanOut,
	slg *slog.Logger) (*execution.PaperExecutor, *portfolio.Portfolio) {

	pf := portfolio.New()
	guard := portfolio.NewLimitGuard(portfolio.DefaultLimits(), pf, 10000)

	var journal *execution.Journal
	if cfg.JournalPath != "" {
		var err error
		journal, err = execution.NewJournal(cfg.JournalPath)
		if err != nil {
			slg.Warn("journal disabled", "err", err)
		}
	}

	paper := execution.NewPaperExecutor(pf, guard, journal, 64, cfg.SlippagePips)

	// Latest tick mids back market-order fills.
	var lastMu sync.RWMutex
	last := make(map[string]float64)
	paper.PriceFn = func(instrument string) float64 {
		lastMu.RLock()
		defer lastMu.RUnlock()
		return last[instrument]
	}

	stratEngine := strategy.NewEngine(64)
	stratEngine.Register(strategy.NewSMACrossover(10, 20, cfg.StrategyUnits, true, 14))

	builder := candles.New([]time.Duration{time.Minute})
	candleCh := make(chan candles.Candle, 256)
	stratTicks := fan.Subscribe()

	go func() {
		for tick := range stratTicks {
			lastMu.Lock()
			last[tick.Instrument] = tick.Mid()
			lastMu.Unlock()
			builder.Process(tick, candleCh)
		}
		close(candleCh)
	}()

	go func() {
		for c := range candleCh {
			if c.Complete {
				stratEngine.OnCandle(ctx, c.Instrument, c.OHLC)
			}
		}
	}()

	go paper.Run(ctx, stratEngine.Signals())
	go func() {
		for res := range paper.Results() {
			slg.Info("paper order", "status", res.Status, "order_id", res.OrderID,
				"instrument", res.Signal.Instrument, "action", res.Signal.Action)
		}
	}()

	return paper, pf
}

type analysisDeps struct {
	cfg       *config.Config
	log       *slog.Logger
	client    *broker.Client
	gen       *sigengine.Generator
	book      *sigengine.Book
	mtf       *analysis.MTF
	hub       *gateway.Hub
	store     *redisstore.Store
	notifiers notify.Multi
	metrics   *metrics.Metrics
	health    *metrics.HealthStatus
}

// runAnalysisLoop evaluates every instrument on a fixed interval while the
// forex market is open.
func runAnalysisLoop(ctx context.Context, d analysisDeps, instruments []string) {
	go func() {
		ticker := time.NewTicker(d.cfg.SignalInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				open := markethours.IsMarketOpen(now.UTC())
				d.health.SetMarketOpen(open)
				if open {
					d.metrics.MarketState.Set(1)
				} else {
					d.metrics.MarketState.Set(0)
					d.log.Debug("market closed", "status", markethours.StatusString(now.UTC()))
					continue
				}
				for _, instrument := range instruments {
					d.analyzeInstrument(ctx, instrument, now.UTC())
				}
				d.book.ExpireStale(now.UTC())
			}
		}
	}()
}

func (d analysisDeps) analyzeInstrument(ctx context.Context, instrument string, now time.Time) {
	candleData, err := d.client.GetCandles(ctx, instrument, d.cfg.Granularity, d.cfg.CandleCount)
	if err != nil {
		d.log.Error("get candles", "instrument", instrument, "err", err)
		return
	}

	trace := logger.GenerateTraceID(instrument, now)
	ctx = logger.WithTraceID(ctx, trace)

	start := time.Now()
	signals := d.gen.Generate(instrument, d.cfg.Granularity, candleData, now)
	d.metrics.IndicatorComputeDur.Observe(time.Since(start).Seconds())

	mtfResult, mtfErr := d.mtf.Analyze(ctx, instrument)
	if mtfErr != nil {
		d.log.Error("mtf analyze", "instrument", instrument, "trace_id", trace, "err", mtfErr)
	} else {
		filtered := d.gen.ApplyBias(signals, mtfResult.Bias)
		for i := len(filtered); i < len(signals); i++ {
			d.metrics.SignalsSuppressed.Inc()
		}
		signals = filtered
	}

	for _, sig := range signals {
		if !d.book.Add(sig) {
			d.metrics.SignalsSuppressed.Inc()
			continue
		}
		d.metrics.SignalsTotal.WithLabelValues(sig.Instrument, string(sig.Type)).Inc()
		d.hub.BroadcastSignal(sig)
		if err := d.notifiers.NotifySignal(ctx, sig); err != nil {
			d.log.Error("notify", "signal", sig.ID, "trace_id", trace, "err", err)
		}
	}
	if d.store != nil && len(signals) > 0 {
		if err := d.store.SaveSignals(ctx, instrument, d.book.Active(now)); err != nil {
			d.log.Warn("redis save signals", "instrument", instrument, "err", err)
		}
	}

	if mtfErr != nil {
		return
	}
	d.hub.BroadcastAnalysis(instrument, mtfResult)
	if d.store != nil {
		if err := d.store.SaveAnalysis(ctx, instrument, mtfResult); err != nil {
			d.log.Warn("redis save analysis", "instrument", instrument, "err", err)
		}
	}
}
