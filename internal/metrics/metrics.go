package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the fx engine.
type Metrics struct {
	// Broker client
	APIRequestsTotal *prometheus.CounterVec // labels: endpoint, outcome
	APIRequestDur    *prometheus.HistogramVec
	APIRetriesTotal  prometheus.Counter
	RateLimitWaitDur prometheus.Histogram

	// Request cache
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheEntries     prometheus.Gauge

	// Price stream
	TicksTotal        prometheus.Counter
	StreamReconnects  prometheus.Counter
	StreamParseErrors prometheus.Counter
	DroppedTicks      prometheus.Counter
	RingBufOverflow   prometheus.Counter
	FanoutDropsTotal  *prometheus.CounterVec // labels: subscriber

	// Analysis + signals
	IndicatorComputeDur prometheus.Histogram
	SignalsTotal        *prometheus.CounterVec // labels: instrument, type
	SignalsSuppressed   prometheus.Counter

	// Redis snapshot store
	RedisWriteDur            prometheus.Histogram
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Session
	MarketState prometheus.Gauge // 0=closed, 1=open
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxengine_api_requests_total",
			Help: "Broker API requests by endpoint and outcome (ok, error, retry_exhausted)",
		}, []string{"endpoint", "outcome"}),
		APIRequestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fxengine_api_request_duration_seconds",
			Help:    "Broker API request latency per endpoint (all attempts included)",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		APIRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxengine_api_retries_total",
			Help: "Broker API attempts beyond the first",
		}),
		RateLimitWaitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxengine_rate_limit_wait_seconds",
			Help:    "Time spent waiting on the client-side rate limiter",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}),

		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxengine_cache_hits_total",
			Help: "Request cache hits",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxengine_cache_misses_total",
			Help: "Request cache misses (fetch invoked)",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxengine_cache_entries",
			Help: "Current request cache entry count",
		}),

		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxengine_ticks_total",
			Help: "Price ticks received from the pricing stream",
		}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxengine_stream_reconnects_total",
			Help: "Pricing stream reconnection attempts",
		}),
		StreamParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxengine_stream_parse_errors_total",
			Help: "Malformed pricing stream lines skipped",
		}),
		DroppedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxengine_dropped_ticks_total",
			Help: "Ticks dropped (subscriber channel full)",
		}),
		RingBufOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxengine_ringbuf_overflow_total",
			Help: "Ring buffer push overflows (dropped ticks)",
		}),
		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxengine_fanout_drops_total",
			Help: "Ticks dropped by the fan-out bus per subscriber",
		}, []string{"subscriber"}),

		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxengine_indicator_compute_duration_seconds",
			Help:    "Full analysis snapshot compute latency per instrument",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxengine_signals_total",
			Help: "Trading signals surfaced by instrument and direction",
		}, []string{"instrument", "type"}),
		SignalsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxengine_signals_suppressed_total",
			Help: "Signals dropped by confidence filter or daily cap",
		}),

		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxengine_redis_write_duration_seconds",
			Help:    "Redis snapshot write latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxengine_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxengine_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxengine_market_state",
			Help: "Forex session state (0=closed, 1=open)",
		}),
	}

	prometheus.MustRegister(
		m.APIRequestsTotal,
		m.APIRequestDur,
		m.APIRetriesTotal,
		m.RateLimitWaitDur,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEntries,
		m.TicksTotal,
		m.StreamReconnects,
		m.StreamParseErrors,
		m.DroppedTicks,
		m.RingBufOverflow,
		m.FanoutDropsTotal,
		m.IndicatorComputeDur,
		m.SignalsTotal,
		m.SignalsSuppressed,
		m.RedisWriteDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.MarketState,
	)

	return m
}

// HealthStatus represents the engine's health.
type HealthStatus struct {
	mu sync.RWMutex

	StreamConnected bool      `json:"stream_connected"`
	LastTickTime    time.Time `json:"last_tick_time"`
	RedisConnected  bool      `json:"redis_connected"`
	MarketOpen      bool      `json:"market_open"`
	Instruments     []string  `json:"instruments"`

	RedisLatencyMs float64   `json:"redis_latency_ms"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetStreamConnected(v bool) {
	h.mu.Lock()
	h.StreamConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetMarketOpen(v bool) {
	h.mu.Lock()
	h.MarketOpen = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetInstruments(instruments []string) {
	h.mu.Lock()
	h.Instruments = instruments
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if rdb != nil {
					probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
					h.CheckRedis(probeCtx, rdb)
					cancel()
				}
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	// A closed market means an idle stream, not an unhealthy engine.
	if !h.StreamConnected && h.MarketOpen {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string   `json:"status"`
		Uptime          string   `json:"uptime"`
		StreamConnected bool     `json:"stream_connected"`
		LastTickTime    string   `json:"last_tick_time"`
		TickAge         string   `json:"tick_age"`
		MarketOpen      bool     `json:"market_open"`
		RedisConnected  bool     `json:"redis_connected"`
		RedisLatencyMs  float64  `json:"redis_latency_ms"`
		Instruments     []string `json:"instruments"`
		LastCheckAt     string   `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		StreamConnected: h.StreamConnected,
		LastTickTime:    h.LastTickTime.Format(time.RFC3339),
		TickAge:         tickAge,
		MarketOpen:      h.MarketOpen,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		Instruments:     h.Instruments,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Serve runs an HTTP server exposing /metrics and /healthz until ctx is
// cancelled.
func Serve(ctx context.Context, addr string, health *HealthStatus) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", health)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[metrics] serving /metrics and /healthz on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[metrics] server error: %v", err)
	}
}
