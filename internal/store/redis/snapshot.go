// Package redis caches the latest analysis snapshots and surfaced signals
// per instrument, with a TTL. This is a volatile read-side cache: Redis is
// optional, and failures trip a circuit breaker instead of failing the
// engine.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"fxengine/internal/metrics"
	"fxengine/internal/model"
)

const defaultSnapshotTTL = 30 * time.Minute

// StoreConfig configures the snapshot store.
type StoreConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // snapshot expiry; default 30m
}

// Store writes and reads instrument snapshots behind a circuit breaker.
type Store struct {
	client  *goredis.Client
	breaker *CircuitBreaker
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewStore connects to Redis and pings the server.
func NewStore(cfg StoreConfig, m *metrics.Metrics) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}

	s := &Store{
		client:  client,
		breaker: NewCircuitBreaker(5, 10*time.Second),
		ttl:     ttl,
		metrics: m,
	}
	s.breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
		if m != nil {
			m.RedisCircuitBreakerState.Set(float64(to))
			if to == StateOpen {
				m.RedisCircuitBreakerTrips.Inc()
			}
		}
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return s, nil
}

// Client returns the underlying Redis client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// Close releases the connection pool.
func (s *Store) Close() error { return s.client.Close() }

func signalsKey(instrument string) string { return "fx:signals:" + instrument }
func analysisKey(instrument string) string { return "fx:analysis:" + instrument }

// SaveSignals stores the instrument's surfaced signals as one JSON blob.
func (s *Store) SaveSignals(ctx context.Context, instrument string, signals []model.Signal) error {
	payload, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("redis: marshal signals: %w", err)
	}
	return s.set(ctx, signalsKey(instrument), payload)
}

// LatestSignals returns the instrument's cached signals, or nil when no
// snapshot exists.
func (s *Store) LatestSignals(ctx context.Context, instrument string) ([]model.Signal, error) {
	var out []model.Signal
	found, err := s.get(ctx, signalsKey(instrument), &out)
	if err != nil || !found {
		return nil, err
	}
	return out, nil
}

// SaveAnalysis stores an analysis snapshot (any JSON-encodable value).
func (s *Store) SaveAnalysis(ctx context.Context, instrument string, snapshot any) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("redis: marshal analysis: %w", err)
	}
	return s.set(ctx, analysisKey(instrument), payload)
}

// LatestAnalysis decodes the cached analysis snapshot into dst. Returns
// false when no snapshot exists.
func (s *Store) LatestAnalysis(ctx context.Context, instrument string, dst any) (bool, error) {
	return s.get(ctx, analysisKey(instrument), dst)
}

func (s *Store) set(ctx context.Context, key string, payload []byte) error {
	return s.breaker.Execute(func() error {
		start := time.Now()
		err := s.client.Set(ctx, key, payload, s.ttl).Err()
		if s.metrics != nil {
			s.metrics.RedisWriteDur.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			return fmt.Errorf("redis: set %s: %w", key, err)
		}
		return nil
	})
}

func (s *Store) get(ctx context.Context, key string, dst any) (bool, error) {
	var raw []byte
	err := s.breaker.Execute(func() error {
		var err error
		raw, err = s.client.Get(ctx, key).Bytes()
		if err == goredis.Nil {
			raw = nil
			return nil
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("redis: get %s: %w", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("redis: decode %s: %w", key, err)
	}
	return true, nil
}
