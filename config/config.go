package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Broker credentials
	OandaAPIKey    string
	OandaAccountID string
	OandaAPIURL    string
	OandaStreamURL string

	// Instruments to analyze (comma-separated, e.g. "EUR_USD,GBP_USD")
	Instruments string
	Granularity string
	CandleCount int

	// Broker client knobs
	APIRetries    int
	APITimeout    time.Duration
	RateLimitRPS  float64

	// Signal engine knobs
	SignalMinConfidence int
	SignalMaxPerDay     int
	SignalInterval      time.Duration

	// Notifications
	TelegramBotToken string
	TelegramChatID   string

	// Paper trading
	PaperTrading  bool
	JournalPath   string
	StrategyUnits float64
	SlippagePips  float64

	// Infrastructure
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	MetricsAddr   string
	GatewayAddr   string
	WebhookURL    string
}

// Load reads configuration from environment variables with sensible
// defaults, after sourcing a .env file when one is present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env not loaded: %v", err)
	}

	return &Config{
		OandaAPIKey:    mustEnv("OANDA_API_KEY"),
		OandaAccountID: mustEnv("OANDA_ACCOUNT_ID"),
		OandaAPIURL:    getEnv("OANDA_API_URL", "https://api-fxpractice.oanda.com"),
		OandaStreamURL: getEnv("OANDA_STREAM_URL", "https://stream-fxpractice.oanda.com"),

		Instruments: getEnv("INSTRUMENTS", "EUR_USD,GBP_USD,USD_JPY"),
		Granularity: getEnv("GRANULARITY", "M5"),
		CandleCount: getEnvInt("CANDLE_COUNT", 100),

		APIRetries:   getEnvInt("API_RETRIES", 3),
		APITimeout:   time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 10)) * time.Second,
		RateLimitRPS: getEnvFloat("RATE_LIMIT_RPS", 10),

		SignalMinConfidence: getEnvInt("SIGNAL_MIN_CONFIDENCE", 70),
		SignalMaxPerDay:     getEnvInt("SIGNAL_MAX_PER_DAY", 10),
		SignalInterval:      time.Duration(getEnvInt("SIGNAL_INTERVAL_SECONDS", 60)) * time.Second,

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		PaperTrading:  getEnvBool("PAPER_TRADING", true),
		JournalPath:   getEnv("JOURNAL_PATH", "fills.jsonl"),
		StrategyUnits: getEnvFloat("STRATEGY_UNITS", 10000),
		SlippagePips:  getEnvFloat("SLIPPAGE_PIPS", 0.5),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", false),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8081"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
	}
}

// ParseInstruments splits the Instruments string into a cleaned slice.
func (c *Config) ParseInstruments() []string {
	parts := strings.Split(c.Instruments, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "_") {
			log.Printf("[config] skipping invalid instrument: %q", p)
			continue
		}
		out = append(out, p)
	}
	return out
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}
