// Package broker implements the OANDA v3 REST client and pricing stream.
// All requests pass a client-side rate limiter, retry transient failures
// with exponential backoff, and optionally read through the request cache.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"fxengine/internal/cache"
	"fxengine/internal/metrics"
	"fxengine/internal/model"
)

// Per-endpoint cache TTLs. Pricing moves fastest, the instrument catalog
// barely at all.
const (
	TTLAccount     = 15 * time.Second
	TTLInstruments = time.Hour
	TTLPricing     = 5 * time.Second
	TTLCandles     = 30 * time.Second
	TTLPositions   = 10 * time.Second
	TTLTrades      = 10 * time.Second
)

// Config wires a Client.
type Config struct {
	APIURL    string
	StreamURL string
	APIKey    string
	AccountID string

	Retries int           // total attempts per request; default 3
	Timeout time.Duration // per-attempt HTTP timeout; default 10s
	RPS     float64       // client-side rate limit; default 10 req/s

	Cache   *cache.Cache     // nil disables response caching
	Metrics *metrics.Metrics // nil disables instrumentation
}

// Client is a bearer-authenticated REST client. Safe for concurrent use.
type Client struct {
	apiURL    string
	streamURL string
	apiKey    string
	accountID string

	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
	metrics    *metrics.Metrics

	retries     int
	backoffBase time.Duration
}

// RequestOptions tune one request. Zero values fall back to the client
// defaults; Cache=false bypasses the cache entirely.
type RequestOptions struct {
	Cache    bool
	CacheTTL time.Duration
	Retries  int
	Timeout  time.Duration
}

func New(cfg Config) *Client {
	retries := cfg.Retries
	if retries <= 0 {
		retries = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		apiURL:      strings.TrimRight(cfg.APIURL, "/"),
		streamURL:   strings.TrimRight(cfg.StreamURL, "/"),
		apiKey:      cfg.APIKey,
		accountID:   cfg.AccountID,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), int(rps)),
		cache:       cfg.Cache,
		metrics:     cfg.Metrics,
		retries:     retries,
		backoffBase: time.Second,
	}
}

// request performs one API call with rate limiting, retries, and optional
// caching. Decoding is strict at the boundary: the endpoint's typed schema
// validates shapes before anything reaches indicator math.
func request[T any](ctx context.Context, c *Client, endpoint, method, path string, body any, opts RequestOptions) (T, error) {
	fetch := func(ctx context.Context) (T, error) {
		return attemptLoop[T](ctx, c, endpoint, method, path, body, opts)
	}
	if opts.Cache && c.cache != nil && method == http.MethodGet {
		key := method + " " + path
		return cache.GetTyped(ctx, c.cache, key, opts.CacheTTL, fetch)
	}
	return fetch(ctx)
}

func attemptLoop[T any](ctx context.Context, c *Client, endpoint, method, path string, body any, opts RequestOptions) (T, error) {
	var zero T

	retries := opts.Retries
	if retries <= 0 {
		retries = c.retries
	}

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.APIRequestDur.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}
	}()

	var lastErr error
	sawNotFound := false

	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 {
			if c.metrics != nil {
				c.metrics.APIRetriesTotal.Inc()
			}
			// 2^(attempt-1) × base: 2s, 4s, 8s... for the 1s default.
			backoff := c.backoffBase * (1 << uint(attempt-1))
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}

		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, err
		}
		if c.metrics != nil {
			c.metrics.RateLimitWaitDur.Observe(time.Since(waitStart).Seconds())
		}

		out, retriable, notFound, err := attempt1[T](ctx, c, method, path, body, opts.Timeout)
		if err == nil {
			c.countRequest(endpoint, "ok")
			return out, nil
		}
		lastErr = err
		sawNotFound = sawNotFound || notFound
		if !retriable {
			c.countRequest(endpoint, "error")
			return zero, err
		}
		slog.Warn("broker request failed, retrying",
			"endpoint", endpoint, "attempt", attempt, "of", retries, "err", err)
	}

	c.countRequest(endpoint, "retry_exhausted")
	if sawNotFound {
		// The upstream surfaces resource-not-found for throttled paths;
		// callers branch on 429 for the retry-later UX.
		return zero, &APIError{StatusCode: http.StatusTooManyRequests, Message: "Rate limit exceeded. Please try again in a moment."}
	}
	return zero, fmt.Errorf("broker: %s: retries exhausted: %w", endpoint, lastErr)
}

// attempt1 runs a single HTTP attempt and classifies the outcome:
// 401 and other client errors fail immediately, 404/429/5xx and transport
// errors are retriable.
func attempt1[T any](ctx context.Context, c *Client, method, path string, body any, timeout time.Duration) (out T, retriable, notFound bool, err error) {
	var reader io.Reader
	if body != nil {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return out, false, false, fmt.Errorf("broker: encode request: %w", merr)
		}
		reader = bytes.NewReader(payload)
	}

	if timeout <= 0 {
		timeout = c.httpClient.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.apiURL+path, reader)
	if err != nil {
		return out, false, false, fmt.Errorf("broker: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport failures are transient by assumption.
		return out, true, false, fmt.Errorf("broker: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := readErrorMessage(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg}
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return out, false, false, apiErr
		case resp.StatusCode == http.StatusNotFound:
			return out, true, true, apiErr
		case resp.StatusCode == http.StatusTooManyRequests:
			return out, true, false, apiErr
		case resp.StatusCode >= 500:
			return out, true, false, apiErr
		default:
			return out, false, false, apiErr
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, false, false, fmt.Errorf("broker: decode %s: %w", path, err)
	}
	return out, false, false, nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "no error body"
	}
	var payload struct {
		ErrorMessage string `json:"errorMessage"`
		Message      string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.ErrorMessage != "" {
			return payload.ErrorMessage
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

func (c *Client) countRequest(endpoint, outcome string) {
	if c.metrics != nil {
		c.metrics.APIRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	}
}

// GetAccount returns the account summary.
func (c *Client) GetAccount(ctx context.Context) (model.Account, error) {
	path := "/v3/accounts/" + c.accountID
	resp, err := request[model.AccountResponse](ctx, c, "account", http.MethodGet, path, nil,
		RequestOptions{Cache: true, CacheTTL: TTLAccount})
	if err != nil {
		return model.Account{}, err
	}
	return resp.Account, nil
}

// GetInstruments returns the tradeable instrument catalog.
func (c *Client) GetInstruments(ctx context.Context) ([]model.Instrument, error) {
	path := "/v3/accounts/" + c.accountID + "/instruments"
	resp, err := request[model.InstrumentsResponse](ctx, c, "instruments", http.MethodGet, path, nil,
		RequestOptions{Cache: true, CacheTTL: TTLInstruments})
	if err != nil {
		return nil, err
	}
	return resp.Instruments, nil
}

// GetPricing returns current pricing for the given instruments.
func (c *Client) GetPricing(ctx context.Context, instruments []string) ([]model.Price, error) {
	q := url.Values{"instruments": {strings.Join(instruments, ",")}}
	path := "/v3/accounts/" + c.accountID + "/pricing?" + q.Encode()
	resp, err := request[model.PricingResponse](ctx, c, "pricing", http.MethodGet, path, nil,
		RequestOptions{Cache: true, CacheTTL: TTLPricing})
	if err != nil {
		return nil, err
	}
	return resp.Prices, nil
}

// GetCandles returns validated mid-price candles for one instrument.
func (c *Client) GetCandles(ctx context.Context, instrument, granularity string, count int) ([]model.OHLC, error) {
	if count <= 0 {
		count = 100
	}
	q := url.Values{
		"granularity": {granularity},
		"count":       {strconv.Itoa(count)},
		"price":       {"M"},
	}
	path := "/v3/instruments/" + instrument + "/candles?" + q.Encode()
	resp, err := request[model.CandlesResponse](ctx, c, "candles", http.MethodGet, path, nil,
		RequestOptions{Cache: true, CacheTTL: TTLCandles})
	if err != nil {
		return nil, err
	}
	return resp.Parse()
}

// GetPositions returns the account's open positions.
func (c *Client) GetPositions(ctx context.Context) ([]model.Position, error) {
	path := "/v3/accounts/" + c.accountID + "/openPositions"
	resp, err := request[model.PositionsResponse](ctx, c, "positions", http.MethodGet, path, nil,
		RequestOptions{Cache: true, CacheTTL: TTLPositions})
	if err != nil {
		return nil, err
	}
	return resp.Positions, nil
}

// GetTrades returns the account's open trades.
func (c *Client) GetTrades(ctx context.Context) ([]model.Trade, error) {
	path := "/v3/accounts/" + c.accountID + "/openTrades"
	resp, err := request[model.TradesResponse](ctx, c, "trades", http.MethodGet, path, nil,
		RequestOptions{Cache: true, CacheTTL: TTLTrades})
	if err != nil {
		return nil, err
	}
	return resp.Trades, nil
}

// orderPayload is the wire shape for a market order.
type orderPayload struct {
	Order struct {
		Units            string        `json:"units"`
		Instrument       string        `json:"instrument"`
		TimeInForce      string        `json:"timeInForce"`
		Type             string        `json:"type"`
		PositionFill     string        `json:"positionFill"`
		TakeProfitOnFill *onFillPrice  `json:"takeProfitOnFill,omitempty"`
		StopLossOnFill   *onFillPrice  `json:"stopLossOnFill,omitempty"`
	} `json:"order"`
}

type onFillPrice struct {
	Price string `json:"price"`
}

// PlaceOrder submits a market order. TakeProfit/StopLoss pip distances are
// converted to absolute prices off the current mid, direction-aware. Never
// cached; position/trade caches are invalidated on success.
func (c *Client) PlaceOrder(ctx context.Context, order model.OrderRequest) (model.OrderResponse, error) {
	if order.Instrument == "" || order.Units == 0 {
		return model.OrderResponse{}, fmt.Errorf("broker: order needs instrument and non-zero units")
	}
	orderType := order.Type
	if orderType == "" {
		orderType = "MARKET"
	}

	var payload orderPayload
	payload.Order.Units = strconv.FormatFloat(order.Units, 'f', 0, 64)
	payload.Order.Instrument = order.Instrument
	payload.Order.TimeInForce = "FOK"
	payload.Order.Type = orderType
	payload.Order.PositionFill = "DEFAULT"

	if order.TakeProfit > 0 || order.StopLoss > 0 {
		mid, err := c.currentMid(ctx, order.Instrument)
		if err != nil {
			return model.OrderResponse{}, fmt.Errorf("broker: price for tp/sl: %w", err)
		}
		pip := model.PipSize(order.Instrument)
		long := order.Units > 0

		if order.TakeProfit > 0 {
			price := mid + order.TakeProfit*pip
			if !long {
				price = mid - order.TakeProfit*pip
			}
			payload.Order.TakeProfitOnFill = &onFillPrice{Price: formatPrice(price, pip)}
		}
		if order.StopLoss > 0 {
			price := mid - order.StopLoss*pip
			if !long {
				price = mid + order.StopLoss*pip
			}
			payload.Order.StopLossOnFill = &onFillPrice{Price: formatPrice(price, pip)}
		}
	}

	path := "/v3/accounts/" + c.accountID + "/orders"
	resp, err := request[model.OrderResponse](ctx, c, "orders", http.MethodPost, path, payload, RequestOptions{})
	if err != nil {
		return model.OrderResponse{}, err
	}
	if c.cache != nil {
		c.cache.InvalidatePrefix("GET /v3/accounts/" + c.accountID + "/openPositions")
		c.cache.InvalidatePrefix("GET /v3/accounts/" + c.accountID + "/openTrades")
	}
	return resp, nil
}

func (c *Client) currentMid(ctx context.Context, instrument string) (float64, error) {
	prices, err := c.GetPricing(ctx, []string{instrument})
	if err != nil {
		return 0, err
	}
	for i := range prices {
		if prices[i].Instrument == instrument {
			return prices[i].Mid()
		}
	}
	return 0, fmt.Errorf("broker: no pricing returned for %s", instrument)
}

// formatPrice renders an absolute price with the venue's precision: 3
// decimals for JPY-quoted pairs, 5 otherwise.
func formatPrice(price, pip float64) string {
	if pip == 0.01 {
		return strconv.FormatFloat(price, 'f', 3, 64)
	}
	return strconv.FormatFloat(price, 'f', 5, 64)
}
