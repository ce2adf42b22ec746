package broker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fxengine/internal/model"
)

const (
	streamReconnectMin = time.Second
	streamReconnectMax = 30 * time.Second
	// Scanner buffer; pricing lines are small but bursts concatenate.
	streamLineMax = 256 * 1024
)

// StreamPricing opens the broker's newline-delimited pricing stream and
// returns a tick channel. The subscription lives until ctx is cancelled:
// disconnects trigger reconnection with exponential backoff, malformed
// lines are logged and skipped, heartbeats refresh liveness and are not
// delivered. The channel is closed only when ctx ends; a consumer that
// wants a fresh stream opens a new subscription.
func (c *Client) StreamPricing(ctx context.Context, instruments []string) <-chan model.PriceTick {
	ticks := make(chan model.PriceTick, 256)
	go func() {
		defer close(ticks)
		backoff := streamReconnectMin
		for {
			err := c.streamOnce(ctx, instruments, ticks)
			if ctx.Err() != nil {
				return
			}
			if c.metrics != nil {
				c.metrics.StreamReconnects.Inc()
			}
			slog.Warn("pricing stream disconnected, reconnecting",
				"err", err, "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > streamReconnectMax {
				backoff = streamReconnectMax
			}
		}
	}()
	return ticks
}

// streamOnce runs a single stream connection until it fails or ctx ends.
func (c *Client) streamOnce(ctx context.Context, instruments []string, ticks chan<- model.PriceTick) error {
	q := url.Values{"instruments": {strings.Join(instruments, ",")}}
	endpoint := c.streamURL + "/v3/accounts/" + c.accountID + "/pricing/stream?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("broker: build stream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	// No per-request timeout: the connection is long-lived, ctx governs it.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("broker: open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	slog.Info("pricing stream connected", "instruments", strings.Join(instruments, ","))

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), streamLineMax)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		tick, ok, err := model.ParseStreamLine(line)
		if err != nil {
			if c.metrics != nil {
				c.metrics.StreamParseErrors.Inc()
			}
			slog.Warn("skipping malformed stream line", "err", err)
			continue
		}
		if !ok {
			// Heartbeat or non-price message; liveness only.
			continue
		}
		if c.metrics != nil {
			c.metrics.TicksTotal.Inc()
		}
		select {
		case ticks <- tick:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("broker: stream read: %w", err)
	}
	return fmt.Errorf("broker: stream closed by upstream")
}
