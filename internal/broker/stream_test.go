package broker

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStreamPricing_DeliversTicksSkipsNoise(t *testing.T) {
	lines := []string{
		`{"type": "HEARTBEAT", "time": "2026-08-28T10:00:00Z"}`,
		`{"type": "PRICE", "instrument": "EUR_USD", "time": "2026-08-28T10:00:01Z", "bids": [{"price": "1.1000"}], "asks": [{"price": "1.1002"}]}`,
		`this is not json`,
		`{"type": "PRICE", "instrument": "EUR_USD", "time": "2026-08-28T10:00:02Z", "bids": [{"price": "1.1001"}], "asks": [{"price": "1.1003"}]}`,
		`{"type": "PRICE", "instrument": "EUR_USD", "time": "2026-08-28T10:00:03Z", "bids": [], "asks": []}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, line := range lines {
			io.WriteString(w, line+"\n")
			flusher.Flush()
		}
		// Hold the connection open until the client goes away so the
		// stream does not immediately reconnect mid-assertion.
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := testClient(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := c.StreamPricing(ctx, []string{"EUR_USD"})

	var got []float64
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case tick, ok := <-ticks:
			if !ok {
				t.Fatal("tick channel closed early")
			}
			got = append(got, tick.Mid())
		case <-timeout:
			t.Fatalf("timed out, received %d ticks", len(got))
		}
	}

	if got[0] != 1.1001 || got[1] != 1.1002 {
		t.Errorf("mids: %v, want [1.1001 1.1002]", got)
	}

	// Cancellation closes the channel.
	cancel()
	select {
	case _, ok := <-ticks:
		if ok {
			// A buffered tick may still drain; the close must follow.
			for range ticks {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestStreamPricing_ReconnectsAfterDrop(t *testing.T) {
	var conns int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conns++
		flusher := w.(http.Flusher)
		io.WriteString(w, `{"type": "PRICE", "instrument": "GBP_USD", "time": "2026-08-28T10:00:01Z", "bids": [{"price": "1.3400"}], "asks": [{"price": "1.3402"}]}`+"\n")
		flusher.Flush()
		// Return immediately: connection drops, client must reconnect.
	}))
	defer srv.Close()

	c := testClient(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := c.StreamPricing(ctx, []string{"GBP_USD"})

	received := 0
	timeout := time.After(10 * time.Second)
	for received < 2 {
		select {
		case _, ok := <-ticks:
			if !ok {
				t.Fatal("channel closed before reconnect delivered")
			}
			received++
		case <-timeout:
			t.Fatalf("timed out waiting for reconnect, got %d ticks over %d conns", received, conns)
		}
	}
	if conns < 2 {
		t.Errorf("connections: %d, want >= 2", conns)
	}
}

func TestStreamPricing_NonOKStatusRetriesUntilCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessage": "Insufficient authorization"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	ticks := c.StreamPricing(ctx, []string{"EUR_USD"})
	select {
	case _, ok := <-ticks:
		if ok {
			t.Fatal("no ticks expected from a 401 stream")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after ctx timeout")
	}
}
