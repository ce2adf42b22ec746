// Package gateway exposes live prices, signals and analysis snapshots to
// WebSocket clients. Every message is a JSON envelope with a channel name,
// a payload, a timestamp and a monotonic sequence number so clients can
// detect gaps.
package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"fxengine/internal/model"
)

// Envelope is the wire format for every gateway message.
type Envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	TS      string          `json:"ts"`
	Seq     int64           `json:"seq"`
	Initial bool            `json:"initial,omitempty"`
}

type latestEntry struct {
	data json.RawMessage
	ts   time.Time
	seq  int64
}

// Hub fans envelopes out to all connected clients. A slow client's send
// buffer filling up drops messages for that client only.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	// OnDrop is called when a message is dropped for a slow client.
	OnDrop func()
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[gateway] client connected (%d active)", n)
	h.sendInitialState(c)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[gateway] client disconnected (%d active)", n)
}

// sendInitialState replays the latest entry of every channel to a freshly
// connected client so it does not start from a blank screen.
func (h *Hub) sendInitialState(c *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for channel, entry := range h.latest {
		envelope, _ := json.Marshal(Envelope{
			Channel: channel,
			Data:    entry.data,
			TS:      entry.ts.Format(time.RFC3339Nano),
			Seq:     entry.seq,
			Initial: true,
		})
		select {
		case c.send <- envelope:
		default:
		}
	}
}

// Broadcast wraps data in an envelope and sends it to every client.
func (h *Hub) Broadcast(channel string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("[gateway] marshal %s payload: %v", channel, err)
		return
	}

	now := time.Now().UTC()

	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.latest[channel] = latestEntry{data: raw, ts: now, seq: seq}
	envelope, _ := json.Marshal(Envelope{
		Channel: channel,
		Data:    raw,
		TS:      now.Format(time.RFC3339Nano),
		Seq:     seq,
	})
	for c := range h.clients {
		if !c.wants(channel) {
			continue
		}
		select {
		case c.send <- envelope:
		default:
			if h.OnDrop != nil {
				h.OnDrop()
			}
		}
	}
	h.mu.Unlock()
}

// BroadcastTick publishes a price tick on "ticks:{instrument}".
func (h *Hub) BroadcastTick(tick model.PriceTick) {
	h.Broadcast("ticks:"+tick.Instrument, tick)
}

// BroadcastSignal publishes a surfaced signal on "signals:{instrument}".
func (h *Hub) BroadcastSignal(sig model.Signal) {
	h.Broadcast("signals:"+sig.Instrument, sig)
}

// BroadcastAnalysis publishes an analysis snapshot on "analysis:{instrument}".
func (h *Hub) BroadcastAnalysis(instrument string, snapshot any) {
	h.Broadcast("analysis:"+instrument, snapshot)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
