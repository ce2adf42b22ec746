package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway carries public market data only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is a single WebSocket peer. An empty channel filter means the
// client receives every channel.
type Client struct {
	conn *websocket.Conn
	hub  *Hub
	send chan []byte

	filterMu sync.RWMutex
	channels map[string]bool
}

// clientCommand is the only inbound message type: channel subscription.
type clientCommand struct {
	Action   string   `json:"action"` // "subscribe" | "unsubscribe"
	Channels []string `json:"channels"`
}

func (c *Client) wants(channel string) bool {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()
	if len(c.channels) == 0 {
		return true
	}
	if c.channels[channel] {
		return true
	}
	// "ticks:*" style prefix subscriptions
	for sub := range c.channels {
		if strings.HasSuffix(sub, "*") && strings.HasPrefix(channel, strings.TrimSuffix(sub, "*")) {
			return true
		}
	}
	return false
}

func (c *Client) handleCommand(raw []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		log.Printf("[gateway] bad client command: %v", err)
		return
	}
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	switch cmd.Action {
	case "subscribe":
		if c.channels == nil {
			c.channels = make(map[string]bool)
		}
		for _, ch := range cmd.Channels {
			c.channels[ch] = true
		}
	case "unsubscribe":
		for _, ch := range cmd.Channels {
			delete(c.channels, ch)
		}
	}
}

// readPump consumes inbound messages until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[gateway] read: %v", err)
			}
			return
		}
		c.handleCommand(raw)
	}
}

// writePump drains the send buffer and keeps the connection alive with
// periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades an HTTP request and attaches the peer to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade: %v", err)
		return
	}
	c := &Client{
		conn: conn,
		hub:  h,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	go c.writePump()
	go c.readPump()
}
