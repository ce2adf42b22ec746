// Package api provides the read-only HTTP surface of the engine: current
// signals, open paper positions and market session status. Live data goes
// over the WebSocket gateway; these endpoints serve polling clients and
// debugging.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fxengine/internal/execution"
	"fxengine/internal/markethours"
	"fxengine/internal/portfolio"
	"fxengine/internal/signal"
)

// Deps are the engine components the API reads from. Nil fields disable
// the corresponding endpoints.
type Deps struct {
	Book      *signal.Book
	Portfolio *portfolio.Portfolio
	Paper     *execution.PaperExecutor
}

// NewRouter sets up the HTTP routes.
func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/v1/market", func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		writeJSON(w, map[string]any{
			"open":   markethours.IsMarketOpen(now),
			"status": markethours.StatusString(now),
		})
	})

	if d.Book != nil {
		mux.HandleFunc("/api/v1/signals", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("all") == "true" {
				writeJSON(w, d.Book.All())
				return
			}
			writeJSON(w, d.Book.Active(time.Now().UTC()))
		})
		mux.HandleFunc("/api/v1/signals/stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, d.Book.Stats())
		})
	}

	if d.Portfolio != nil {
		mux.HandleFunc("/api/v1/positions", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"positions":      d.Portfolio.Positions(),
				"unrealized_pnl": d.Portfolio.TotalUnrealizedPnL(),
			})
		})
	}

	if d.Paper != nil {
		mux.HandleFunc("/api/v1/fills", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, d.Paper.Fills())
		})
	}

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode: %v", err)
	}
}
