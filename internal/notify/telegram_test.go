package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fxengine/internal/model"
)

func TestTelegramNotifier_SendsMarkdownMessage(t *testing.T) {
	var payload struct {
		ChatID    string `json:"chat_id"`
		Text      string `json:"text"`
		ParseMode string `json:"parse_mode"`
	}
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token123", "chat456")
	n.apiBase = srv.URL

	sig := model.Signal{
		Instrument: "EUR_USD",
		Type:       model.SignalBuy,
		Strength:   "strong",
		Confidence: 90,
		Price:      1.1005,
		Reason:     "RSI oversold (28.1)",
	}
	if err := n.NotifySignal(context.Background(), sig); err != nil {
		t.Fatalf("NotifySignal: %v", err)
	}

	if path != "/bottoken123/sendMessage" {
		t.Errorf("path: %s", path)
	}
	if payload.ChatID != "chat456" || payload.ParseMode != "MarkdownV2" {
		t.Errorf("payload: %+v", payload)
	}
	if !strings.Contains(payload.Text, "EUR\\_USD") {
		t.Errorf("instrument not escaped: %q", payload.Text)
	}
	if !strings.Contains(payload.Text, "RSI oversold \\(28\\.1\\)") {
		t.Errorf("reason not escaped: %q", payload.Text)
	}
}

func TestTelegramNotifier_ErrorOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("bad", "chat")
	n.apiBase = srv.URL
	if err := n.NotifySignal(context.Background(), model.Signal{Instrument: "EUR_USD"}); err == nil {
		t.Fatal("want error on 403")
	}
}

func TestEscapeMarkdown(t *testing.T) {
	got := escapeMarkdown("a_b*c(d)e.f-g")
	want := `a\_b\*c\(d\)e\.f\-g`
	if got != want {
		t.Errorf("escape: %q, want %q", got, want)
	}
}
