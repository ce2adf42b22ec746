package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fxengine/internal/model"
)

func TestWebhookNotifier_PostsSignal(t *testing.T) {
	var received struct {
		Event  string       `json:"event"`
		Signal model.Signal `json:"signal"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	sig := model.Signal{
		ID:         "abc",
		Instrument: "EUR_USD",
		Type:       model.SignalBuy,
		Confidence: 88,
		Price:      1.1005,
		Time:       time.Now().UTC(),
		Status:     model.SignalActive,
	}
	if err := NewWebhookNotifier(srv.URL).NotifySignal(context.Background(), sig); err != nil {
		t.Fatalf("NotifySignal: %v", err)
	}
	if received.Event != "signal" || received.Signal.ID != "abc" || received.Signal.Type != model.SignalBuy {
		t.Errorf("received payload: %+v", received)
	}
}

func TestWebhookNotifier_ErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).NotifySignal(context.Background(), model.Signal{ID: "x"})
	if err == nil {
		t.Fatal("want error on 502")
	}
}

func TestMulti_AttemptsAllReturnsFirstError(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer bad.Close()

	var goodCalls int
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		goodCalls++
	}))
	defer good.Close()

	m := Multi{NewWebhookNotifier(bad.URL), NewWebhookNotifier(good.URL)}
	if err := m.NotifySignal(context.Background(), model.Signal{ID: "y"}); err == nil {
		t.Fatal("want first notifier's error")
	}
	if goodCalls != 1 {
		t.Errorf("second notifier calls: %d, want 1", goodCalls)
	}
}
