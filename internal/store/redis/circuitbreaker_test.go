package redis

import (
	"errors"
	"testing"
	"time"
)

var errDown = errors.New("connection refused")

func trip(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.Execute(func() error { return errDown })
	}
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)
	if got := cb.CurrentState(); got != StateClosed {
		t.Errorf("initial state: %v", got)
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)

	trip(cb, 3)
	if got := cb.CurrentState(); got != StateOpen {
		t.Fatalf("state after 3 failures: %v", got)
	}

	// While open, calls are rejected without running fn.
	ran := false
	err := cb.Execute(func() error { ran = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err: %v, want ErrCircuitOpen", err)
	}
	if ran {
		t.Error("fn ran while breaker open")
	}
}

func TestCircuitBreaker_ProbeClosesOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(2, 50*time.Millisecond)
	trip(cb, 2)

	time.Sleep(60 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if got := cb.CurrentState(); got != StateClosed {
		t.Errorf("state after successful probe: %v", got)
	}
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(2, 50*time.Millisecond)
	trip(cb, 2)

	time.Sleep(60 * time.Millisecond)
	trip(cb, 1)

	if got := cb.CurrentState(); got != StateOpen {
		t.Errorf("state after failed probe: %v", got)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)

	trip(cb, 2)
	cb.Execute(func() error { return nil })
	trip(cb, 2)

	if got := cb.CurrentState(); got != StateClosed {
		t.Errorf("state: %v (failure count should have reset)", got)
	}
}

func TestCircuitBreaker_OnStateChangeSequence(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker(1, 50*time.Millisecond)
	cb.OnStateChange = func(from, to State) {
		transitions = append(transitions, to)
	}

	trip(cb, 1)
	time.Sleep(60 * time.Millisecond)
	cb.Execute(func() error { return nil })

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions: %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions: %v, want %v", transitions, want)
		}
	}
}
