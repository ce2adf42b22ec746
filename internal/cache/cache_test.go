package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGet_CachesWithinTTL(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls int32

	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "payload", nil
	}

	for i := 0; i < 5; i++ {
		v, err := c.Get(ctx, "k", time.Minute, fetch)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if v != "payload" {
			t.Fatalf("Get: got %v", v)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch calls: got %d, want 1", n)
	}

	s := c.Stats()
	if s.Hits != 4 || s.Misses != 1 {
		t.Errorf("stats: hits=%d misses=%d, want 4/1", s.Hits, s.Misses)
	}
}

func TestGet_ExpiryRefetches(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls int32

	fetch := func(context.Context) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	if _, err := c.Get(ctx, "k", 10*time.Millisecond, fetch); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	v, err := c.Get(ctx, "k", time.Minute, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if v != int32(2) {
		t.Errorf("after expiry: got %v, want 2", v)
	}
}

func TestGet_ConcurrentCallersShareOneFetch(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls int32
	release := make(chan struct{})

	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]any, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(ctx, "shared", time.Minute, fetch)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch calls: got %d, want 1", n)
	}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i] != 42 {
			t.Errorf("worker %d: got %v", i, results[i])
		}
	}
}

func TestGet_FailureNeverCached(t *testing.T) {
	c := New()
	ctx := context.Background()
	boom := errors.New("upstream down")
	var calls int32

	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Get(ctx, "k", time.Minute, fetch); !errors.Is(err, boom) {
			t.Fatalf("Get: err=%v, want %v", err, boom)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("fetch calls after failures: got %d, want 3", n)
	}
	if s := c.Stats(); s.Entries != 0 || s.Pending != 0 {
		t.Errorf("stats after failures: %+v, want no entries, no pending", s)
	}
}

func TestGet_WaiterHonorsContext(t *testing.T) {
	c := New()
	release := make(chan struct{})
	defer close(release)

	go c.Get(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
		<-release
		return 1, nil
	})
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, "k", time.Minute, func(context.Context) (any, error) {
		t.Error("second fetch must not run while one is pending")
		return nil, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("waiter err: %v, want deadline exceeded", err)
	}
}

func TestInvalidateAndClear(t *testing.T) {
	c := New()
	ctx := context.Background()
	fetch := func(context.Context) (any, error) { return 1, nil }

	c.Get(ctx, "a:1", time.Minute, fetch)
	c.Get(ctx, "a:2", time.Minute, fetch)
	c.Get(ctx, "b:1", time.Minute, fetch)

	c.Invalidate("a:1")
	if s := c.Stats(); s.Entries != 2 {
		t.Errorf("after Invalidate: %d entries, want 2", s.Entries)
	}

	c.InvalidatePrefix("a:")
	if s := c.Stats(); s.Entries != 1 {
		t.Errorf("after InvalidatePrefix: %d entries, want 1", s.Entries)
	}

	c.Clear()
	if s := c.Stats(); s.Entries != 0 {
		t.Errorf("after Clear: %d entries, want 0", s.Entries)
	}
}

func TestCleanup_RemovesOnlyExpired(t *testing.T) {
	c := New()
	ctx := context.Background()
	fetch := func(context.Context) (any, error) { return 1, nil }

	c.Get(ctx, "short", 5*time.Millisecond, fetch)
	c.Get(ctx, "long", time.Minute, fetch)
	time.Sleep(10 * time.Millisecond)

	if removed := c.Cleanup(); removed != 1 {
		t.Errorf("Cleanup removed %d, want 1", removed)
	}
	if s := c.Stats(); s.Entries != 1 {
		t.Errorf("entries after cleanup: %d, want 1", s.Entries)
	}
}

func TestGetTyped(t *testing.T) {
	c := New()
	ctx := context.Background()

	v, err := GetTyped(ctx, c, "k", time.Minute, func(context.Context) (string, error) {
		return "typed", nil
	})
	if err != nil || v != "typed" {
		t.Fatalf("GetTyped: %q, %v", v, err)
	}

	// Same key, different type: surfaced as an error, not a panic.
	if _, err := GetTyped(ctx, c, "k", time.Minute, func(context.Context) (int, error) {
		return 0, nil
	}); err == nil {
		t.Error("type mismatch: want error")
	}
}
