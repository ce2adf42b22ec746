package candles

import (
	"context"
	"testing"
	"time"

	"fxengine/internal/model"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func tick(instrument string, offset time.Duration, mid float64) model.PriceTick {
	// Spread of 2 tenths of a pip around the mid.
	return model.PriceTick{
		Instrument: instrument,
		Bid:        mid - 0.0001,
		Ask:        mid + 0.0001,
		Time:       t0.Add(offset),
	}
}

func collect(out chan Candle) []Candle {
	var got []Candle
	for {
		select {
		case c := <-out:
			got = append(got, c)
		default:
			return got
		}
	}
}

func TestBuilder_FinalizesOnBucketRoll(t *testing.T) {
	b := New([]time.Duration{time.Minute})
	out := make(chan Candle, 16)

	b.Process(tick("EUR_USD", 0, 1.1000), out)
	b.Process(tick("EUR_USD", 10*time.Second, 1.1010), out)
	b.Process(tick("EUR_USD", 20*time.Second, 1.0995), out)
	b.Process(tick("EUR_USD", 50*time.Second, 1.1005), out)
	if got := collect(out); len(got) != 0 {
		t.Fatalf("emitted %d candles before bucket roll", len(got))
	}

	// First tick of the next minute finalizes the bucket.
	b.Process(tick("EUR_USD", 61*time.Second, 1.1007), out)
	got := collect(out)
	if len(got) != 1 {
		t.Fatalf("candles emitted: %d, want 1", len(got))
	}
	c := got[0]
	if !c.Complete {
		t.Error("finalized candle not marked complete")
	}
	if c.Open != 1.1000 || c.Close != 1.1005 {
		t.Errorf("open/close: %v/%v", c.Open, c.Close)
	}
	if c.High != 1.1010 || c.Low != 1.0995 {
		t.Errorf("high/low: %v/%v", c.High, c.Low)
	}
	if c.Volume != 4 {
		t.Errorf("volume: %v, want 4 ticks", c.Volume)
	}
	if !c.Time.Equal(t0) {
		t.Errorf("bucket start: %s, want %s", c.Time, t0)
	}
	if !c.Valid() {
		t.Error("emitted candle violates OHLC invariant")
	}
}

func TestBuilder_MultipleDurations(t *testing.T) {
	b := New([]time.Duration{time.Minute, 5 * time.Minute})
	out := make(chan Candle, 16)

	for i := 0; i <= 5; i++ {
		b.Process(tick("GBP_USD", time.Duration(i)*time.Minute, 1.25+float64(i)*0.001), out)
	}

	got := collect(out)
	var m1, m5 int
	for _, c := range got {
		switch c.Duration {
		case time.Minute:
			m1++
		case 5 * time.Minute:
			m5++
		}
	}
	if m1 != 5 {
		t.Errorf("1m candles: %d, want 5", m1)
	}
	if m5 != 1 {
		t.Errorf("5m candles: %d, want 1", m5)
	}
}

func TestBuilder_LateTickWithinToleranceFolds(t *testing.T) {
	b := New([]time.Duration{time.Minute})
	out := make(chan Candle, 16)

	b.Process(tick("EUR_USD", 60*time.Second, 1.1000), out)
	// One second into the new bucket, a tick stamped just before it.
	b.Process(tick("EUR_USD", 59*time.Second, 1.0990), out)

	if got := collect(out); len(got) != 0 {
		t.Fatalf("late tick within tolerance finalized a candle")
	}

	// Roll the bucket and check the late tick was folded in.
	b.Process(tick("EUR_USD", 121*time.Second, 1.1001), out)
	got := collect(out)
	if len(got) != 1 {
		t.Fatalf("candles: %d", len(got))
	}
	if got[0].Low != 1.0990 {
		t.Errorf("low: %v, late tick not folded", got[0].Low)
	}
}

func TestBuilder_StaleTickRejected(t *testing.T) {
	b := New([]time.Duration{time.Minute})
	var stale int
	b.OnStaleTick = func() { stale++ }
	out := make(chan Candle, 16)

	b.Process(tick("EUR_USD", 120*time.Second, 1.1000), out)
	b.Process(tick("EUR_USD", 10*time.Second, 1.0900), out) // nearly two minutes late

	if stale != 1 {
		t.Errorf("stale rejections: %d, want 1", stale)
	}
	b.Process(tick("EUR_USD", 181*time.Second, 1.1001), out)
	got := collect(out)
	if len(got) != 1 || got[0].Low == 1.0900 {
		t.Errorf("stale tick leaked into candle: %+v", got)
	}
}

func TestBuilder_FlushesFormingOnClose(t *testing.T) {
	b := New([]time.Duration{time.Minute})
	out := make(chan Candle, 16)
	in := make(chan model.PriceTick, 4)

	in <- tick("USD_JPY", 0, 147.50)
	in <- tick("USD_JPY", 5*time.Second, 147.55)
	close(in)

	b.Run(context.Background(), in, out)

	got := collect(out)
	if len(got) != 1 {
		t.Fatalf("candles: %d, want 1 flushed", len(got))
	}
	if got[0].Complete {
		t.Error("flushed forming candle marked complete")
	}
	if got[0].Close != 147.55 {
		t.Errorf("close: %v", got[0].Close)
	}
}
