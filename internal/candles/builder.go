// Package candles resamples live price ticks into fixed-duration OHLC
// candles. The builder keeps one forming candle per (instrument, duration)
// pair and updates it in O(1) per tick. When a tick lands in a new bucket,
// the previous candle is finalized and emitted.
package candles

import (
	"context"
	"log"
	"time"

	"fxengine/internal/model"
)

// Candle is a finalized or forming bucket for one instrument.
type Candle struct {
	Instrument string        `json:"instrument"`
	Duration   time.Duration `json:"duration"`
	model.OHLC
}

type state struct {
	bucket  int64 // bucket start in Unix seconds
	candle  Candle
	started bool
}

// Builder resamples ticks into one or more candle durations. Designed for a
// single consuming goroutine.
type Builder struct {
	durations []time.Duration

	// states[durIdx][instrument] → forming candle
	states []map[string]*state

	// Ticks older than bucket start minus tolerance are rejected.
	// Zero disables the check.
	StaleTolerance time.Duration

	// OnStaleTick is called when a late tick is rejected (optional).
	OnStaleTick func()
}

func New(durations []time.Duration) *Builder {
	states := make([]map[string]*state, len(durations))
	for i := range states {
		states[i] = make(map[string]*state, 8)
	}
	return &Builder{
		durations:      durations,
		states:         states,
		StaleTolerance: 2 * time.Second,
	}
}

// Run consumes ticks and sends finalized candles to out. Blocks until ctx
// is cancelled or the tick channel closes; forming candles are flushed as
// incomplete on shutdown.
func (b *Builder) Run(ctx context.Context, ticks <-chan model.PriceTick, out chan<- Candle) {
	for {
		select {
		case <-ctx.Done():
			b.flushAll(out)
			return
		case t, ok := <-ticks:
			if !ok {
				b.flushAll(out)
				return
			}
			b.Process(t, out)
		}
	}
}

// Process folds one tick into every enabled duration.
func (b *Builder) Process(t model.PriceTick, out chan<- Candle) {
	mid := t.Mid()
	ts := t.Time.Unix()

	for i, d := range b.durations {
		sec := int64(d / time.Second)
		if sec <= 0 {
			continue
		}
		bucket := ts - ts%sec

		st, ok := b.states[i][t.Instrument]
		if !ok {
			st = &state{}
			b.states[i][t.Instrument] = st
		}

		if st.started && bucket < st.bucket {
			if b.StaleTolerance > 0 && time.Unix(st.bucket, 0).Sub(t.Time) > b.StaleTolerance {
				if b.OnStaleTick != nil {
					b.OnStaleTick()
				} else {
					log.Printf("[candles] dropping stale %s tick at %s", t.Instrument, t.Time)
				}
				continue
			}
			// Late but within tolerance: fold into the forming candle.
			bucket = st.bucket
		}

		if st.started && bucket > st.bucket {
			st.candle.Complete = true
			emit(out, st.candle)
			st.started = false
		}

		if !st.started {
			st.bucket = bucket
			st.started = true
			st.candle = Candle{
				Instrument: t.Instrument,
				Duration:   d,
				OHLC: model.OHLC{
					Time: time.Unix(bucket, 0).UTC(),
					Open: mid, High: mid, Low: mid, Close: mid,
					Volume: 1,
				},
			}
			continue
		}

		if mid > st.candle.High {
			st.candle.High = mid
		}
		if mid < st.candle.Low {
			st.candle.Low = mid
		}
		st.candle.Close = mid
		st.candle.Volume++
	}
}

// flushAll emits every forming candle as incomplete.
func (b *Builder) flushAll(out chan<- Candle) {
	for i := range b.states {
		for _, st := range b.states[i] {
			if st.started {
				st.candle.Complete = false
				emit(out, st.candle)
				st.started = false
			}
		}
	}
}

func emit(out chan<- Candle, c Candle) {
	select {
	case out <- c:
	default:
		log.Printf("[candles] output channel full, dropping %s %s candle", c.Instrument, c.Duration)
	}
}
