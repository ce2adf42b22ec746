package signal

import (
	"sync"
	"time"

	"fxengine/internal/model"
)

// Book keeps the most recent signals, newest first, bounded to capacity,
// with a per-calendar-day accept cap. Safe for concurrent use.
type Book struct {
	mu        sync.Mutex
	signals   []model.Signal
	capacity  int
	maxPerDay int
	byDay     map[string]int // UTC date -> accepted count
}

// NewBook returns a book holding at most capacity signals (default 100)
// and accepting at most maxPerDay per UTC day (default 10).
func NewBook(capacity, maxPerDay int) *Book {
	if capacity <= 0 {
		capacity = 100
	}
	if maxPerDay <= 0 {
		maxPerDay = 10
	}
	return &Book{
		capacity:  capacity,
		maxPerDay: maxPerDay,
		byDay:     make(map[string]int),
	}
}

// Add accepts the signal unless the day's cap is reached. The oldest signal
// falls off when the book is full.
func (b *Book) Add(sig model.Signal) bool {
	day := sig.Time.UTC().Format("2006-01-02")

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.byDay[day] >= b.maxPerDay {
		return false
	}
	b.byDay[day]++

	b.signals = append([]model.Signal{sig}, b.signals...)
	if len(b.signals) > b.capacity {
		b.signals = b.signals[:b.capacity]
	}
	return true
}

// ExpireStale flips active signals past their expiry to expired and
// returns how many changed.
func (b *Book) ExpireStale(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	changed := 0
	for i := range b.signals {
		if b.signals[i].Status == model.SignalActive && now.After(b.signals[i].ExpiresAt()) {
			b.signals[i].Status = model.SignalExpired
			changed++
		}
	}
	return changed
}

// UpdateStatus sets the status of the signal with the given ID.
func (b *Book) UpdateStatus(id string, status model.SignalStatus) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.signals {
		if b.signals[i].ID == id {
			b.signals[i].Status = status
			return true
		}
	}
	return false
}

// Active returns the signals still actionable at now, after expiring stale
// ones.
func (b *Book) Active(now time.Time) []model.Signal {
	b.ExpireStale(now)

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.Signal, 0, len(b.signals))
	for _, s := range b.signals {
		if s.Status == model.SignalActive {
			out = append(out, s)
		}
	}
	return out
}

// All returns a copy of the book, newest first.
func (b *Book) All() []model.Signal {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.Signal, len(b.signals))
	copy(out, b.signals)
	return out
}

// Stats summarizes the book.
type Stats struct {
	Total     int     `json:"total"`
	Active    int     `json:"active"`
	Triggered int     `json:"triggered"`
	Expired   int     `json:"expired"`
	AvgConf   float64 `json:"avgConfidence"`
}

func (b *Book) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	var s Stats
	s.Total = len(b.signals)
	var confSum float64
	for _, sig := range b.signals {
		confSum += sig.Confidence
		switch sig.Status {
		case model.SignalActive:
			s.Active++
		case model.SignalTriggered:
			s.Triggered++
		case model.SignalExpired:
			s.Expired++
		}
	}
	if s.Total > 0 {
		s.AvgConf = confSum / float64(s.Total)
	}
	return s
}
