// Package markethours gates the engine on the forex trading week. The spot
// market trades continuously from the Sydney open until the New York close:
// Sunday 22:00 UTC through Friday 22:00 UTC.
package markethours

import (
	"fmt"
	"time"
)

const (
	// Weekly close and open, in UTC.
	CloseHourUTC = 22 // Friday
	OpenHourUTC  = 22 // Sunday
)

// IsMarketOpen returns true if t falls within the forex trading week.
func IsMarketOpen(t time.Time) bool {
	u := t.UTC()
	switch u.Weekday() {
	case time.Saturday:
		return false
	case time.Friday:
		return u.Hour() < CloseHourUTC
	case time.Sunday:
		return u.Hour() >= OpenHourUTC
	default:
		return true
	}
}

// NextOpen returns the next weekly open (Sunday 22:00 UTC). If the market
// is already open it returns the current instant.
func NextOpen(t time.Time) time.Time {
	u := t.UTC()
	if IsMarketOpen(u) {
		return u
	}
	daysUntilSunday := (int(time.Sunday) - int(u.Weekday()) + 7) % 7
	open := time.Date(u.Year(), u.Month(), u.Day(), OpenHourUTC, 0, 0, 0, time.UTC).
		AddDate(0, 0, daysUntilSunday)
	if !open.After(u) {
		open = open.AddDate(0, 0, 7)
	}
	return open
}

// NextClose returns the next weekly close (Friday 22:00 UTC) at or after t.
func NextClose(t time.Time) time.Time {
	u := t.UTC()
	daysUntilFriday := (int(time.Friday) - int(u.Weekday()) + 7) % 7
	close := time.Date(u.Year(), u.Month(), u.Day(), CloseHourUTC, 0, 0, 0, time.UTC).
		AddDate(0, 0, daysUntilFriday)
	if !close.After(u) {
		close = close.AddDate(0, 0, 7)
	}
	return close
}

// TimeUntilOpen returns the duration until the next weekly open.
// Zero when the market is open.
func TimeUntilOpen(t time.Time) time.Duration {
	d := NextOpen(t).Sub(t.UTC())
	if d < 0 {
		return 0
	}
	return d
}

// TimeUntilClose returns the duration until the weekly close.
// Zero when the market is closed.
func TimeUntilClose(t time.Time) time.Duration {
	if !IsMarketOpen(t) {
		return 0
	}
	return NextClose(t).Sub(t.UTC())
}

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		return fmt.Sprintf("Market Open — closes in %s", fmtDur(TimeUntilClose(t)))
	}
	next := NextOpen(t)
	return fmt.Sprintf("Market Closed — opens %s %s UTC (%s)",
		next.Weekday().String()[:3], next.Format("15:04"), fmtDur(next.Sub(t.UTC())))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
