package markethours

import (
	"testing"
	"time"
)

func at(wd time.Weekday, hour int) time.Time {
	// 2026-08-23 is a Sunday.
	base := time.Date(2026, 8, 23, hour, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, (int(wd)-int(time.Sunday)+7)%7)
}

func TestIsMarketOpen(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"wednesday midday", at(time.Wednesday, 12), true},
		{"monday midnight", at(time.Monday, 0), true},
		{"friday before close", at(time.Friday, 21), true},
		{"friday at close", at(time.Friday, 22), false},
		{"saturday", at(time.Saturday, 12), false},
		{"sunday before open", at(time.Sunday, 21), false},
		{"sunday at open", at(time.Sunday, 22), true},
	}
	for _, tc := range cases {
		if got := IsMarketOpen(tc.t); got != tc.want {
			t.Errorf("%s: IsMarketOpen=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNextOpen_FromWeekend(t *testing.T) {
	// Saturday noon: next open is Sunday 22:00, 34h later.
	sat := at(time.Saturday, 12)
	open := NextOpen(sat)
	if open.Weekday() != time.Sunday || open.Hour() != 22 {
		t.Fatalf("next open: %v", open)
	}
	if d := open.Sub(sat); d != 34*time.Hour {
		t.Errorf("time until open: %v, want 34h", d)
	}
}

func TestNextOpen_WhileOpen(t *testing.T) {
	now := at(time.Tuesday, 9)
	if got := NextOpen(now); !got.Equal(now) {
		t.Errorf("NextOpen while open: %v, want now", got)
	}
	if TimeUntilOpen(now) != 0 {
		t.Error("TimeUntilOpen while open should be 0")
	}
}

func TestTimeUntilClose(t *testing.T) {
	// Friday 20:00: closes in 2h.
	fri := at(time.Friday, 20)
	if d := TimeUntilClose(fri); d != 2*time.Hour {
		t.Errorf("until close: %v, want 2h", d)
	}
	// Closed market: zero.
	if d := TimeUntilClose(at(time.Saturday, 3)); d != 0 {
		t.Errorf("until close on saturday: %v, want 0", d)
	}
}

func TestNextClose_SkipsToNextWeekAfterFridayClose(t *testing.T) {
	fri := at(time.Friday, 23)
	close := NextClose(fri)
	if close.Weekday() != time.Friday || close.Hour() != 22 {
		t.Fatalf("next close: %v", close)
	}
	if !close.After(fri.Add(6 * 24 * time.Hour)) {
		t.Errorf("next close should be next week's friday, got %v", close)
	}
}
