package dispatch

import (
	"testing"
	"time"

	"github.com/deskline/deskline-dispatch/internal/clock"
)

func TestWindowContains(t *testing.T) {
	w := NewWindow(9, 0, 17, 0, time.UTC)
	cases := []struct {
		hour, min int
		want      bool
	}{
		{8, 59, false},
		{9, 0, true},
		{12, 30, true},
		{17, 0, true},
		{17, 1, false},
	}
	for _, tc := range cases {
		ts := time.Date(2026, 3, 2, tc.hour, tc.min, 0, 0, time.UTC)
		if got := w.Contains(ts); got != tc.want {
			t.Errorf("%02d:%02d: got %v, want %v", tc.hour, tc.min, got, tc.want)
		}
	}
}

func TestWindowWrapsPastMidnight(t *testing.T) {
	// Team C runs 15:55-24:05.
	w := NewWindow(15, 55, 24, 5, time.UTC)
	if !w.Contains(time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)) {
		t.Error("23:30 is inside the window")
	}
	if !w.Contains(time.Date(2026, 3, 3, 0, 4, 0, 0, time.UTC)) {
		t.Error("00:04 the next day is inside the window")
	}
	// The end minute is inclusive, matching the non-wrapped case.
	if !w.Contains(time.Date(2026, 3, 3, 0, 5, 0, 0, time.UTC)) {
		t.Error("00:05 is the inclusive window end")
	}
	if w.Contains(time.Date(2026, 3, 3, 0, 6, 0, 0, time.UTC)) {
		t.Error("00:06 is past the window")
	}
	if w.Contains(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)) {
		t.Error("15:00 is before the window")
	}
}

func TestWindowRemaining(t *testing.T) {
	w := NewWindow(9, 0, 17, 0, time.UTC)
	got := w.Remaining(time.Date(2026, 3, 2, 16, 30, 0, 0, time.UTC))
	if got != 30*time.Minute {
		t.Errorf("remaining: got %v, want 30m", got)
	}
	if w.Remaining(time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)) != 0 {
		t.Error("outside the window remaining is zero")
	}

	wrap := NewWindow(15, 55, 24, 5, time.UTC)
	got = wrap.Remaining(time.Date(2026, 3, 3, 0, 1, 0, 0, time.UTC))
	if got != 4*time.Minute {
		t.Errorf("remaining past midnight: got %v, want 4m", got)
	}
}

func TestIsOfficeHours(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		// 15:00 UTC on a March Monday is 10:00 Eastern.
		{"monday morning eastern", time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), true},
		// 03:00 UTC Tuesday is 22:00 Eastern Monday.
		{"late evening eastern", time.Date(2026, 3, 3, 3, 0, 0, 0, time.UTC), false},
		// Saturday noon eastern.
		{"saturday", time.Date(2026, 3, 7, 17, 0, 0, 0, time.UTC), false},
		// Sunday evening UTC Monday morning check.
		{"sunday", time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		clk := clock.NewFake(tc.at)
		b := NewBusinessHours(clk)
		if got := b.IsOfficeHours(); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsBusinessDayIgnoresClockTime(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC))
	b := NewBusinessHours(clk)
	if !b.IsBusinessDay(time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)) {
		t.Error("Monday 23:59 UTC (18:59 Eastern) is a business day")
	}
	if b.IsBusinessDay(time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)) {
		t.Error("Saturday is not a business day")
	}
}
