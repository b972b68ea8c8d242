package dispatch

import (
	"fmt"
	"log"
	"time"

	"github.com/deskline/deskline-dispatch/internal/clock"
)

// Window is a daily time window expressed in minutes since midnight in a
// given location. End may exceed 24*60 for windows that run past
// midnight (e.g. 15:55-24:05).
type Window struct {
	Start int // minutes since midnight, 0..1439
	End   int // minutes since midnight, may exceed 1440
	Loc   *time.Location
}

// NewWindow builds a window from clock hours and minutes.
func NewWindow(startHour, startMin, endHour, endMin int, loc *time.Location) Window {
	return Window{
		Start: startHour*60 + startMin,
		End:   endHour*60 + endMin,
		Loc:   loc,
	}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	m := w.minutesOf(t)
	if w.End > 24*60 {
		// Window wraps past midnight: 15:55-24:05 covers m >= 955 and,
		// like the non-wrapped case, the end minute is inclusive.
		return m >= w.Start || m <= w.End-24*60
	}
	return m >= w.Start && m <= w.End
}

// Remaining returns the time left until the window closes, or zero when t
// is outside it.
func (w Window) Remaining(t time.Time) time.Duration {
	m := w.minutesOf(t)
	switch {
	case w.End > 24*60 && m <= w.End-24*60:
		return time.Duration(w.End-24*60-m) * time.Minute
	case m >= w.Start && m <= w.End:
		return time.Duration(w.End-m) * time.Minute
	case w.End > 24*60 && m >= w.Start:
		return time.Duration(w.End-m) * time.Minute
	default:
		return 0
	}
}

func (w Window) minutesOf(t time.Time) int {
	if w.Loc != nil {
		t = t.In(w.Loc)
	}
	return t.Hour()*60 + t.Minute()
}

func (w Window) String() string {
	tz := "UTC"
	if w.Loc != nil {
		tz = w.Loc.String()
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d %s", w.Start/60, w.Start%60, w.End/60, w.End%60, tz)
}

// BusinessHours answers whether it is currently office hours: Monday to
// Friday, 09:00-17:00 US-Eastern. When the Eastern zone cannot be
// resolved it approximates with 14:00-22:00 UTC.
type BusinessHours struct {
	clock  clock.Clock
	window Window
}

// NewBusinessHours resolves the Eastern zone once at construction.
func NewBusinessHours(clk clock.Clock) *BusinessHours {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Printf("[WARN] BusinessHours: America/New_York unavailable (%v), approximating with 14:00-22:00 UTC", err)
		return &BusinessHours{clock: clk, window: NewWindow(14, 0, 22, 0, time.UTC)}
	}
	return &BusinessHours{clock: clk, window: NewWindow(9, 0, 17, 0, loc)}
}

// IsOfficeHours reports whether the current instant is a weekday inside
// the office window.
func (b *BusinessHours) IsOfficeHours() bool {
	now := b.clock.Now()
	return b.IsBusinessDay(now) && b.window.Contains(now)
}

// IsBusinessDay checks only the weekday, ignoring clock time.
func (b *BusinessHours) IsBusinessDay(t time.Time) bool {
	if b.window.Loc != nil {
		t = t.In(b.window.Loc)
	}
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Location exposes the resolved zone (used by the shift refresher for the
// overflow team's window).
func (b *BusinessHours) Location() *time.Location {
	if b.window.Loc != nil {
		return b.window.Loc
	}
	return time.UTC
}
