package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/deskline/deskline-dispatch/internal/clock"
)

func seededStores(t *testing.T, at time.Time) (*AgentStore, *ShiftManager, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(at)
	agents := NewAgentStore()
	hours := NewBusinessHours(clk)
	shifts := NewShiftManager(clk, agents, hours)
	if err := shifts.SeedRoster(context.Background()); err != nil {
		t.Fatalf("seed roster: %v", err)
	}
	return agents, shifts, clk
}

func TestSeedRoster(t *testing.T) {
	agents, _, _ := seededStores(t, time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))

	if got := len(agents.All()); got != 16 {
		t.Fatalf("roster size: got %d, want 16", got)
	}
	counts := map[Team]int{}
	for _, a := range agents.All() {
		counts[a.Team]++
	}
	want := map[Team]int{TeamA: 4, TeamB: 4, TeamC: 2, TeamOverflow: 6}
	for team, n := range want {
		if counts[team] != n {
			t.Errorf("%s: got %d agents, want %d", team, counts[team], n)
		}
	}

	lead, ok := agents.ByID("alice-thompson")
	if !ok {
		t.Fatal("alice-thompson missing from roster")
	}
	if lead.Level != SeniorityTeamLead || lead.MaxConcurrent() != 5 {
		t.Errorf("team lead: level=%s max=%d", lead.Level, lead.MaxConcurrent())
	}
}

func TestShiftStatusByTimeOfDay(t *testing.T) {
	cases := []struct {
		name   string
		at     time.Time
		active map[Team]bool
	}{
		{
			// 05:00 UTC: Team A on shift, overflow asleep (midnight Eastern).
			"early utc", time.Date(2026, 3, 2, 5, 0, 0, 0, time.UTC),
			map[Team]bool{TeamA: true, TeamB: false, TeamC: false, TeamOverflow: false},
		},
		{
			// 15:00 UTC: Team B on shift, overflow inside 09:00-17:00 Eastern.
			"midday utc", time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
			map[Team]bool{TeamA: false, TeamB: true, TeamC: false, TeamOverflow: true},
		},
		{
			// 20:00 UTC: Team C on shift, overflow still on (15:00 Eastern).
			"evening utc", time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC),
			map[Team]bool{TeamA: false, TeamB: false, TeamC: true, TeamOverflow: true},
		},
	}
	for _, tc := range cases {
		agents, shifts, _ := seededStores(t, tc.at)
		shifts.UpdateStatuses()
		for team, wantActive := range tc.active {
			for _, a := range agents.ByTeam(team) {
				if a.Active() != wantActive {
					t.Errorf("%s/%s (%s): active=%v, want %v", tc.name, team, a.ID, a.Active(), wantActive)
				}
			}
		}
	}
}

func TestShiftOverlapHasBothTeamsActive(t *testing.T) {
	// 08:00 UTC falls in the A/B overlap (A ends 08:05, B starts 07:55).
	agents, shifts, _ := seededStores(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	shifts.UpdateStatuses()
	for _, team := range []Team{TeamA, TeamB} {
		for _, a := range agents.ByTeam(team) {
			if !a.Active() {
				t.Errorf("%s/%s should be active during the overlap", team, a.ID)
			}
		}
	}
	// Team A is inside its handoff margin and no longer accepting.
	for _, a := range agents.ByTeam(TeamA) {
		if a.AcceptingNewChats() {
			t.Errorf("%s accepts within 5 minutes of shift end", a.ID)
		}
	}
	for _, a := range agents.ByTeam(TeamB) {
		if !a.AcceptingNewChats() {
			t.Errorf("%s just started its shift and should accept", a.ID)
		}
	}
}

func TestOverflowWindowRetimedToEastern(t *testing.T) {
	agents, shifts, _ := seededStores(t, time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))
	shifts.UpdateStatuses()
	for _, a := range agents.ByTeam(TeamOverflow) {
		w := a.Shift()
		if w.Loc == nil || w.Loc.String() != "America/New_York" {
			t.Fatalf("overflow shift should be Eastern, got %v", w)
		}
		if w.Start != 9*60 || w.End != 17*60 {
			t.Fatalf("overflow window should be 09:00-17:00, got %v", w)
		}
	}
}

func TestTeamCapacities(t *testing.T) {
	// Force every team on shift so capacity reflects the full roster.
	agents, _, _ := seededStores(t, time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))
	for _, a := range agents.All() {
		a.setShift(allDay)
		a.refreshShift(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	}
	want := map[Team]int{TeamA: 21, TeamB: 22, TeamC: 12, TeamOverflow: 24}
	for team, cap := range want {
		if got := agents.TeamCapacity(team); got != cap {
			t.Errorf("%s capacity: got %d, want %d", team, got, cap)
		}
	}
}
