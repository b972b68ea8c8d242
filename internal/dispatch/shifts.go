package dispatch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/deskline/deskline-dispatch/internal/clock"
)

// rosterEntry describes one agent of the fixed startup roster.
type rosterEntry struct {
	name  string
	team  Team
	level Seniority
}

// startupRoster is the fixed roster created at process start. Shift
// windows overlap a few minutes so handoffs are absorbed.
var startupRoster = []rosterEntry{
	{"Alice Thompson", TeamA, SeniorityTeamLead},
	{"Bob Wilson", TeamA, SeniorityMidLevel},
	{"Carol Davis", TeamA, SeniorityMidLevel},
	{"David Brown", TeamA, SeniorityJunior},

	{"Emma Johnson", TeamB, SenioritySenior},
	{"Frank Miller", TeamB, SeniorityMidLevel},
	{"Grace Lee", TeamB, SeniorityJunior},
	{"Henry Chen", TeamB, SeniorityJunior},

	{"Isabel Rodriguez", TeamC, SeniorityMidLevel},
	{"Jack Anderson", TeamC, SeniorityMidLevel},
}

const overflowAgentCount = 6

// teamShifts are the UTC shift windows per team at startup.
func teamShifts() map[Team]Window {
	return map[Team]Window{
		TeamA:        NewWindow(0, 0, 8, 5, time.UTC),
		TeamB:        NewWindow(7, 55, 16, 5, time.UTC),
		TeamC:        NewWindow(15, 55, 24, 5, time.UTC),
		TeamOverflow: NewWindow(9, 0, 17, 0, time.UTC),
	}
}

func agentID(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

// ShiftManager owns the roster's shift windows and keeps every agent's
// active/accepting flags in sync with the clock. The overflow team's
// window is authoritative in US-Eastern; the startup value is UTC and is
// corrected on the first refresh.
type ShiftManager struct {
	clock  clock.Clock
	agents *AgentStore
	hours  *BusinessHours

	mu              sync.Mutex
	overflowRetimed bool
}

// NewShiftManager wires the manager; call SeedRoster before the loops
// start.
func NewShiftManager(clk clock.Clock, agents *AgentStore, hours *BusinessHours) *ShiftManager {
	return &ShiftManager{clock: clk, agents: agents, hours: hours}
}

// SeedRoster creates the fixed startup roster and runs one status
// refresh so flags are correct before the first tick.
func (m *ShiftManager) SeedRoster(ctx context.Context) error {
	shifts := teamShifts()
	for _, e := range startupRoster {
		a := NewAgent(agentID(e.name), e.name, e.team, e.level, shifts[e.team])
		if err := m.agents.Add(ctx, a); err != nil {
			return fmt.Errorf("seed roster: %w", err)
		}
	}
	for i := 1; i <= overflowAgentCount; i++ {
		name := fmt.Sprintf("Overflow Agent %d", i)
		a := NewAgent(agentID(name), name, TeamOverflow, SeniorityJunior, shifts[TeamOverflow])
		if err := m.agents.Add(ctx, a); err != nil {
			return fmt.Errorf("seed roster: %w", err)
		}
	}
	m.UpdateStatuses()
	log.Printf("[INFO] ShiftManager: roster seeded, %d agents", len(m.agents.All()))
	return nil
}

// UpdateStatuses recomputes every agent's active and acceptingNewChats
// flags from its shift window: active inside the window, accepting while
// more than the handoff margin remains.
func (m *ShiftManager) UpdateStatuses() {
	m.retimeOverflowOnce()
	now := m.clock.Now()
	for _, a := range m.agents.All() {
		a.refreshShift(now)
	}
}

// retimeOverflowOnce moves the overflow team from its provisional UTC
// window onto 09:00-17:00 Eastern, which is the authoritative schedule.
func (m *ShiftManager) retimeOverflowOnce() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overflowRetimed {
		return
	}
	m.overflowRetimed = true
	eastern := NewWindow(9, 0, 17, 0, m.hours.Location())
	for _, a := range m.agents.ByTeam(TeamOverflow) {
		a.setShift(eastern)
	}
	log.Printf("[INFO] ShiftManager: overflow shift retimed to %s", eastern)
}
