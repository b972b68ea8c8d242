package dispatch

import (
	"math"
	"sync"
	"time"
)

// Agent is a support worker with a fixed team and seniority. All capacity
// mutations happen under the agent's own lock; there is no global agent
// lock anywhere in the engine.
type Agent struct {
	ID    string
	Name  string
	Team  Team
	Level Seniority

	mu sync.Mutex
	// shift window, refreshed by the ShiftManager
	shift Window
	// flags derived from the shift window
	active            bool
	acceptingNewChats bool
	// capacity accounting
	current  int // chats in progress
	reserved int // slots held by in-flight assignment attempts
}

// NewAgent builds an agent with the given shift window. Flags start false
// until the first shift refresh.
func NewAgent(id, name string, team Team, level Seniority, shift Window) *Agent {
	return &Agent{ID: id, Name: name, Team: team, Level: level, shift: shift}
}

// MaxConcurrent derives the agent's concurrent chat limit from its
// seniority: floor(10 * multiplier).
func (a *Agent) MaxConcurrent() int {
	return int(math.Floor(BaseConcurrency * a.Level.Multiplier()))
}

// canAcceptLocked is the acceptance predicate. Callers must hold a.mu.
func (a *Agent) canAcceptLocked() bool {
	return a.active && a.acceptingNewChats && a.current+a.reserved < a.MaxConcurrent()
}

// CanAccept reports whether the agent can take one more chat right now.
func (a *Agent) CanAccept() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.canAcceptLocked()
}

// Available returns the number of free slots (never negative).
func (a *Agent) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := a.MaxConcurrent() - a.current - a.reserved; n > 0 {
		return n
	}
	return 0
}

// TryReserve holds one slot for an in-flight assignment attempt. It fails
// when the acceptance predicate does not hold.
func (a *Agent) TryReserve() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.canAcceptLocked() {
		return false
	}
	a.reserved++
	return true
}

// ReleaseReservation gives a held slot back. Safe to call when nothing is
// reserved (the reservation may already have been consumed by a commit).
func (a *Agent) ReleaseReservation() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reserved > 0 {
		a.reserved--
	}
}

// ConfirmReservation converts a held slot into a chat in progress. It
// fails when no reservation is held.
func (a *Agent) ConfirmReservation() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reserved <= 0 {
		return false
	}
	a.reserved--
	a.current++
	return true
}

// AssignDirect takes a slot without a prior reservation. Used as the
// fallback when an assignment arrives outside the batch pipeline.
func (a *Agent) AssignDirect() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.canAcceptLocked() {
		return false
	}
	a.current++
	return true
}

// HasReservation reports whether at least one slot is currently held.
func (a *Agent) HasReservation() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reserved > 0
}

// CompleteChat releases one chat in progress.
func (a *Agent) CompleteChat() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current <= 0 {
		return false
	}
	a.current--
	return true
}

// Active reports whether the agent is inside its shift.
func (a *Agent) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// AcceptingNewChats reports whether the agent is inside its shift and far
// enough from its end to take new work.
func (a *Agent) AcceptingNewChats() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acceptingNewChats
}

// Current returns the number of chats in progress.
func (a *Agent) Current() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Reserved returns the number of slots held by in-flight assignments.
func (a *Agent) Reserved() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reserved
}

// refreshShift recomputes the shift-derived flags for the given instant.
func (a *Agent) refreshShift(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = a.shift.Contains(now)
	a.acceptingNewChats = a.active && a.shift.Remaining(now) > ShiftHandoffMargin
}

// setShift replaces the agent's shift window. The flags are refreshed on
// the next monitor tick.
func (a *Agent) setShift(w Window) {
	a.mu.Lock()
	a.shift = w
	a.mu.Unlock()
}

// Shift returns the agent's current shift window.
func (a *Agent) Shift() Window {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.shift
}

// AgentSnapshot is a consistent copy of an agent's state for the admin
// surface.
type AgentSnapshot struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Team              Team      `json:"team"`
	Seniority         Seniority `json:"seniority"`
	Active            bool      `json:"active"`
	AcceptingNewChats bool      `json:"acceptingNewChats"`
	Current           int       `json:"currentChats"`
	Reserved          int       `json:"reservedChats"`
	MaxConcurrent     int       `json:"maxConcurrent"`
	Shift             string    `json:"shift"`
}

// Snapshot copies the agent's state under its lock.
func (a *Agent) Snapshot() AgentSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AgentSnapshot{
		ID:                a.ID,
		Name:              a.Name,
		Team:              a.Team,
		Seniority:         a.Level,
		Active:            a.active,
		AcceptingNewChats: a.acceptingNewChats,
		Current:           a.current,
		Reserved:          a.reserved,
		MaxConcurrent:     a.MaxConcurrent(),
		Shift:             a.shift.String(),
	}
}
