package dispatch

import (
	"math"
	"sync"
	"time"

	"github.com/deskline/deskline-dispatch/internal/clock"
)

// CapacityCalculator derives team and total capacity figures with a
// short-TTL cache. Stale reads are acceptable: admission is best-effort,
// the final arbitration is always the agent's reservation.
type CapacityCalculator struct {
	clock    clock.Clock
	agents   *AgentStore
	sessions *SessionStore
	hours    *BusinessHours

	mu    sync.Mutex
	team  map[Team]capacityEntry
	total *capacityEntry
}

type capacityEntry struct {
	value   int
	expires time.Time
}

// NewCapacityCalculator wires the calculator.
func NewCapacityCalculator(clk clock.Clock, agents *AgentStore, sessions *SessionStore, hours *BusinessHours) *CapacityCalculator {
	return &CapacityCalculator{
		clock:    clk,
		agents:   agents,
		sessions: sessions,
		hours:    hours,
		team:     make(map[Team]capacityEntry),
	}
}

// TeamCapacity sums MaxConcurrent over the team's active agents, cached
// for CapacityCacheTTL.
func (c *CapacityCalculator) TeamCapacity(team Team) int {
	now := c.clock.Now()
	c.mu.Lock()
	if e, ok := c.team[team]; ok && now.Before(e.expires) {
		c.mu.Unlock()
		return e.value
	}
	c.mu.Unlock()

	v := c.agents.TeamCapacity(team)

	c.mu.Lock()
	c.team[team] = capacityEntry{value: v, expires: now.Add(CapacityCacheTTL)}
	c.mu.Unlock()
	return v
}

// TotalCapacity sums the three main teams, cached separately from the
// per-team figures.
func (c *CapacityCalculator) TotalCapacity() int {
	now := c.clock.Now()
	c.mu.Lock()
	if c.total != nil && now.Before(c.total.expires) {
		v := c.total.value
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	v := 0
	for _, t := range rotationTeams {
		v += c.agents.TeamCapacity(t)
	}

	c.mu.Lock()
	c.total = &capacityEntry{value: v, expires: now.Add(CapacityCacheTTL)}
	c.mu.Unlock()
	return v
}

// OverflowCapacity is the Overflow team's capacity.
func (c *CapacityCalculator) OverflowCapacity() int {
	return c.TeamCapacity(TeamOverflow)
}

// queueLimit scales a capacity figure into a queue admission limit.
func queueLimit(capacity int) int {
	return int(math.Floor(float64(capacity) * QueueLimitMultiplier))
}

// MainQueueLimit is the admission limit for the main queue.
func (c *CapacityCalculator) MainQueueLimit() int {
	return queueLimit(c.TotalCapacity())
}

// OverflowQueueLimit is the admission limit for the overflow queue.
func (c *CapacityCalculator) OverflowQueueLimit() int {
	return queueLimit(c.OverflowCapacity())
}

// CanAccept is the admission predicate. A session admitted on overflow
// headroom still enters the main queue first; the dispatcher promotes it
// during office hours.
func (c *CapacityCalculator) CanAccept() bool {
	if c.sessions.QueueLength() < c.MainQueueLimit() {
		return true
	}
	if c.hours.IsOfficeHours() && c.sessions.OverflowQueueLength() < c.OverflowQueueLimit() {
		return true
	}
	return false
}

// Invalidate drops the cached figures for a team and the total. Writers
// call this after a committed assignment so the next admission sees fresh
// numbers.
func (c *CapacityCalculator) Invalidate(team Team) {
	c.mu.Lock()
	delete(c.team, team)
	c.total = nil
	c.mu.Unlock()
}
