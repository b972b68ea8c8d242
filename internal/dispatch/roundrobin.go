package dispatch

import (
	"fmt"
	"sync"
)

// RoundRobin is a concurrent map of keyed rotation counters. The modulus
// is supplied on every call because cohort sizes change between calls;
// the stored value is always reduced with the modulus in force at update
// time.
type RoundRobin struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewRoundRobin returns an empty coordinator.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{counters: make(map[string]int)}
}

// Next returns the current counter for key reduced mod n, then stores
// (prev+1) mod n. The first call on a fresh key yields 0.
func (r *RoundRobin) Next(key string, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: round-robin modulus %d for key %q", ErrInvalidArgument, n, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.counters[key] % n
	r.counters[key] = (cur + 1) % n
	return cur, nil
}

// Reset removes the counter for key.
func (r *RoundRobin) Reset(key string) {
	r.mu.Lock()
	delete(r.counters, key)
	r.mu.Unlock()
}

// teamKey builds the per-team rotation key. The dispatcher's cross-team
// rotation reuses teamKey(TeamA); see DESIGN.md.
func teamKey(t Team) string {
	return "team_" + string(t)
}

// seniorityKey builds the per-(team, seniority) rotation key.
func seniorityKey(t Team, s Seniority) string {
	return fmt.Sprintf("team_%s_seniority_%s", t, s)
}
