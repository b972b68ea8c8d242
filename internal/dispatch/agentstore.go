package dispatch

import (
	"context"
	"sync"
)

// AgentStore holds the fixed roster. Agents are created at process start
// and never destroyed; the store itself only needs a read lock around the
// map while capacity mutations go through each agent's own lock.
//
// Store operations take a context so a persistent backend can replace the
// in-memory one without touching callers.
type AgentStore struct {
	mu     sync.RWMutex
	agents map[string]*Agent
	// insertion order, for stable enumerations
	order []string
}

// NewAgentStore returns an empty store.
func NewAgentStore() *AgentStore {
	return &AgentStore{agents: make(map[string]*Agent)}
}

// Add registers an agent. Re-adding an id replaces it.
func (s *AgentStore) Add(ctx context.Context, a *Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.agents[a.ID] = a
	return nil
}

// Update persists an agent. The in-memory backend shares pointers, so
// this only validates presence; it exists for store-boundary symmetry
// with the session side.
func (s *AgentStore) Update(ctx context.Context, a *Agent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.agents[a.ID]; !ok {
		return ErrNotFound
	}
	return nil
}

// ByID looks an agent up.
func (s *AgentStore) ByID(id string) (*Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	return a, ok
}

// All returns every agent in insertion order.
func (s *AgentStore) All() []*Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Agent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.agents[id])
	}
	return out
}

// ByTeam returns the agents of one team.
func (s *AgentStore) ByTeam(team Team) []*Agent {
	var out []*Agent
	for _, a := range s.All() {
		if a.Team == team {
			out = append(out, a)
		}
	}
	return out
}

// Active returns agents currently inside their shift.
func (s *AgentStore) Active() []*Agent {
	var out []*Agent
	for _, a := range s.All() {
		if a.Active() {
			out = append(out, a)
		}
	}
	return out
}

// AvailableForAssignment returns agents able to take one more chat right
// now (active, accepting, and with a free slot).
func (s *AgentStore) AvailableForAssignment() []*Agent {
	var out []*Agent
	for _, a := range s.All() {
		if a.CanAccept() {
			out = append(out, a)
		}
	}
	return out
}

// TeamCapacity sums MaxConcurrent over the team's active agents.
func (s *AgentStore) TeamCapacity(team Team) int {
	total := 0
	for _, a := range s.ByTeam(team) {
		if a.Active() {
			total += a.MaxConcurrent()
		}
	}
	return total
}
