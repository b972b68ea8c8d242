package dispatch

import "log"

// Assignment pairs a session with an agent holding a reservation for it.
// Every emitted reservation must be committed or released by the caller.
type Assignment struct {
	Session *ChatSession
	Agent   *Agent
}

// AgentSelector implements the junior-first, capacity-weighted
// round-robin selection policy.
type AgentSelector struct {
	agents *AgentStore
	rr     *RoundRobin
}

// NewAgentSelector wires the selector to the roster and the rotation
// counters.
func NewAgentSelector(agents *AgentStore, rr *RoundRobin) *AgentSelector {
	return &AgentSelector{agents: agents, rr: rr}
}

// seniorityWalk picks an agent from candidates of one team: the first
// seniority tier (juniors first) with any free slot wins, and within the
// tier the agents with the most free slots rotate round-robin.
func (s *AgentSelector) seniorityWalk(team Team, candidates []*Agent) *Agent {
	for _, level := range seniorityOrder {
		var cohort []*Agent
		maxAvail := 0
		for _, a := range candidates {
			if a.Team != team || a.Level != level {
				continue
			}
			if avail := a.Available(); avail > 0 {
				cohort = append(cohort, a)
				if avail > maxAvail {
					maxAvail = avail
				}
			}
		}
		if len(cohort) == 0 {
			continue
		}
		var top []*Agent
		for _, a := range cohort {
			if a.Available() == maxAvail {
				top = append(top, a)
			}
		}
		if len(top) == 0 {
			// Availability moved under us; fall back to the whole tier.
			top = cohort
		}
		idx, err := s.rr.Next(seniorityKey(team, level), len(top))
		if err != nil {
			return nil
		}
		return top[idx]
	}
	return nil
}

// SelectNext picks a single agent. With useOverflow the pick rotates
// across the Overflow team's accepting agents; otherwise a team is chosen
// by cross-team rotation and the seniority walk runs inside it.
func (s *AgentSelector) SelectNext(useOverflow bool) (*Agent, error) {
	if useOverflow {
		var candidates []*Agent
		for _, a := range s.agents.ByTeam(TeamOverflow) {
			if a.CanAccept() {
				candidates = append(candidates, a)
			}
		}
		if len(candidates) == 0 {
			return nil, nil
		}
		idx, err := s.rr.Next(teamKey(TeamOverflow), len(candidates))
		if err != nil {
			return nil, err
		}
		return candidates[idx], nil
	}

	// Cross-team rotation deliberately shares the TeamA key with the
	// per-team lookups; see DESIGN.md.
	idx, err := s.rr.Next(teamKey(TeamA), len(rotationTeams))
	if err != nil {
		return nil, err
	}
	team := rotationTeams[idx]
	var candidates []*Agent
	for _, a := range s.agents.ByTeam(team) {
		if a.CanAccept() {
			candidates = append(candidates, a)
		}
	}
	return s.seniorityWalk(team, candidates), nil
}

// CreateOptimalAssignments maps a batch of sessions onto agents. Agents
// are filtered to those currently able to accept, bucketed by team, and
// each session is offered up to three teams starting from a local
// rotation index. A found candidate is reserved immediately; a failed
// reservation skips the session for this batch (the agent is considered
// again next tick).
func (s *AgentSelector) CreateOptimalAssignments(sessions []*ChatSession, agents []*Agent, useOverflow bool) []Assignment {
	accepting := make([]*Agent, 0, len(agents))
	for _, a := range agents {
		if a.CanAccept() {
			accepting = append(accepting, a)
		}
	}
	if len(accepting) == 0 || len(sessions) == 0 {
		return nil
	}

	var out []Assignment

	if useOverflow {
		for _, sess := range sessions {
			cand := s.seniorityWalk(TeamOverflow, accepting)
			if cand == nil {
				break
			}
			if !cand.TryReserve() {
				continue
			}
			out = append(out, Assignment{Session: sess, Agent: cand})
		}
		return out
	}

	buckets := make(map[Team][]*Agent)
	for _, a := range accepting {
		buckets[a.Team] = append(buckets[a.Team], a)
	}

	teamIndex := 0
	for _, sess := range sessions {
		for i := 0; i < len(rotationTeams); i++ {
			picked := (teamIndex + i) % len(rotationTeams)
			team := rotationTeams[picked]
			cand := s.seniorityWalk(team, buckets[team])
			if cand == nil {
				continue
			}
			if cand.TryReserve() {
				out = append(out, Assignment{Session: sess, Agent: cand})
				teamIndex = (picked + 1) % len(rotationTeams)
			} else {
				log.Printf("[WARN] AgentSelector: reservation on %s lost to a concurrent assignment, skipping session %s this batch", cand.ID, sess.ID)
			}
			// Candidate found: win or lose the reservation, this
			// session is done for the batch.
			break
		}
	}
	return out
}
