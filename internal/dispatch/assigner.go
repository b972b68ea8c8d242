package dispatch

import (
	"context"
	"log"
	"time"

	"github.com/deskline/deskline-dispatch/internal/clock"
	"github.com/deskline/deskline-dispatch/internal/metrics"
)

// Assigner commits reservations: it binds a queued session to an agent
// and persists both, or unwinds everything. A reservation handed in is
// always either consumed by the commit or released on the failure path,
// and a failed session keeps its queue position.
type Assigner struct {
	sessions *SessionStore
	agents   *AgentStore
	capacity *CapacityCalculator
	clock    clock.Clock

	// sleep is a seam for tests; production uses time.Sleep.
	sleep func(time.Duration)
}

// NewAssigner wires the assigner.
func NewAssigner(clk clock.Clock, sessions *SessionStore, agents *AgentStore, capacity *CapacityCalculator) *Assigner {
	return &Assigner{
		sessions: sessions,
		agents:   agents,
		capacity: capacity,
		clock:    clk,
		sleep:    time.Sleep,
	}
}

// TryAssign executes reserve -> commit for one (session, agent) pair.
// Returns false on any capacity conflict or transient persistence
// failure; the session stays Queued and the reservation is not leaked.
func (a *Assigner) TryAssign(ctx context.Context, sess *ChatSession, agent *Agent) bool {
	// A held reservation already guarantees the slot; only an unreserved
	// (direct) assignment needs the acceptance re-check.
	if !agent.HasReservation() && !agent.CanAccept() {
		metrics.AssignmentFailures.WithLabelValues("agent_full").Inc()
		return false
	}

	if err := sess.AssignToAgent(agent.ID, a.clock.Now()); err != nil {
		log.Printf("[WARN] Assigner: session %s not assignable: %v", sess.ID, err)
		metrics.AssignmentFailures.WithLabelValues("session_state").Inc()
		return false
	}

	if !agent.ConfirmReservation() && !agent.AssignDirect() {
		sess.revertToQueued()
		log.Printf("[WARN] Assigner: capacity on %s gone before commit, session %s stays queued", agent.ID, sess.ID)
		metrics.AssignmentFailures.WithLabelValues("capacity_gone").Inc()
		return false
	}

	if err := a.persist(ctx, sess, agent); err != nil {
		// Undo the committed slot so in-memory state stays consistent.
		sess.revertToQueued()
		agent.CompleteChat()
		log.Printf("[ERROR] Assigner: persisting assignment %s->%s failed after %d attempts: %v", sess.ID, agent.ID, AssignRetries, err)
		metrics.AssignmentFailures.WithLabelValues("persist").Inc()
		return false
	}

	a.capacity.Invalidate(agent.Team)
	metrics.AssignmentsTotal.WithLabelValues(string(agent.Team)).Inc()
	log.Printf("[INFO] Assigner: session %s assigned to %s (%s/%s)", sess.ID, agent.ID, agent.Team, agent.Level)
	return true
}

// persist writes session then agent, retrying transient failures with a
// linear backoff. The reservation release between attempts is a safe
// no-op once the commit consumed it.
func (a *Assigner) persist(ctx context.Context, sess *ChatSession, agent *Agent) error {
	var err error
	for attempt := 1; attempt <= AssignRetries; attempt++ {
		if err = a.sessions.Update(ctx, sess); err == nil {
			if err = a.agents.Update(ctx, agent); err == nil {
				return nil
			}
		}
		agent.ReleaseReservation()
		log.Printf("[WARN] Assigner: persist attempt %d/%d for session %s failed: %v", attempt, AssignRetries, sess.ID, err)
		if attempt < AssignRetries {
			a.sleep(time.Duration(attempt) * AssignRetryBackoff)
		}
	}
	return err
}
