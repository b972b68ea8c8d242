package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/deskline/deskline-dispatch/internal/clock"
)

func assignerFixture(t *testing.T, at time.Time) (*Assigner, *SessionStore, *AgentStore) {
	t.Helper()
	clk := clock.NewFake(at)
	sessions := NewSessionStore()
	agents := NewAgentStore()
	hours := NewBusinessHours(clk)
	capacity := NewCapacityCalculator(clk, agents, sessions, hours)
	asg := NewAssigner(clk, sessions, agents, capacity)
	asg.sleep = func(time.Duration) {}
	return asg, sessions, agents
}

func TestTryAssignCommitsReservation(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	asg, sessions, agents := assignerFixture(t, at)
	ctx := context.Background()

	agent := testAgent("junior", TeamA, SeniorityJunior, at)
	agents.Add(ctx, agent)
	sess := NewChatSession("s1", "u1", StatusQueued, at)
	sessions.Insert(ctx, sess)

	if !agent.TryReserve() {
		t.Fatal("reserve failed")
	}
	if !asg.TryAssign(ctx, sess, agent) {
		t.Fatal("assign should succeed")
	}
	if sess.Status() != StatusAssigned || sess.AssignedAgentID() != "junior" {
		t.Fatalf("session: status=%s agent=%s", sess.Status(), sess.AssignedAgentID())
	}
	if agent.Current() != 1 || agent.Reserved() != 0 {
		t.Fatalf("agent: current=%d reserved=%d", agent.Current(), agent.Reserved())
	}
}

func TestTryAssignReservedLastSlot(t *testing.T) {
	// A reservation on the agent's final slot must still commit even
	// though the acceptance predicate no longer holds.
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	asg, sessions, agents := assignerFixture(t, at)
	ctx := context.Background()

	agent := testAgent("junior", TeamA, SeniorityJunior, at)
	agents.Add(ctx, agent)
	for i := 0; i < 3; i++ {
		agent.AssignDirect()
	}
	if !agent.TryReserve() {
		t.Fatal("reserving the last slot should succeed")
	}
	if agent.CanAccept() {
		t.Fatal("agent is now saturated")
	}

	sess := NewChatSession("s1", "u1", StatusQueued, at)
	sessions.Insert(ctx, sess)
	if !asg.TryAssign(ctx, sess, agent) {
		t.Fatal("held reservation must carry the commit through")
	}
	if agent.Current() != 4 || agent.Reserved() != 0 {
		t.Fatalf("agent: current=%d reserved=%d", agent.Current(), agent.Reserved())
	}
}

func TestTryAssignWithoutReservationFallsBackToDirect(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	asg, sessions, agents := assignerFixture(t, at)
	ctx := context.Background()

	agent := testAgent("junior", TeamA, SeniorityJunior, at)
	agents.Add(ctx, agent)
	sess := NewChatSession("s1", "u1", StatusQueued, at)
	sessions.Insert(ctx, sess)

	if !asg.TryAssign(ctx, sess, agent) {
		t.Fatal("direct assignment should succeed")
	}
	if agent.Current() != 1 {
		t.Fatalf("current=%d", agent.Current())
	}
}

func TestTryAssignRejectsFullAgent(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	asg, sessions, agents := assignerFixture(t, at)
	ctx := context.Background()

	agent := testAgent("junior", TeamA, SeniorityJunior, at)
	agents.Add(ctx, agent)
	for i := 0; i < 4; i++ {
		agent.AssignDirect()
	}
	sess := NewChatSession("s1", "u1", StatusQueued, at)
	sessions.Insert(ctx, sess)

	if asg.TryAssign(ctx, sess, agent) {
		t.Fatal("full agent without a reservation must be rejected")
	}
	if sess.Status() != StatusQueued {
		t.Fatalf("session must stay queued, is %s", sess.Status())
	}
}

func TestTryAssignNonQueuedSession(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	asg, sessions, agents := assignerFixture(t, at)
	ctx := context.Background()

	agent := testAgent("junior", TeamA, SeniorityJunior, at)
	agents.Add(ctx, agent)
	sess := NewChatSession("s1", "u1", StatusQueued, at)
	sessions.Insert(ctx, sess)
	sess.MarkMissedIfStale(at.Add(3 * time.Second))
	sess.MarkInactive()

	if asg.TryAssign(ctx, sess, agent) {
		t.Fatal("inactive session must not be assigned")
	}
	if agent.Current() != 0 {
		t.Fatalf("no slot may be consumed, current=%d", agent.Current())
	}
}

func TestTryAssignPersistFailureRollsBack(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	asg, _, agents := assignerFixture(t, at)
	ctx := context.Background()

	agent := testAgent("junior", TeamA, SeniorityJunior, at)
	agents.Add(ctx, agent)
	// Session was never inserted, so every persist attempt fails.
	sess := NewChatSession("ghost", "u1", StatusQueued, at)

	if asg.TryAssign(ctx, sess, agent) {
		t.Fatal("assignment must fail when persistence fails")
	}
	if sess.Status() != StatusQueued {
		t.Fatalf("session must revert to queued, is %s", sess.Status())
	}
	if agent.Current() != 0 || agent.Reserved() != 0 {
		t.Fatalf("slot must be returned: current=%d reserved=%d", agent.Current(), agent.Reserved())
	}
}
