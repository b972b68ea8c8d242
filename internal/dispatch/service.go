package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/deskline/deskline-dispatch/internal/clock"
	"github.com/deskline/deskline-dispatch/internal/ledger"
	"github.com/deskline/deskline-dispatch/internal/metrics"
)

// ChatService is the in-process public API: session creation with
// admission control, liveness polls, and queue introspection.
type ChatService struct {
	clock    clock.Clock
	sessions *SessionStore
	agents   *AgentStore
	capacity *CapacityCalculator
	ledger   ledger.Store
}

// NewChatService wires the service.
func NewChatService(clk clock.Clock, sessions *SessionStore, agents *AgentStore, capacity *CapacityCalculator, lg ledger.Store) *ChatService {
	if lg == nil {
		lg = ledger.Noop{}
	}
	return &ChatService{clock: clk, sessions: sessions, agents: agents, capacity: capacity, ledger: lg}
}

// CreateSession admits a new chat request. The call is idempotent per
// user: an existing queued, assigned, or active session is returned
// as-is. When admission fails the session is created Refused.
func (s *ChatService) CreateSession(ctx context.Context, userID string) (*ChatSession, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidArgument)
	}

	now := s.clock.Now()
	status := StatusQueued
	eventType := ledger.EventCreated
	if !s.capacity.CanAccept() {
		status = StatusRefused
		eventType = ledger.EventRefused
	}

	// Insert and the per-user idempotence check are one critical section
	// in the store; a lost race returns the winner's session.
	sess := NewChatSession(uuid.New().String(), userID, status, now)
	stored, inserted, err := s.sessions.InsertIfNoActive(ctx, userID, sess)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	if !inserted {
		log.Printf("[INFO] ChatService: user %s already has session %s (%s)", userID, stored.ID, stored.Status())
		return stored, nil
	}
	if status == StatusRefused {
		metrics.RefusalsTotal.Inc()
	}

	log.Printf("[INFO] ChatService: session %s created for user %s (%s)", sess.ID, userID, status)
	if err := s.ledger.Record(ctx, ledger.Event{
		SessionID: sess.ID,
		UserID:    userID,
		Type:      eventType,
		CreatedAt: now,
	}); err != nil {
		log.Printf("[WARN] ChatService: ledger record: %v", err)
	}
	return sess, nil
}

// Poll refreshes a session's liveness. Returns false for unknown ids.
// The first poll after assignment activates the chat.
func (s *ChatService) Poll(ctx context.Context, sessionID string) bool {
	sess, ok := s.sessions.ByID(sessionID)
	if !ok {
		return false
	}
	activated := sess.RecordPoll(s.clock.Now())
	metrics.PollsTotal.Inc()
	if err := s.sessions.Update(ctx, sess); err != nil {
		log.Printf("[ERROR] ChatService: persist poll %s: %v", sessionID, err)
	}
	if activated {
		log.Printf("[INFO] ChatService: session %s activated on first poll", sessionID)
		if err := s.ledger.Record(ctx, ledger.Event{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			AgentID:   sess.AssignedAgentID(),
			Type:      ledger.EventActivated,
		}); err != nil {
			log.Printf("[WARN] ChatService: ledger record: %v", err)
		}
	}
	return true
}

// Complete closes an active chat and releases the agent's slot.
func (s *ChatService) Complete(ctx context.Context, sessionID string) error {
	sess, ok := s.sessions.ByID(sessionID)
	if !ok {
		return ErrNotFound
	}
	agentID, err := sess.Complete()
	if err != nil {
		return err
	}
	if agentID != "" {
		if agent, ok := s.agents.ByID(agentID); ok {
			agent.CompleteChat()
			if err := s.agents.Update(ctx, agent); err != nil {
				log.Printf("[ERROR] ChatService: persist agent %s: %v", agentID, err)
			}
			s.capacity.Invalidate(agent.Team)
		}
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		log.Printf("[ERROR] ChatService: persist session %s: %v", sessionID, err)
	}
	if err := s.ledger.Record(ctx, ledger.Event{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		AgentID:   agentID,
		Type:      ledger.EventCompleted,
	}); err != nil {
		log.Printf("[WARN] ChatService: ledger record: %v", err)
	}
	return nil
}

// Ping verifies the service's backing dependencies. The in-memory
// stores cannot fail, so the event ledger is the one thing to probe.
func (s *ChatService) Ping(ctx context.Context) error {
	if _, err := s.ledger.ListRecent(ctx, 1); err != nil {
		return fmt.Errorf("event ledger: %w", err)
	}
	return nil
}

// CanAccept exposes the admission predicate.
func (s *ChatService) CanAccept() bool {
	return s.capacity.CanAccept()
}

// QueuePosition returns the session's 1-based position in its current
// queue, or 0 when it is not queued.
func (s *ChatService) QueuePosition(sessionID string) int {
	sess, ok := s.sessions.ByID(sessionID)
	if !ok || sess.Status() != StatusQueued {
		return 0
	}
	queue := s.sessions.MainQueue()
	if sess.IsInOverflow() {
		queue = s.sessions.OverflowQueue()
	}
	for i, q := range queue {
		if q.ID == sessionID {
			return i + 1
		}
	}
	return 0
}

// EstimatedWait projects the session's wait from its queue position and
// the available agents in the relevant pool. Returns nil when the
// session is not queued or no agent in the pool can accept.
func (s *ChatService) EstimatedWait(sessionID string) *time.Duration {
	pos := s.QueuePosition(sessionID)
	if pos == 0 {
		return nil
	}
	sess, _ := s.sessions.ByID(sessionID)

	available := 0
	for _, a := range s.agents.AvailableForAssignment() {
		if sess.IsInOverflow() == (a.Team == TeamOverflow) {
			available++
		}
	}
	if available == 0 {
		return nil
	}
	wait := time.Duration(pos) * EstimatedHandleTime / time.Duration(available)
	return &wait
}

// RecentEvents exposes the ledger tail for the admin surface.
func (s *ChatService) RecentEvents(ctx context.Context, limit int) ([]ledger.Event, error) {
	return s.ledger.ListRecent(ctx, limit)
}
