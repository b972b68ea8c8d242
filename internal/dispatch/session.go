package dispatch

import (
	"fmt"
	"sync"
	"time"
)

// ChatSession is one user's place in the dispatch pipeline. A single lock
// guards every mutation; the poll path and the monitor both touch the
// missed-poll counter and must not race.
type ChatSession struct {
	ID     string
	UserID string

	mu              sync.Mutex
	status          SessionStatus
	createdAt       time.Time
	assignedAt      *time.Time
	lastPolledAt    time.Time
	assignedAgentID string
	pollCount       int
	missedPollCount int
	isInOverflow    bool
}

// NewChatSession creates a session in the given initial state (Queued or
// Refused). LastPolledAt starts at the creation instant.
func NewChatSession(id, userID string, status SessionStatus, now time.Time) *ChatSession {
	return &ChatSession{
		ID:           id,
		UserID:       userID,
		status:       status,
		createdAt:    now,
		lastPolledAt: now,
	}
}

// Status returns the current lifecycle state.
func (s *ChatSession) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CreatedAt is the FIFO ordering key. It never changes, even when the
// session is redirected to the overflow queue.
func (s *ChatSession) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

// IsInOverflow reports whether the session waits in the overflow queue.
func (s *ChatSession) IsInOverflow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isInOverflow
}

// AssignedAgentID returns the committed agent id, or "" when unassigned.
func (s *ChatSession) AssignedAgentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignedAgentID
}

// MissedPollCount returns the current missed-poll counter.
func (s *ChatSession) MissedPollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missedPollCount
}

// isMonitored reports whether the session participates in liveness
// monitoring. Callers must hold s.mu.
func (s *ChatSession) isMonitoredLocked() bool {
	switch s.status {
	case StatusQueued, StatusAssigned, StatusActive:
		return true
	}
	return false
}

// AssignToAgent moves Queued -> Assigned. Any other starting state is a
// capacity conflict: the dispatcher raced with a poll timeout or another
// assignment.
func (s *ChatSession) AssignToAgent(agentID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusQueued {
		return fmt.Errorf("%w: session %s is %s, not %s", ErrCapacityConflict, s.ID, s.status, StatusQueued)
	}
	s.status = StatusAssigned
	s.assignedAgentID = agentID
	t := now
	s.assignedAt = &t
	s.isInOverflow = false
	return nil
}

// revertToQueued undoes AssignToAgent after a failed capacity commit so
// the session keeps its queue position (createdAt is untouched).
func (s *ChatSession) revertToQueued() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusAssigned {
		return
	}
	s.status = StatusQueued
	s.assignedAgentID = ""
	s.assignedAt = nil
}

// RecordPoll refreshes liveness: lastPolledAt moves to now, the missed
// counter resets, and a first poll after assignment activates the chat.
// It reports whether this poll performed the Assigned -> Active
// transition.
func (s *ChatSession) RecordPoll(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPolledAt = now
	s.pollCount++
	s.missedPollCount = 0
	if s.status == StatusAssigned {
		s.status = StatusActive
		return true
	}
	return false
}

// MarkMissedIfStale advances the missed-poll counter by one per full
// expected-poll interval elapsed since the last poll. A missed poll is
// each full second of silence, so a session that went quiet three seconds
// ago crosses the threshold on the very next monitor tick. The staleness
// check and the increment are a single critical section.
func (s *ChatSession) MarkMissedIfStale(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isMonitoredLocked() {
		return 0
	}
	n := int(now.Sub(s.lastPolledAt) / ExpectedPollInterval)
	if n <= 0 {
		return 0
	}
	s.missedPollCount += n
	s.lastPolledAt = s.lastPolledAt.Add(time.Duration(n) * ExpectedPollInterval)
	return n
}

// TimedOut reports whether the session crossed the missed-poll threshold
// while still monitored.
func (s *ChatSession) TimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isMonitoredLocked() && s.missedPollCount >= MissedPollThreshold
}

// MarkInactive terminates a silent session and returns the agent id whose
// slot must be released ("" when the session was never assigned). The
// threshold is re-checked under the session lock: a poll that landed
// after the caller's staleness scan reset the counter, and the session
// must survive. ok reports whether the transition happened.
func (s *ChatSession) MarkInactive() (agentID string, missed int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isMonitoredLocked() || s.missedPollCount < MissedPollThreshold {
		return "", s.missedPollCount, false
	}
	s.status = StatusInactive
	return s.assignedAgentID, s.missedPollCount, true
}

// Complete closes an active chat. It fails on any other state.
func (s *ChatSession) Complete() (agentID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive {
		return "", fmt.Errorf("%w: session %s is %s, not %s", ErrCapacityConflict, s.ID, s.status, StatusActive)
	}
	s.status = StatusCompleted
	return s.assignedAgentID, nil
}

// MoveToOverflow redirects a queued session to the overflow queue. The
// original createdAt is preserved so the session keeps its wait time.
func (s *ChatSession) MoveToOverflow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusQueued || s.isInOverflow {
		return false
	}
	s.isInOverflow = true
	return true
}

// SessionSnapshot is a consistent copy for the HTTP surface.
type SessionSnapshot struct {
	ID              string        `json:"sessionId"`
	UserID          string        `json:"userId"`
	Status          SessionStatus `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	AssignedAt      *time.Time    `json:"assignedAt,omitempty"`
	LastPolledAt    time.Time     `json:"lastPolledAt"`
	AssignedAgentID string        `json:"assignedAgentId,omitempty"`
	PollCount       int           `json:"pollCount"`
	MissedPollCount int           `json:"missedPollCount"`
	IsInOverflow    bool          `json:"isInOverflow"`
}

// Snapshot copies the session's state under its lock.
func (s *ChatSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var assigned *time.Time
	if s.assignedAt != nil {
		t := *s.assignedAt
		assigned = &t
	}
	return SessionSnapshot{
		ID:              s.ID,
		UserID:          s.UserID,
		Status:          s.status,
		CreatedAt:       s.createdAt,
		AssignedAt:      assigned,
		LastPolledAt:    s.lastPolledAt,
		AssignedAgentID: s.assignedAgentID,
		PollCount:       s.pollCount,
		MissedPollCount: s.missedPollCount,
		IsInOverflow:    s.isInOverflow,
	}
}
