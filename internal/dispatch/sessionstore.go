package dispatch

import (
	"context"
	"sort"
	"sync"
)

// SessionStore holds every session by id. The two FIFO queues are views
// over the same map, ordered by creation time, so moving a session
// between queues is a flag flip rather than a structural move.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*ChatSession
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*ChatSession)}
}

// Insert stores a new session. A Queued session lands in the main queue
// by construction (isInOverflow starts false).
func (s *SessionStore) Insert(ctx context.Context, sess *ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

// InsertIfNoActive stores sess unless the user already has a queued,
// assigned, or active session, in which case that session is returned
// instead. Scan and insert share one critical section so concurrent
// creates for the same user cannot both slip past the check.
func (s *SessionStore) InsertIfNoActive(ctx context.Context, userID string, sess *ChatSession) (*ChatSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.UserID != userID {
			continue
		}
		switch existing.Status() {
		case StatusQueued, StatusAssigned, StatusActive:
			return existing, false, nil
		}
	}
	s.sessions[sess.ID] = sess
	return sess, true, nil
}

// Update persists a session as a whole-object replacement. The in-memory
// backend shares pointers, so presence is the only thing to check.
func (s *SessionStore) Update(ctx context.Context, sess *ChatSession) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return ErrNotFound
	}
	return nil
}

// ByID looks a session up.
func (s *SessionStore) ByID(id string) (*ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// snapshot returns a point-in-time slice of all sessions. Enumerations
// filter the snapshot so they never hold the store lock while taking
// per-session locks.
func (s *SessionStore) snapshot() []*ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ChatSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// All returns every session, unordered.
func (s *SessionStore) All() []*ChatSession {
	return s.snapshot()
}

// ActiveByUser finds the user's session among the non-terminal statuses.
// At most one exists at a time.
func (s *SessionStore) ActiveByUser(userID string) (*ChatSession, bool) {
	for _, sess := range s.snapshot() {
		if sess.UserID != userID {
			continue
		}
		switch sess.Status() {
		case StatusQueued, StatusAssigned, StatusActive:
			return sess, true
		}
	}
	return nil, false
}

// ByStatus returns sessions in the given state.
func (s *SessionStore) ByStatus(status SessionStatus) []*ChatSession {
	var out []*ChatSession
	for _, sess := range s.snapshot() {
		if sess.Status() == status {
			out = append(out, sess)
		}
	}
	return out
}

func sortByCreation(sessions []*ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt().Before(sessions[j].CreatedAt())
	})
}

// MainQueue returns queued sessions not in overflow, oldest first.
func (s *SessionStore) MainQueue() []*ChatSession {
	var out []*ChatSession
	for _, sess := range s.snapshot() {
		if sess.Status() == StatusQueued && !sess.IsInOverflow() {
			out = append(out, sess)
		}
	}
	sortByCreation(out)
	return out
}

// OverflowQueue returns queued overflow sessions, oldest first.
func (s *SessionStore) OverflowQueue() []*ChatSession {
	var out []*ChatSession
	for _, sess := range s.snapshot() {
		if sess.Status() == StatusQueued && sess.IsInOverflow() {
			out = append(out, sess)
		}
	}
	sortByCreation(out)
	return out
}

// QueueLength is the main-queue depth.
func (s *SessionStore) QueueLength() int {
	return len(s.MainQueue())
}

// OverflowQueueLength is the overflow-queue depth.
func (s *SessionStore) OverflowQueueLength() int {
	return len(s.OverflowQueue())
}

// TimedOut returns assigned or active sessions past the missed-poll
// threshold.
func (s *SessionStore) TimedOut() []*ChatSession {
	var out []*ChatSession
	for _, sess := range s.snapshot() {
		switch sess.Status() {
		case StatusAssigned, StatusActive:
			if sess.MissedPollCount() >= MissedPollThreshold {
				out = append(out, sess)
			}
		}
	}
	return out
}

// ActiveForMonitoring returns every session the liveness monitor watches:
// queued, assigned, or active.
func (s *SessionStore) ActiveForMonitoring() []*ChatSession {
	var out []*ChatSession
	for _, sess := range s.snapshot() {
		switch sess.Status() {
		case StatusQueued, StatusAssigned, StatusActive:
			out = append(out, sess)
		}
	}
	return out
}
