package ledger

import (
	"context"
	"time"
)

// EventType classifies a dispatch lifecycle event.
type EventType string

const (
	EventCreated     EventType = "created"
	EventRefused     EventType = "refused"
	EventAssigned    EventType = "assigned"
	EventActivated   EventType = "activated"
	EventCompleted   EventType = "completed"
	EventInactivated EventType = "inactivated"
	EventOverflowed  EventType = "overflowed"
)

// Event is a single append-only audit record. The ledger is a trail of
// what the engine decided, not engine state: the process still starts
// empty after a restart.
type Event struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId,omitempty"`
	AgentID   string    `json:"agentId,omitempty"`
	Type      EventType `json:"type"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store defines persistence behaviour for the event ledger.
type Store interface {
	Record(ctx context.Context, e Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
	Close() error
}

// Noop discards events. Used when no ledger path is configured.
type Noop struct{}

func (Noop) Record(context.Context, Event) error              { return nil }
func (Noop) ListRecent(context.Context, int) ([]Event, error) { return nil, nil }
func (Noop) Close() error                                     { return nil }
