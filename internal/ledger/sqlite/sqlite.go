package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// register sqlite driver
	_ "modernc.org/sqlite"

	"github.com/deskline/deskline-dispatch/internal/ledger"
)

// Store implements ledger.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite ledger at the given path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS dispatch_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	user_id TEXT,
	agent_id TEXT,
	event_type TEXT NOT NULL,
	detail TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_dispatch_events_session ON dispatch_events(session_id, created_at DESC);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases underlying database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one event.
func (s *Store) Record(ctx context.Context, e ledger.Event) error {
	if e.SessionID == "" {
		return fmt.Errorf("ledger record requires session id")
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO dispatch_events(session_id, user_id, agent_id, event_type, detail, created_at)
VALUES(?, ?, ?, ?, ?, ?)`,
		e.SessionID,
		e.UserID,
		e.AgentID,
		string(e.Type),
		e.Detail,
		created,
	)
	return err
}

// ListRecent returns the latest events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]ledger.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, COALESCE(user_id, ''), COALESCE(agent_id, ''), event_type, COALESCE(detail, ''), created_at
FROM dispatch_events
ORDER BY id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ledger.Event
	for rows.Next() {
		var e ledger.Event
		var typ string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.AgentID, &typ, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = ledger.EventType(typ)
		events = append(events, e)
	}
	return events, rows.Err()
}
