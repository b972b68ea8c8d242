package dispatch

import (
	"context"
	"log"

	"github.com/deskline/deskline-dispatch/internal/clock"
	"github.com/deskline/deskline-dispatch/internal/ledger"
	"github.com/deskline/deskline-dispatch/internal/metrics"
)

// SessionTimeoutService demotes silent sessions. A client that stops
// polling accumulates one missed poll per expected interval; at the
// threshold the session is inactivated and, if it had a committed
// assignment, exactly one agent slot is released.
type SessionTimeoutService struct {
	clock    clock.Clock
	sessions *SessionStore
	agents   *AgentStore
	ledger   ledger.Store
}

// NewSessionTimeoutService wires the service.
func NewSessionTimeoutService(clk clock.Clock, sessions *SessionStore, agents *AgentStore, lg ledger.Store) *SessionTimeoutService {
	if lg == nil {
		lg = ledger.Noop{}
	}
	return &SessionTimeoutService{clock: clk, sessions: sessions, agents: agents, ledger: lg}
}

// ProcessTimeouts runs one staleness scan followed by inactivation of
// every session past the missed-poll threshold. Queued sessions time out
// the same way assigned and active ones do; they simply have no agent
// slot to release.
func (t *SessionTimeoutService) ProcessTimeouts(ctx context.Context) {
	now := t.clock.Now()

	monitored := t.sessions.ActiveForMonitoring()
	for _, sess := range monitored {
		sess.MarkMissedIfStale(now)
	}

	for _, sess := range monitored {
		if !sess.TimedOut() {
			continue
		}
		// MarkInactive re-checks the threshold under the session lock; a
		// poll between the scan and this call revives the session.
		agentID, missed, ok := sess.MarkInactive()
		if !ok {
			continue
		}
		log.Printf("[INFO] SessionTimeoutService: session %s inactivated after %d missed polls", sess.ID, missed)

		if agentID != "" {
			if agent, ok := t.agents.ByID(agentID); ok {
				if agent.CompleteChat() {
					log.Printf("[INFO] SessionTimeoutService: released slot on %s (now %d in progress)", agent.ID, agent.Current())
				}
				if err := t.agents.Update(ctx, agent); err != nil {
					log.Printf("[ERROR] SessionTimeoutService: persist agent %s: %v", agentID, err)
				}
			} else {
				log.Printf("[WARN] SessionTimeoutService: session %s references unknown agent %s", sess.ID, agentID)
			}
		}

		if err := t.sessions.Update(ctx, sess); err != nil {
			log.Printf("[ERROR] SessionTimeoutService: persist session %s: %v", sess.ID, err)
		}

		metrics.TimeoutsTotal.Inc()
		if err := t.ledger.Record(ctx, ledger.Event{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			AgentID:   agentID,
			Type:      ledger.EventInactivated,
			CreatedAt: now,
		}); err != nil {
			log.Printf("[WARN] SessionTimeoutService: ledger record: %v", err)
		}
	}
}
