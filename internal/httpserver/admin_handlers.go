package httpserver

import (
	"log"
	"net/http"
	"strconv"

	"github.com/deskline/deskline-dispatch/internal/dispatch"
)

func snapshotSessions(sessions []*dispatch.ChatSession) []dispatch.SessionSnapshot {
	out := make([]dispatch.SessionSnapshot, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Snapshot())
	}
	return out
}

func (s *Server) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, snapshotSessions(s.sessions.All()))
}

func (s *Server) handleAdminSessionsActive(w http.ResponseWriter, r *http.Request) {
	active := s.sessions.ActiveForMonitoring()
	respondJSON(w, http.StatusOK, snapshotSessions(active))
}

func (s *Server) handleAdminSessionsInactive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, snapshotSessions(s.sessions.ByStatus(dispatch.StatusInactive)))
}

func (s *Server) handleAdminQueueStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"mainQueueLength":     s.sessions.QueueLength(),
		"overflowQueueLength": s.sessions.OverflowQueueLength(),
		"mainQueueLimit":      s.capacity.MainQueueLimit(),
		"overflowQueueLimit":  s.capacity.OverflowQueueLimit(),
		"totalCapacity":       s.capacity.TotalCapacity(),
		"overflowCapacity":    s.capacity.OverflowCapacity(),
		"canAcceptNewChats":   s.capacity.CanAccept(),
	})
}

func (s *Server) handleAdminAgents(w http.ResponseWriter, r *http.Request) {
	agents := s.agents.All()
	out := make([]dispatch.AgentSnapshot, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.Snapshot())
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	events, err := s.service.RecentEvents(r.Context(), limit)
	if err != nil {
		log.Printf("[ERROR] httpserver: list events: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, events)
}
