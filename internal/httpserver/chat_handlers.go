package httpserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/deskline/deskline-dispatch/internal/dispatch"
)

type createChatRequest struct {
	UserID string `json:"userId"`
}

type createChatResponse struct {
	SessionID  string `json:"sessionId"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	IsAccepted bool   `json:"isAccepted"`
}

type pollResponse struct {
	SessionID string    `json:"sessionId"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type healthResponse struct {
	IsHealthy         bool      `json:"isHealthy"`
	CanAcceptNewChats bool      `json:"canAcceptNewChats"`
	Timestamp         time.Time `json:"timestamp"`
	Message           string    `json:"message,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if _, err := uuid.Parse(userID); err != nil {
		respondError(w, http.StatusBadRequest, "userId must be a valid uuid")
		return
	}
	if s.limiter != nil && !s.limiter.Allow(userID) {
		respondError(w, http.StatusTooManyRequests, "too many create requests")
		return
	}

	sess, err := s.service.CreateSession(r.Context(), userID)
	if err != nil {
		if errors.Is(err, dispatch.ErrInvalidArgument) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[ERROR] httpserver: create session for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := sess.Status()
	resp := createChatResponse{
		SessionID:  sess.ID,
		Status:     string(status),
		IsAccepted: status != dispatch.StatusRefused,
	}
	if resp.IsAccepted {
		resp.Message = "Chat session created"
	} else {
		resp.Message = "All queues are full, please try again later"
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	now := s.clock.Now().UTC()
	if !s.service.Poll(r.Context(), sessionID) {
		respondJSON(w, http.StatusOK, pollResponse{
			SessionID: sessionID,
			Success:   false,
			Message:   "Session not found",
			Timestamp: now,
		})
		return
	}
	respondJSON(w, http.StatusOK, pollResponse{
		SessionID: sessionID,
		Success:   true,
		Message:   "Poll recorded",
		Timestamp: now,
	})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	err := s.service.Complete(r.Context(), sessionID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]any{"sessionId": sessionID, "success": true})
	case errors.Is(err, dispatch.ErrNotFound):
		respondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, dispatch.ErrCapacityConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[ERROR] httpserver: complete %s: %v", sessionID, err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now().UTC()
	if err := s.service.Ping(r.Context()); err != nil {
		log.Printf("[ERROR] httpserver: health check: %v", err)
		respondJSON(w, http.StatusInternalServerError, healthResponse{
			IsHealthy: false,
			Timestamp: now,
			Message:   "event ledger unreachable",
		})
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{
		IsHealthy:         true,
		CanAcceptNewChats: s.service.CanAccept(),
		Timestamp:         now,
	})
}
