package httpserver

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deskline/deskline-dispatch/internal/clock"
	"github.com/deskline/deskline-dispatch/internal/dispatch"
	"github.com/deskline/deskline-dispatch/internal/ratelimit"
)

// Server exposes the REST surface over the dispatch engine: the chat
// endpoints clients drive, a health probe, and read-only admin views.
type Server struct {
	service  *dispatch.ChatService
	sessions *dispatch.SessionStore
	agents   *dispatch.AgentStore
	capacity *dispatch.CapacityCalculator
	clock    clock.Clock
	limiter  *ratelimit.KeyedLimiter
}

// New constructs a server. The limiter may be nil to disable create
// throttling.
func New(clk clock.Clock, service *dispatch.ChatService, sessions *dispatch.SessionStore, agents *dispatch.AgentStore, capacity *dispatch.CapacityCalculator, limiter *ratelimit.KeyedLimiter) *Server {
	return &Server{
		service:  service,
		sessions: sessions,
		agents:   agents,
		capacity: capacity,
		clock:    clk,
		limiter:  limiter,
	}
}

// Router assembles the chi routing tree.
func (s *Server) Router() http.Handler {
	r := newBaseRouter()

	r.Route("/api/Chat", func(r chi.Router) {
		r.Post("/create", s.handleCreate)
		r.Post("/{sessionID}/poll", s.handlePoll)
		r.Post("/{sessionID}/complete", s.handleComplete)
		r.Get("/health", s.handleHealth)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/sessions", s.handleAdminSessions)
			r.Get("/sessions/active", s.handleAdminSessionsActive)
			r.Get("/sessions/inactive", s.handleAdminSessionsInactive)
			r.Get("/queue-status", s.handleAdminQueueStatus)
			r.Get("/agents", s.handleAdminAgents)
			r.Get("/events", s.handleAdminEvents)
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func newBaseRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	return r
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[ERROR] httpserver: encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
