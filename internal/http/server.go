package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vertwheel/pacman-p2/internal/game"
	"github.com/vertwheel/pacman-p2/internal/metrics"
	"github.com/vertwheel/pacman-p2/internal/middleware"
	"github.com/vertwheel/pacman-p2/internal/policy"
	"github.com/vertwheel/pacman-p2/internal/service"
	"github.com/vertwheel/pacman-p2/internal/storage"
	"github.com/vertwheel/pacman-p2/internal/types"
)

const maxSnapshotBody = 256 * 1024

// Options configures the router.
type Options struct {
	RateLimit float64
	RateBurst int
}

// Server wires HTTP handlers to the agent service and episode store.
type Server struct {
	agents   *service.AgentService
	episodes storage.Recorder
	metrics  *metrics.Collector
	logger   *zerolog.Logger
	opts     Options
}

// NewServer constructs a Server instance.
func NewServer(agents *service.AgentService, episodes storage.Recorder, collector *metrics.Collector, logger *zerolog.Logger, opts Options) *Server {
	return &Server{agents: agents, episodes: episodes, metrics: collector, logger: logger, opts: opts}
}

// middlewares is the shared stack. Metrics sits outside Recoverer so
// recovered panics are reported as 500s.
func (s *Server) middlewares() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.CorrelationID,
		middleware.RequestLogger(*s.logger),
		middleware.Metrics(s.metrics),
		chimiddleware.Recoverer,
	}
}

// Routes builds the HTTP router for the policy server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.middlewares()...)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimiter(s.opts.RateLimit, s.opts.RateBurst))
		r.Get("/policies", s.handleListPolicies)
		r.Post("/agents", s.handleCreateAgent)
		r.Get("/agents/{agentID}", s.handleGetAgent)
		r.Post("/agents/{agentID}/actions", s.handleDecide)
		r.Delete("/agents/{agentID}", s.handleDeleteAgent)
		r.Get("/episodes/{episodeID}", s.handleGetEpisode)
		r.Get("/episodes/{episodeID}/transitions", s.handleListTransitions)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.agents.Len()})
}

func (s *Server) handleListPolicies(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"policies": s.agents.Policies()})
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var payload types.CreateAgentRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	sess, err := s.agents.CreateSession(r.Context(), payload)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	sess, err := s.agents.GetSession(r.Context(), agentID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		s.writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSnapshotBody)
	defer r.Body.Close()
	var snapshot game.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid snapshot payload")
		return
	}
	agentID := chi.URLParam(r, "agentID")
	resp, err := s.agents.Decide(r.Context(), agentID, snapshot)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if err := s.agents.DeleteSession(r.Context(), agentID); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID := chi.URLParam(r, "episodeID")
	episode, err := s.episodes.GetEpisode(r.Context(), episodeID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, episode)
}

func (s *Server) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	episodeID := chi.URLParam(r, "episodeID")
	transitions, err := s.episodes.ListTransitions(r.Context(), episodeID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if transitions == nil {
		transitions = []types.Transition{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"episode_id": episodeID, "transitions": transitions})
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidSnapshot),
		errors.Is(err, policy.ErrUnknownPolicy),
		errors.Is(err, types.ErrInvalidRequest):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}
