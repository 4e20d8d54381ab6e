// Package httpapi is the thin external HTTP surface over the core
// pipeline (spec.md §1: "Transport ... stays an external collaborator").
// It never implements pipeline logic itself — every route either reads
// durable state directly or hands a turn to *pipeline.Pipeline and
// relays the result.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Frankh1982/projectos/internal/adapters"
	"github.com/Frankh1982/projectos/internal/pipeline"
	"github.com/Frankh1982/projectos/internal/store"
)

type Server struct {
	pipe  *pipeline.Pipeline
	store *store.Store
	log   *zap.SugaredLogger
}

func New(pipe *pipeline.Pipeline, st *store.Store, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{pipe: pipe, store: st, log: log}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/turn", s.handleTurn)
		r.Get("/projects/{user}/{project}/manifest", s.handleManifest)
		r.Get("/projects/{user}/{project}/pulse", s.handlePulse)
	})

	return r
}

type turnRequest struct {
	User                 string            `json:"user"`
	Project              string            `json:"project"`
	Message              string            `json:"message"`
	RecentTurns          []turnMessage     `json:"recent_turns"`
	LastAssistantOutput  string            `json:"last_assistant_output"`
	TurnIndex            int               `json:"turn_index"`
}

type turnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type turnResponse struct {
	Answer     string `json:"answer"`
	TraceID    string `json:"trace_id"`
	Overridden bool   `json:"overridden"`
	SafetyNote string `json:"safety_note,omitempty"`
}

// handleTurn is the core's one real entry point: it decodes a chat turn,
// hands it to the pipeline unchanged, and relays the result. No pipeline
// logic lives here.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.User == "" || req.Project == "" {
		http.Error(w, "user and project are required", http.StatusBadRequest)
		return
	}

	recent := make([]adapters.Message, 0, len(req.RecentTurns))
	for _, m := range req.RecentTurns {
		recent = append(recent, adapters.Message{Role: adapters.Role(m.Role), Content: m.Content})
	}

	out, err := s.pipe.Run(r.Context(), pipeline.TurnInput{
		User:                 req.User,
		Project:              req.Project,
		Message:              req.Message,
		RecentTurns:          recent,
		LastAssistantOutput:  req.LastAssistantOutput,
		TurnIndex:            req.TurnIndex,
	})
	if err != nil {
		s.log.Warnw("turn failed", "user", req.User, "project", req.Project, "err", err)
		http.Error(w, "turn failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, turnResponse{
		Answer:     out.Answer,
		TraceID:    out.TraceID,
		Overridden: out.Overridden,
		SafetyNote: string(out.SafetyNote),
	})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	proj := chi.URLParam(r, "project")
	manifest, err := s.store.LoadManifest(user, proj)
	if err != nil {
		s.log.Warnw("load manifest failed", "user", user, "project", proj, "err", err)
		http.Error(w, "manifest unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, manifest)
}

func (s *Server) handlePulse(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	proj := chi.URLParam(r, "project")
	pulse, err := s.store.BuildTruthBoundPulse(user, proj)
	if err != nil {
		s.log.Warnw("build pulse failed", "user", user, "project", proj, "err", err)
		http.Error(w, "pulse unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pulse": pulse})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
