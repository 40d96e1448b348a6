// Package api implements the coaching HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arlow/fitcoach/internal/agent"
	"github.com/arlow/fitcoach/internal/buildinfo"
	"github.com/arlow/fitcoach/internal/coach"
	"github.com/arlow/fitcoach/internal/journal"
	"github.com/arlow/fitcoach/internal/llm"
	"github.com/arlow/fitcoach/internal/prompts"
	"github.com/arlow/fitcoach/internal/search"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	listen  string
	coach   *coach.Coach
	loop    *agent.Loop
	logger  *slog.Logger
	server  *http.Server
	journal *journal.Store
	voice   *journal.Transcriber
}

// NewServer creates a new API server.
func NewServer(listen string, c *coach.Coach, loop *agent.Loop, logger *slog.Logger) *Server {
	return &Server{
		listen: listen,
		coach:  c,
		loop:   loop,
		logger: logger,
	}
}

// SetJournalStore configures the store for journal API endpoints.
func (s *Server) SetJournalStore(js *journal.Store) {
	s.journal = js
}

// SetTranscriber configures voice note transcription.
func (s *Server) SetTranscriber(tr *journal.Transcriber) {
	s.voice = tr
}

// Handler builds the route table. Split out from Start so tests can
// drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/plan", s.handlePlan)
	mux.HandleFunc("POST /v1/workout", s.handleWorkout)
	mux.HandleFunc("POST /v1/summarize", s.handleSummarize)
	mux.HandleFunc("POST /v1/ask", s.handleAsk)
	mux.HandleFunc("POST /v1/agent", s.handleAgent)
	mux.HandleFunc("GET /v1/agent/ws", s.handleAgentWS)

	mux.HandleFunc("GET /v1/journal/entries", s.handleJournalList)
	mux.HandleFunc("POST /v1/journal/entries", s.handleJournalCreate)
	mux.HandleFunc("GET /v1/journal/entries/{id}", s.handleJournalGet)
	mux.HandleFunc("DELETE /v1/journal/entries/{id}", s.handleJournalDelete)
	mux.HandleFunc("POST /v1/journal/transcribe", s.handleTranscribe)

	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.listen,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // model calls can be slow
	}

	s.logger.Info("starting API server", "listen", s.listen)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "fitcoach",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

// PlanRequest asks for a full fitness plan.
type PlanRequest struct {
	Profile coach.Profile `json:"profile"`
}

// WorkoutRequest asks for an equipment-specific workout.
type WorkoutRequest struct {
	Profile   coach.Profile `json:"profile"`
	Equipment string        `json:"equipment"`
}

// SummarizeRequest asks for a summary of pasted text.
type SummarizeRequest struct {
	Text string `json:"text"`
}

// AskRequest asks a one-off fitness question in profile context.
type AskRequest struct {
	Profile coach.Profile `json:"profile"`
	Query   string        `json:"query"`
}

// TextResponse carries a generated text answer.
type TextResponse struct {
	Output string `json:"output"`
	HTML   string `json:"html,omitempty"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := s.coach.GeneratePlan(r.Context(), req.Profile)
	if err != nil {
		s.coachError(w, err)
		return
	}
	s.textResponse(w, r, out)
}

func (s *Server) handleWorkout(w http.ResponseWriter, r *http.Request) {
	var req WorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Equipment == "" {
		s.errorResponse(w, http.StatusBadRequest, "equipment is required")
		return
	}

	out, err := s.coach.PlanWorkout(r.Context(), req.Equipment, req.Profile)
	if err != nil {
		s.coachError(w, err)
		return
	}
	s.textResponse(w, r, out)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.errorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	out, err := s.coach.Summarize(r.Context(), req.Text)
	if err != nil {
		s.coachError(w, err)
		return
	}
	s.textResponse(w, r, out)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.errorResponse(w, http.StatusBadRequest, "query is required")
		return
	}

	out, err := s.coach.AnswerQuestion(r.Context(), req.Query, req.Profile)
	if err != nil {
		s.coachError(w, err)
		return
	}
	s.textResponse(w, r, out)
}

// AgentRequest asks the tool-using agent a question.
type AgentRequest struct {
	Input string `json:"input"`
}

// AgentResponse carries the agent's answer with its reasoning trace.
type AgentResponse struct {
	Answer string       `json:"answer"`
	Steps  []agent.Step `json:"steps"`
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	var req AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Input == "" {
		s.errorResponse(w, http.StatusBadRequest, "input is required")
		return
	}

	res, err := s.loop.Run(r.Context(), req.Input)
	if err != nil {
		s.coachError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AgentResponse{Answer: res.Answer, Steps: res.Steps}, s.logger)
}

func (s *Server) handleJournalList(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.errorResponse(w, http.StatusNotFound, "journal not enabled")
		return
	}

	entries, err := s.journal.List(0)
	if err != nil {
		s.logger.Error("journal list failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "journal error")
		return
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"entries": entries}, s.logger)
}

func (s *Server) handleJournalCreate(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.errorResponse(w, http.StatusNotFound, "journal not enabled")
		return
	}

	var entry journal.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.journal.Create(&entry)
	if err != nil {
		if entry.Validate() != nil {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("journal create failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "journal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, created, s.logger)
}

func (s *Server) handleJournalGet(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.errorResponse(w, http.StatusNotFound, "journal not enabled")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	entry, err := s.journal.Get(id)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "entry not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, entry, s.logger)
}

func (s *Server) handleJournalDelete(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.errorResponse(w, http.StatusNotFound, "journal not enabled")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	if err := s.journal.Delete(id); err != nil {
		s.errorResponse(w, http.StatusNotFound, "entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTranscribe accepts raw audio bytes and returns the transcript.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil || !s.voice.Configured() {
		s.errorResponse(w, http.StatusNotFound, "transcription not configured")
		return
	}

	text, err := s.voice.Transcribe(r.Context(), r.Body)
	if err != nil {
		s.logger.Error("transcription failed", "error", err)
		s.errorResponse(w, http.StatusBadGateway, "transcription failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"text": text}, s.logger)
}

// textResponse writes a generated answer, optionally rendered to HTML
// when the client asks for ?format=html.
func (s *Server) textResponse(w http.ResponseWriter, r *http.Request, out string) {
	resp := TextResponse{Output: out}
	if r.URL.Query().Get("format") == "html" {
		rendered, err := renderMarkdown(out)
		if err != nil {
			s.logger.Warn("markdown rendering failed", "error", err)
		} else {
			resp.HTML = rendered
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp, s.logger)
}

// coachError maps domain errors onto HTTP status codes: caller
// mistakes are 400s, upstream service failures are 502s.
func (s *Server) coachError(w http.ResponseWriter, err error) {
	var (
		missingVar *prompts.MissingVariableError
		unknown    *prompts.UnknownTaskError
		invocation *llm.InvocationError
		unavail    *search.Unavailable
		stepLimit  *agent.StepLimitError
	)

	switch {
	case errors.As(err, &missingVar), errors.As(err, &unknown):
		s.errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invocation), errors.As(err, &unavail):
		s.logger.Error("upstream service failed", "error", err)
		s.errorResponse(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &stepLimit):
		s.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	case isValidationError(err):
		s.errorResponse(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

func isValidationError(err error) bool {
	var profileErr *coach.ProfileError
	return errors.As(err, &profileErr)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}
