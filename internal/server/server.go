package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// Server exposes the read-only API surface over the ingested records:
// health/stats, category search, and on-demand reply suggestion.
type Server struct {
	store        core.EmailStore
	replies      *core.ReplyService
	pipeline     *core.IngestionPipeline
	defaultLimit int
	logger       *zap.Logger
	http         *http.Server
}

// New creates a new API server. pipeline may be nil when ingestion is
// disabled; stats then report zero. defaultLimit bounds searches when
// the request carries no limit.
func New(store core.EmailStore, replies *core.ReplyService, pipeline *core.IngestionPipeline, listenAddr string, defaultLimit int, logger *zap.Logger) *Server {
	s := &Server{
		store:        store,
		replies:      replies,
		pipeline:     pipeline,
		defaultLimit: defaultLimit,
		logger:       logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHealth)
	r.Get("/emails", s.handleListEmails)
	r.Post("/suggest-reply", s.handleSuggestReply)

	s.http = &http.Server{
		Addr:         listenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("API server listening", zap.String("address", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type healthResponse struct {
	Status    string             `json:"status"`
	Ingestion string             `json:"ingestion"`
	Stats     core.PipelineStats `json:"stats"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Ingestion: "disabled"}
	if s.pipeline != nil {
		resp.Ingestion = "enabled"
		resp.Stats = s.pipeline.Stats()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type emailResponse struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	Sender        string    `json:"sender"`
	Body          string    `json:"body"`
	Category      string    `json:"category"`
	CategoryLower string    `json:"category_lower"`
	ReceivedAt    time.Time `json:"received_at"`
}

func (s *Server) handleListEmails(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	limit := s.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	// Make writes from the ingestion loop visible before reading.
	if err := s.store.Refresh(r.Context()); err != nil {
		s.logger.Warn("Store refresh failed", zap.Error(err))
	}

	records, err := s.store.SearchByCategory(r.Context(), category, limit)
	if err != nil {
		s.logger.Error("Failed to search emails", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to fetch emails")
		return
	}

	resp := make([]emailResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, emailResponse{
			ID:            rec.ID,
			Subject:       rec.Subject,
			Sender:        rec.Sender,
			Body:          rec.Body,
			Category:      string(rec.Category),
			CategoryLower: rec.CategoryNormalized(),
			ReceivedAt:    rec.ReceivedAt,
		})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type suggestReplyRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type suggestReplyResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleSuggestReply(w http.ResponseWriter, r *http.Request) {
	var req suggestReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Body == "" {
		s.respondError(w, http.StatusBadRequest, "body is required")
		return
	}

	reply, err := s.replies.SuggestReply(r.Context(), req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, core.ErrLLMDisabled) {
			s.respondError(w, http.StatusServiceUnavailable, "reply suggestion is not configured")
			return
		}
		s.logger.Error("Failed to generate reply", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to generate reply")
		return
	}
	s.respondJSON(w, http.StatusOK, suggestReplyResponse{Reply: reply})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
