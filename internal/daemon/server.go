package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/comprende/internal/cloze"
	"github.com/felixgeelhaar/comprende/internal/config"
	"github.com/felixgeelhaar/comprende/internal/domain"
	"github.com/felixgeelhaar/comprende/internal/jobs"
	"github.com/felixgeelhaar/comprende/internal/transcript"
)

// maxBodyBytes bounds request bodies; transcripts are the largest payload
const maxBodyBytes = 8 << 20

// Server represents the comprende daemon HTTP server
type Server struct {
	cfg     *config.LocalConfig
	server  *http.Server
	router  *http.ServeMux
	service *jobs.Service
	limiter ratelimit.RateLimiter
	version string
	started time.Time
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config  *config.LocalConfig
	Service *jobs.Service
	Version string
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, errors.New("daemon: config is required")
	}
	if cfg.Service == nil {
		return nil, errors.New("daemon: service is required")
	}

	s := &Server{
		cfg:     cfg.Config,
		router:  http.NewServeMux(),
		service: cfg.Service,
		limiter: newClientLimiter(cfg.Config.Daemon.RequestsPerMinute),
		version: cfg.Version,
		started: time.Now(),
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.cfg.Daemon.Bind, s.cfg.Daemon.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return correlationIDMiddleware(recoveryMiddleware(loggingMiddleware(maxBodyMiddleware(maxBodyBytes)(s.router))))
}

func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)
	s.router.HandleFunc("GET /v1/tiers", s.handleTiers)

	// Transcripts
	s.router.Handle("POST /v1/videos/{video}/segments", s.rateLimited(s.handleImportSegments))
	s.router.HandleFunc("GET /v1/videos/{video}/segments", s.handleListSegments)

	// Exercise generation
	s.router.Handle("POST /v1/videos/{video}/exercises", s.rateLimited(s.handleGenerate))
	s.router.HandleFunc("GET /v1/videos/{video}/exercises", s.handleListExercises)
	s.router.HandleFunc("GET /v1/videos/{video}/progress", s.handleProgress)
	s.router.HandleFunc("GET /v1/jobs", s.handleListJobs)
	s.router.HandleFunc("GET /v1/jobs/{id}", s.handleGetJob)

	// Practice
	s.router.HandleFunc("POST /v1/exercises/{id}/check", s.handleCheck)
	s.router.Handle("POST /v1/preview", s.rateLimited(s.handlePreview))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting comprende daemon",
		"addr", s.server.Addr,
		"annotator", s.service.Annotator().Name(),
		"storage", s.cfg.Storage.Driver,
		"queue", s.cfg.Queue.Enabled,
	)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, then waits for inline jobs
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")
	err := s.server.Shutdown(ctx)
	s.service.Close()
	if s.limiter != nil {
		if cerr := s.limiter.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":         "running",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"annotator":      s.service.Annotator().Name(),
		"storage":        s.cfg.Storage.Driver,
		"queue_enabled":  s.cfg.Queue.Enabled,
		"default_tier":   s.cfg.Exercises.DefaultTier,
		"sample_ratio":   s.cfg.Exercises.SampleRatio,
	})
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	profiles := domain.Profiles()
	tiers := make([]domain.ProfileSummary, 0, len(profiles))
	for _, p := range profiles {
		tiers = append(tiers, p.Summary())
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"default": s.cfg.Exercises.DefaultTier,
		"tiers":   tiers,
	})
}

// Transcript handlers

func (s *Server) handleImportSegments(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("video")

	t, err := transcript.Parse(r.Body)
	if err != nil {
		s.serviceError(w, "invalid transcript", err)
		return
	}
	if err := s.service.ImportTranscript(r.Context(), videoID, t.Segments); err != nil {
		s.serviceError(w, "failed to import transcript", err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"video_id": videoID,
		"language": t.Language,
		"segments": len(t.Segments),
	})
}

func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("video")

	segs, err := s.service.Segments(r.Context(), videoID)
	if err != nil {
		s.serviceError(w, "failed to list segments", err)
		return
	}
	if segs == nil {
		segs = []domain.Segment{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"video_id": videoID,
		"segments": segs,
	})
}

// Generation handlers

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req jobs.SubmitRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}
	req.VideoID = r.PathValue("video")
	if req.Difficulty == "" {
		req.Difficulty = s.cfg.Exercises.DefaultTier
	}

	job, err := s.service.Submit(r.Context(), req)
	if err != nil {
		s.serviceError(w, "failed to submit job", err)
		return
	}

	w.Header().Set("Location", "/v1/jobs/"+job.ID.String())
	s.jsonResponse(w, http.StatusAccepted, job)
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("video")

	exs, err := s.service.Exercises(r.Context(), videoID)
	if err != nil {
		s.serviceError(w, "failed to list exercises", err)
		return
	}
	if exs == nil {
		exs = []*domain.Exercise{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"video_id":  videoID,
		"count":     len(exs),
		"exercises": exs,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("video")

	sum, err := s.service.Progress(r.Context(), videoID)
	if err != nil {
		s.serviceError(w, "failed to load progress", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"video_id": videoID,
		"progress": sum,
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.Jobs(r.Context(), r.URL.Query().Get("video"))
	if err != nil {
		s.serviceError(w, "failed to list jobs", err)
		return
	}
	if list == nil {
		list = []*domain.Job{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": list})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid job id", err)
		return
	}

	job, err := s.service.Job(r.Context(), id)
	if err != nil {
		s.serviceError(w, "failed to load job", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// Practice handlers

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Responses map[string]string `json:"responses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := s.service.Check(r.Context(), r.PathValue("id"), req.Responses)
	if err != nil {
		s.serviceError(w, "failed to check answers", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text       string  `json:"text"`
		Difficulty string  `json:"difficulty"`
		Seed       *uint64 `json:"seed,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = s.cfg.Exercises.DefaultTier
	}
	var seed uint64
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		seed = uint64(time.Now().UnixNano())
	}

	ex, err := s.service.Preview(r.Context(), req.Text, req.Difficulty, seed)
	if err != nil {
		s.serviceError(w, "failed to build exercise", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"seed":     seed,
		"exercise": ex,
	})
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}

// serviceError maps domain errors onto HTTP statuses
func (s *Server) serviceError(w http.ResponseWriter, message string, err error) {
	s.jsonError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidProfile),
		errors.Is(err, domain.ErrInvalidSampleRatio),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNoSegmentData):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrExerciseNotFound),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cloze.ErrNoCandidates):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAnnotationUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
