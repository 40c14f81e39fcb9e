// Package api exposes the onboarding service over HTTP.
package api

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ggproduction/onboarding/internal/auth"
	"github.com/ggproduction/onboarding/internal/content"
	"github.com/ggproduction/onboarding/internal/learner"
	"github.com/ggproduction/onboarding/internal/learning"
	"github.com/ggproduction/onboarding/internal/quizgen"
	"github.com/ggproduction/onboarding/internal/realtime"
)

const checkTimeout = 2 * time.Second

// Checker reports whether a dependency is reachable.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Config wires the server. Quizzes and Hub are optional; their routes answer
// 503 when unset.
type Config struct {
	Learning *learning.Service
	Content  *content.Library
	Quizzes  *quizgen.Generator
	Hub      *realtime.Hub
	Verifier *auth.Verifier
	Checks   map[string]Checker
}

// Server routes requests to the learning service.
type Server struct {
	learning *learning.Service
	content  *content.Library
	quizzes  *quizgen.Generator
	hub      *realtime.Hub
	verifier *auth.Verifier
	checks   map[string]Checker
	mux      *http.ServeMux
}

// NewServer creates a server from cfg.
func NewServer(cfg Config) (*Server, error) {
	switch {
	case cfg.Learning == nil:
		return nil, errors.New("api: learning service is required")
	case cfg.Content == nil:
		return nil, errors.New("api: content library is required")
	case cfg.Verifier == nil:
		return nil, errors.New("api: token verifier is required")
	}
	s := &Server{
		learning: cfg.Learning,
		content:  cfg.Content,
		quizzes:  cfg.Quizzes,
		hub:      cfg.Hub,
		verifier: cfg.Verifier,
		checks:   cfg.Checks,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.HandleFunc("GET /api/stats/public", s.handlePublicStats)

	s.mux.Handle("GET /api/curriculum", s.authed(s.handleCurriculum))
	s.mux.Handle("GET /api/dashboard", s.authed(s.handleDashboard))
	s.mux.Handle("GET /api/lessons/{lessonID}", s.authed(s.handleLesson))
	s.mux.Handle("GET /api/progress", s.authed(s.handleProgressHistory))
	s.mux.Handle("POST /api/progress", s.authed(s.handleUpdateProgress))
	s.mux.Handle("GET /api/quiz/{lessonID}", s.authed(s.handleLessonQuizzes))
	s.mux.Handle("POST /api/quiz/submit", s.authed(s.handleSubmitQuiz))
	s.mux.Handle("GET /api/leaderboard", s.authed(s.handleLeaderboard))
	s.mux.Handle("GET /ws/leaderboard", s.authed(s.handleLeaderboardStream))

	s.mux.Handle("GET /api/content", s.authed(s.handleListContent))
	s.mux.Handle("POST /api/content", s.authed(s.handleCreateContent))

	s.mux.Handle("POST /api/admin/process-content", s.authed(s.handleProcessContent))
	s.mux.Handle("GET /api/admin/process-content", s.authed(s.handleContentStatus))
	s.mux.Handle("POST /api/admin/generate-quiz", s.authed(s.handleGenerateQuiz))
	s.mux.Handle("POST /api/admin/quizzes/{quizID}/activate", s.authed(s.handleActivateQuiz))
	s.mux.Handle("GET /api/admin/reports/progress.xlsx", s.authed(s.handleProgressReport))
}

// ServeHTTP logs every request at debug level.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	slog.Debug("http request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

type authedHandler func(w http.ResponseWriter, r *http.Request, id auth.Identity)

// authed verifies the bearer token, makes sure the caller has a learner
// profile and hands the identity to h.
func (s *Server) authed(h authedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.TokenFromRequest(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authorization required"})
			return
		}
		id, err := s.verifier.Verify(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeError(w, r, err)
			return
		}
		if _, err := s.learning.EnsureLearner(r.Context(), learner.Learner{
			ID:       id.LearnerID,
			Email:    id.Email,
			FullName: id.FullName,
			Role:     id.Role,
		}); err != nil {
			writeError(w, r, err)
			return
		}
		h(w, r.WithContext(auth.WithIdentity(r.Context(), id)), id)
	})
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	failed := make(map[string]string)
	for name, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusRecorder captures the response status. It passes hijacking through
// so websocket upgrades keep working.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
