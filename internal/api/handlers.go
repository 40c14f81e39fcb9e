package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/auth"
	"github.com/ggproduction/onboarding/internal/content"
	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/learning"
	"github.com/ggproduction/onboarding/internal/quizgen"
	"github.com/ggproduction/onboarding/internal/report"
)

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	view, err := s.learning.Curriculum(r.Context(), id.LearnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	dash, err := s.learning.Dashboard(r.Context(), id.LearnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	detail, err := s.learning.ViewLesson(r.Context(), id.LearnerID, r.PathValue("lessonID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleProgressHistory(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	h, err := s.learning.ProgressHistory(r.Context(), id.LearnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var in learning.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.learning.UpdateProgress(r.Context(), id.LearnerID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLessonQuizzes(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	set, err := s.learning.LessonQuizzes(r.Context(), id.LearnerID, r.PathValue("lessonID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

type submitRequest struct {
	QuizID     string          `json:"quiz_id"`
	UserAnswer json.RawMessage `json:"user_answer"`
}

// answer accepts strings as they are and other JSON scalars by their literal
// text, so true/false questions may be answered with a JSON boolean.
func (req submitRequest) answer() (string, error) {
	raw := bytes.TrimSpace(req.UserAnswer)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", apperr.InvalidInput("user_answer", "is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	switch raw[0] {
	case '{', '[':
		return "", apperr.InvalidInput("user_answer", "must be a string, number or boolean")
	}
	return string(raw), nil
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	answer, err := req.answer()
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.learning.SubmitQuiz(r.Context(), id.LearnerID, req.QuizID, answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	board, err := s.learning.Leaderboard(r.Context(), id.LearnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) handleLeaderboardStream(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if s.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "live leaderboard is not enabled"})
		return
	}
	s.hub.Serve(w, r, id.LearnerID)
}

// handlePublicStats never fails: the landing page shows defaults instead.
func (s *Server) handlePublicStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.learning.PublicStats(r.Context())
	if err != nil {
		slog.Error("public stats failed", "error", err)
		stats = learning.DefaultPublicStats()
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.content.List(r.Context(), id.LearnerID, content.Query{Type: q.Get("type"), Page: page, Limit: limit})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateContent(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var in content.NewLesson
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	lesson, err := s.content.Create(r.Context(), id.LearnerID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lesson)
}

// queryInt parses an optional integer query parameter; empty means zero.
func queryInt(v, field string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.InvalidInput(field, "must be an integer")
	}
	return n, nil
}

type processMetadata struct {
	OriginalLength  int    `json:"original_length"`
	ProcessedLength int    `json:"processed_length"`
	Provider        string `json:"provider,omitempty"`
	Model           string `json:"model,omitempty"`
}

type processResponse struct {
	Success  bool                     `json:"success"`
	Data     quizgen.ProcessedContent `json:"data"`
	Lesson   *curriculum.Lesson       `json:"lesson,omitempty"`
	Metadata processMetadata          `json:"metadata"`
}

func (s *Server) handleProcessContent(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if s.quizzes == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "content processing is not enabled"})
		return
	}
	var req quizgen.ContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.quizzes.ProcessContent(r.Context(), id.LearnerID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := processResponse{
		Success: true,
		Data:    res.Data,
		Lesson:  res.Lesson,
		Metadata: processMetadata{
			OriginalLength:  res.OriginalLength,
			ProcessedLength: res.ProcessedLength,
			Provider:        res.Provider,
			Model:           res.Model,
		},
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleContentStatus(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if s.quizzes == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "content processing is not enabled"})
		return
	}
	st, err := s.quizzes.ContentStatus(r.Context(), id.LearnerID, r.URL.Query().Get("lesson_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type generateResponse struct {
	quizgen.Result
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if s.quizzes == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "quiz generation is not enabled"})
		return
	}
	var req quizgen.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.quizzes.Generate(r.Context(), id.LearnerID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Result:  res,
		Success: true,
		Message: fmt.Sprintf("Generated %d quiz questions. Review and activate them.", res.Count),
	})
}

type activateRequest struct {
	Active *bool `json:"is_active"`
}

func (s *Server) handleActivateQuiz(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if s.quizzes == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "quiz generation is not enabled"})
		return
	}
	req := activateRequest{}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	active := req.Active == nil || *req.Active

	quizID := r.PathValue("quizID")
	if err := s.quizzes.Activate(r.Context(), id.LearnerID, quizID, active); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz_id": quizID, "is_active": active})
}

func (s *Server) handleProgressReport(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	rows, err := s.learning.ProgressReport(r.Context(), id.LearnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteProgressWorkbook(&buf, rows); err != nil {
		writeError(w, r, err)
		return
	}

	name := fmt.Sprintf("progress-%s.xlsx", time.Now().UTC().Format(time.DateOnly))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write report", "error", err)
	}
}
