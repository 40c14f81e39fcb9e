package quizgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ggproduction/onboarding/internal/ai"
	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/curriculum"
)

const (
	MaxRawContentRunes = 20000

	contentTemperature = 0.3
	contentMaxTokens   = 4000
)

// ContentRequest asks for raw notes to be restructured. With a LessonID the
// result replaces that lesson's body.
type ContentRequest struct {
	RawContent string `json:"raw_content"`
	LessonID   string `json:"lesson_id,omitempty"`
}

// ProcessedContent is the restructured lesson.
type ProcessedContent struct {
	Content         string                `json:"content"`
	Objectives      []string              `json:"learning_objectives"`
	KeyConcepts     []string              `json:"key_concepts"`
	Difficulty      curriculum.Difficulty `json:"difficulty_level"`
	DurationMinutes int                   `json:"estimated_duration_minutes"`
	Summary         string                `json:"summary,omitempty"`
}

// ContentResult reports a processing run.
type ContentResult struct {
	Data            ProcessedContent   `json:"data"`
	Lesson          *curriculum.Lesson `json:"lesson,omitempty"`
	OriginalLength  int                `json:"original_length"`
	ProcessedLength int                `json:"processed_length"`
	Provider        string             `json:"provider,omitempty"`
	Model           string             `json:"model,omitempty"`
}

// ContentStatus describes whether a lesson has been processed.
type ContentStatus struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	AIProcessed bool                  `json:"ai_processed"`
	ProcessedAt string                `json:"ai_processed_at,omitempty"`
	Difficulty  curriculum.Difficulty `json:"difficulty_level,omitempty"`
	Objectives  []string              `json:"learning_objectives"`
	KeyConcepts []string              `json:"key_concepts"`
}

// ProcessContent restructures raw notes with the content review model on
// behalf of requesterID, who must be staff.
func (g *Generator) ProcessContent(ctx context.Context, requesterID string, req ContentRequest) (ContentResult, error) {
	if err := g.requireStaff(ctx, requesterID); err != nil {
		return ContentResult{}, err
	}
	raw := strings.TrimSpace(req.RawContent)
	if raw == "" {
		return ContentResult{}, apperr.InvalidInput("raw_content", "is required")
	}
	if utf8.RuneCountInString(raw) > MaxRawContentRunes {
		return ContentResult{}, apperr.InvalidInput("raw_content", fmt.Sprintf("must be at most %d characters", MaxRawContentRunes))
	}

	var lesson *curriculum.Lesson
	if req.LessonID != "" {
		l, err := g.store.GetLesson(ctx, req.LessonID)
		if err != nil {
			return ContentResult{}, err
		}
		lesson = &l
	}

	if err := g.allow(ctx, requesterID); err != nil {
		return ContentResult{}, err
	}
	resp, err := g.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: contentSystemPrompt},
			{Role: "user", Content: buildContentPrompt(raw, lesson)},
		},
		Model:       g.model,
		MaxTokens:   contentMaxTokens,
		Temperature: contentTemperature,
		Task:        ai.TaskContentReview,
		JSONMode:    true,
	})
	if err != nil {
		return ContentResult{}, fmt.Errorf("process content: %w", err)
	}
	g.record(ctx, requesterID, resp)

	data, err := g.parseContent(resp.Content)
	if err != nil {
		return ContentResult{}, err
	}

	result := ContentResult{
		Data:            data,
		OriginalLength:  utf8.RuneCountInString(raw),
		ProcessedLength: utf8.RuneCountInString(data.Content),
		Provider:        resp.Provider,
		Model:           resp.Model,
	}
	if lesson != nil {
		revised, err := g.store.ReviseLessonContent(ctx, lesson.ID, curriculum.Revision{
			RawContent:      raw,
			Content:         data.Content,
			Objectives:      data.Objectives,
			KeyConcepts:     data.KeyConcepts,
			Difficulty:      data.Difficulty,
			DurationMinutes: data.DurationMinutes,
			RevisedAt:       g.now().UTC(),
		})
		if err != nil {
			return ContentResult{}, fmt.Errorf("store processed content: %w", err)
		}
		result.Lesson = &revised
	}

	slog.Info("lesson content processed",
		"lesson_id", req.LessonID,
		"requested_by", requesterID,
		"original_length", result.OriginalLength,
		"processed_length", result.ProcessedLength,
		"provider", resp.Provider,
		"model", resp.Model,
		"tokens", resp.TotalTokens(),
	)
	return result, nil
}

// ContentStatus reports the processing state of a lesson.
func (g *Generator) ContentStatus(ctx context.Context, requesterID, lessonID string) (ContentStatus, error) {
	if err := g.requireStaff(ctx, requesterID); err != nil {
		return ContentStatus{}, err
	}
	if strings.TrimSpace(lessonID) == "" {
		return ContentStatus{}, apperr.InvalidInput("lesson_id", "is required")
	}
	l, err := g.store.GetLesson(ctx, lessonID)
	if err != nil {
		return ContentStatus{}, err
	}
	st := ContentStatus{
		ID:          l.ID,
		Title:       l.Title,
		AIProcessed: l.ProcessedAt != nil,
		Difficulty:  l.Difficulty,
		Objectives:  l.Objectives,
		KeyConcepts: l.KeyConcepts,
	}
	if l.ProcessedAt != nil {
		st.ProcessedAt = l.ProcessedAt.UTC().Format(time.RFC3339)
	}
	if st.Objectives == nil {
		st.Objectives = []string{}
	}
	if st.KeyConcepts == nil {
		st.KeyConcepts = []string{}
	}
	return st, nil
}

func (g *Generator) parseContent(content string) (ProcessedContent, error) {
	raw, err := validate(g.contentSchema, content)
	if err != nil {
		return ProcessedContent{}, err
	}
	var out ProcessedContent
	if err := json.Unmarshal(raw, &out); err != nil {
		return ProcessedContent{}, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	out.Content = strings.TrimSpace(out.Content)
	out.Summary = strings.TrimSpace(out.Summary)
	return out, nil
}
