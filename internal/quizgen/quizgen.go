// Package quizgen runs the staff-facing AI authoring tasks. It drafts quiz
// questions for a lesson and restructures raw trainer notes into lesson
// content. Quiz drafts are stored inactive and go live only after staff
// review.
package quizgen

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ggproduction/onboarding/internal/ai"
	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/learner"
	"github.com/ggproduction/onboarding/internal/quiz"
)

const (
	DefaultQuestionCount = 5
	MaxQuestionCount     = 20
	DefaultPoints        = 10

	temperature = 0.7
	maxTokens   = 3000
)

var (
	// ErrBudgetExhausted is returned when the requester used up today's AI tokens.
	ErrBudgetExhausted = errors.New("daily AI token budget exhausted")
	// ErrInvalidOutput is returned when the model's answer cannot be used.
	ErrInvalidOutput = errors.New("invalid output from AI provider")
)

var (
	//go:embed schema.json
	schemaJSON string
	//go:embed content_schema.json
	contentSchemaJSON string
)

// Store is the persistence the generator needs.
type Store interface {
	GetLearner(ctx context.Context, id string) (learner.Learner, error)
	GetLesson(ctx context.Context, id string) (curriculum.Lesson, error)
	ListDays(ctx context.Context, activeOnly bool) ([]curriculum.Day, error)
	InsertQuizzes(ctx context.Context, items []quiz.Item) ([]quiz.Item, error)
	SetQuizActive(ctx context.Context, id string, active bool) error
	ReviseLessonContent(ctx context.Context, lessonID string, r curriculum.Revision) (curriculum.Lesson, error)
}

// Request asks for questions about one lesson.
type Request struct {
	LessonID      string              `json:"lesson_id"`
	QuestionCount int                 `json:"question_count"`
	QuestionTypes []quiz.QuestionType `json:"question_types"`
}

// Result lists the stored drafts.
type Result struct {
	Quizzes  []quiz.Item `json:"quizzes"`
	Count    int         `json:"count"`
	Provider string      `json:"provider,omitempty"`
	Model    string      `json:"model,omitempty"`
}

// Generator drafts quizzes through an AI completer.
type Generator struct {
	store  Store
	ai     ai.Completer
	budget ai.Budget
	model  string
	now    func() time.Time

	quizSchema    *gojsonschema.Schema
	contentSchema *gojsonschema.Schema
}

// Option configures a Generator.
type Option func(*Generator)

// WithBudget enforces a per-learner daily token budget.
func WithBudget(b ai.Budget) Option {
	return func(g *Generator) {
		g.budget = b
	}
}

// WithModel pins the model requested from the provider.
func WithModel(model string) Option {
	return func(g *Generator) {
		g.model = model
	}
}

// New creates a Generator.
func New(store Store, completer ai.Completer, opts ...Option) (*Generator, error) {
	if store == nil || completer == nil {
		return nil, fmt.Errorf("store and completer are required")
	}
	quizSchema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile quiz schema: %w", err)
	}
	contentSchema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(contentSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile content schema: %w", err)
	}
	g := &Generator{store: store, ai: completer, now: time.Now, quizSchema: quizSchema, contentSchema: contentSchema}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate drafts questions for the requested lesson on behalf of
// requesterID, who must be staff.
func (g *Generator) Generate(ctx context.Context, requesterID string, req Request) (Result, error) {
	if err := g.requireStaff(ctx, requesterID); err != nil {
		return Result{}, err
	}
	req, err := normalizeRequest(req)
	if err != nil {
		return Result{}, err
	}

	lesson, err := g.store.GetLesson(ctx, req.LessonID)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(lesson.Content) == "" {
		return Result{}, apperr.InvalidInput("lesson_id", "lesson has no content to generate quizzes from")
	}
	day, err := g.lessonDay(ctx, lesson)
	if err != nil {
		return Result{}, err
	}

	if err := g.allow(ctx, requesterID); err != nil {
		return Result{}, err
	}

	resp, err := g.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(day, lesson, req)},
		},
		Model:       g.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Task:        ai.TaskQuizGeneration,
		JSONMode:    true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("generate quizzes: %w", err)
	}
	g.record(ctx, requesterID, resp)

	drafts, err := g.parse(resp.Content, req.LessonID)
	if err != nil {
		return Result{}, err
	}
	if len(drafts) > req.QuestionCount {
		drafts = drafts[:req.QuestionCount]
	}

	saved, err := g.store.InsertQuizzes(ctx, drafts)
	if err != nil {
		return Result{}, fmt.Errorf("store drafts: %w", err)
	}

	slog.Info("quiz drafts generated",
		"lesson_id", req.LessonID,
		"requested_by", requesterID,
		"count", len(saved),
		"provider", resp.Provider,
		"model", resp.Model,
		"tokens", resp.TotalTokens(),
	)
	return Result{Quizzes: saved, Count: len(saved), Provider: resp.Provider, Model: resp.Model}, nil
}

// Activate publishes or withdraws a reviewed quiz.
func (g *Generator) Activate(ctx context.Context, requesterID, quizID string, active bool) error {
	if err := g.requireStaff(ctx, requesterID); err != nil {
		return err
	}
	if strings.TrimSpace(quizID) == "" {
		return apperr.InvalidInput("quiz_id", "is required")
	}
	if err := g.store.SetQuizActive(ctx, quizID, active); err != nil {
		return err
	}
	slog.Info("quiz activation changed", "quiz_id", quizID, "active", active, "requested_by", requesterID)
	return nil
}

func (g *Generator) allow(ctx context.Context, requesterID string) error {
	if g.budget == nil {
		return nil
	}
	ok, err := g.budget.Allow(ctx, requesterID)
	if err != nil {
		return fmt.Errorf("check AI budget: %w", err)
	}
	if !ok {
		return ErrBudgetExhausted
	}
	return nil
}

func (g *Generator) record(ctx context.Context, requesterID string, resp ai.CompletionResponse) {
	if g.budget == nil {
		return
	}
	if err := g.budget.Record(ctx, requesterID, resp.TotalTokens()); err != nil {
		slog.Warn("failed to record AI token usage", "learner_id", requesterID, "error", err)
	}
}

func (g *Generator) requireStaff(ctx context.Context, requesterID string) error {
	l, err := g.store.GetLearner(ctx, requesterID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Forbidden("only admins and trainers can use AI authoring")
	}
	if err != nil {
		return err
	}
	if !l.Role.IsStaff() {
		return apperr.Forbidden("only admins and trainers can use AI authoring")
	}
	return nil
}

func (g *Generator) lessonDay(ctx context.Context, lesson curriculum.Lesson) (curriculum.Day, error) {
	days, err := g.store.ListDays(ctx, false)
	if err != nil {
		return curriculum.Day{}, err
	}
	for _, d := range days {
		if d.ID == lesson.DayID {
			return d, nil
		}
	}
	return curriculum.Day{}, apperr.DataIntegrity("lesson %s references missing day %s", lesson.ID, lesson.DayID)
}

func normalizeRequest(req Request) (Request, error) {
	if strings.TrimSpace(req.LessonID) == "" {
		return req, apperr.InvalidInput("lesson_id", "is required")
	}
	if req.QuestionCount == 0 {
		req.QuestionCount = DefaultQuestionCount
	}
	if req.QuestionCount < 1 || req.QuestionCount > MaxQuestionCount {
		return req, apperr.InvalidInput("question_count", fmt.Sprintf("must be between 1 and %d", MaxQuestionCount))
	}
	if len(req.QuestionTypes) == 0 {
		req.QuestionTypes = []quiz.QuestionType{quiz.MultipleChoice, quiz.TrueFalse}
	}
	for _, t := range req.QuestionTypes {
		if !t.Valid() {
			return req, apperr.InvalidInput("question_types", fmt.Sprintf("unknown question type %q", t))
		}
	}
	return req, nil
}

type generated struct {
	Quizzes []struct {
		Question      string            `json:"question"`
		QuestionType  quiz.QuestionType `json:"question_type"`
		Options       []quiz.Option     `json:"options"`
		CorrectAnswer string            `json:"correct_answer"`
		Explanation   string            `json:"explanation"`
		Points        int               `json:"points"`
	} `json:"quizzes"`
}

// parse validates the model output and turns it into inactive drafts.
// Questions whose answer does not fit their type are dropped.
func (g *Generator) parse(content, lessonID string) ([]quiz.Item, error) {
	raw, err := validate(g.quizSchema, content)
	if err != nil {
		return nil, err
	}

	var out generated
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	drafts := make([]quiz.Item, 0, len(out.Quizzes))
	for _, q := range out.Quizzes {
		item := quiz.Item{
			LessonID:      lessonID,
			Question:      strings.TrimSpace(q.Question),
			Type:          q.QuestionType,
			Options:       q.Options,
			CorrectAnswer: strings.TrimSpace(q.CorrectAnswer),
			Explanation:   strings.TrimSpace(q.Explanation),
			Points:        q.Points,
			OrderIndex:    len(drafts) + 1,
		}
		if item.Points <= 0 {
			item.Points = DefaultPoints
		}
		if item.Type == quiz.ShortAnswer {
			item.Options = nil
		}
		item, reason := checkAnswer(item)
		if reason != "" {
			slog.Warn("dropping generated question", "lesson_id", lessonID, "reason", reason, "question", item.Question)
			continue
		}
		drafts = append(drafts, item)
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: no usable questions", ErrInvalidOutput)
	}
	return drafts, nil
}

// validate strips a code fence from the model output and checks it against
// schema.
func validate(schema *gojsonschema.Schema, content string) ([]byte, error) {
	raw := []byte(StripCodeFence(content))
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidOutput, strings.Join(msgs, "; "))
	}
	return raw, nil
}

// checkAnswer matches the answer to its question type the way grading does,
// ignoring case, and stores it in canonical form.
func checkAnswer(q quiz.Item) (quiz.Item, string) {
	switch q.Type {
	case quiz.MultipleChoice:
		if len(q.Options) < 2 {
			return q, "multiple choice needs at least two options"
		}
		i := slices.IndexFunc(q.Options, func(o quiz.Option) bool { return strings.EqualFold(o.ID, q.CorrectAnswer) })
		if i < 0 {
			return q, "correct answer is not an option id"
		}
		q.CorrectAnswer = q.Options[i].ID
	case quiz.TrueFalse:
		a := strings.ToLower(q.CorrectAnswer)
		if a != "true" && a != "false" {
			return q, "true/false answer must be true or false"
		}
		q.CorrectAnswer = a
	}
	return q, ""
}

// StripCodeFence removes a surrounding markdown code fence, with or without
// a language tag.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
