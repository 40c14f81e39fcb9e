// Package content lets staff browse and author curriculum lessons.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/learner"
)

const (
	DefaultPage     = 1
	DefaultLimit    = 10
	MaxLimit        = 100
	DefaultDuration = 30
	DefaultPoints   = 100

	summaryRunes = 150
)

// Store is the persistence the library needs.
type Store interface {
	GetLearner(ctx context.Context, id string) (learner.Learner, error)
	ListDays(ctx context.Context, activeOnly bool) ([]curriculum.Day, error)
	ListLessons(ctx context.Context, dayID string) ([]curriculum.Lesson, error)
	InsertLesson(ctx context.Context, l curriculum.Lesson) (curriculum.Lesson, error)
}

// Query filters and pages the lesson list. Zero values take the defaults.
type Query struct {
	Type  string
	Page  int
	Limit int
}

// Item is a lesson as listed for authors.
type Item struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Slug             string                `json:"slug"`
	Description      string                `json:"description"`
	Type             curriculum.LessonType `json:"type"`
	DayNumber        int                   `json:"day_number"`
	OrderIndex       int                   `json:"order_index"`
	Difficulty       curriculum.Difficulty `json:"difficulty_level,omitempty"`
	EstimatedMinutes int                   `json:"estimatedMinutes"`
	PointsReward     int                   `json:"points_reward"`
	IsRequired       bool                  `json:"is_required"`
	AIProcessed      bool                  `json:"ai_processed"`
}

// Page is one page of the filtered list. Total counts the whole filtered set.
type Page struct {
	Content    []Item `json:"content"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

// NewLesson is a lesson authored through the API. Nil pointers take the
// defaults.
type NewLesson struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Content         string `json:"content"`
	Type            string `json:"type"`
	DayNumber       int    `json:"day_number"`
	OrderIndex      int    `json:"order_index"`
	DurationMinutes int    `json:"duration_minutes"`
	PointsReward    *int   `json:"points_reward"`
	Required        *bool  `json:"is_required"`
}

// Library serves lesson authoring.
type Library struct {
	store Store
}

func NewLibrary(store Store) (*Library, error) {
	if store == nil {
		return nil, errors.New("content: store is required")
	}
	return &Library{store: store}, nil
}

// List returns lessons across every day in curriculum order.
func (lib *Library) List(ctx context.Context, requesterID string, q Query) (Page, error) {
	if err := lib.requireStaff(ctx, requesterID); err != nil {
		return Page{}, err
	}
	q, err := normalizeQuery(q)
	if err != nil {
		return Page{}, err
	}

	days, err := lib.store.ListDays(ctx, false)
	if err != nil {
		return Page{}, err
	}
	lessons, err := lib.store.ListLessons(ctx, "")
	if err != nil {
		return Page{}, err
	}
	days, err = curriculum.Assemble(days, lessons, false)
	if err != nil {
		return Page{}, err
	}

	var items []Item
	for _, d := range days {
		for _, l := range d.Lessons {
			if q.Type != "" && string(l.Type) != q.Type {
				continue
			}
			items = append(items, newItem(d, l))
		}
	}

	page := Page{Content: []Item{}, Total: len(items), Page: q.Page, Limit: q.Limit}
	page.TotalPages = (page.Total + q.Limit - 1) / q.Limit
	start := (q.Page - 1) * q.Limit
	if start < len(items) {
		page.Content = items[start:min(start+q.Limit, len(items))]
	}
	return page, nil
}

// Create adds a lesson to a day, appending it unless an order index is given.
func (lib *Library) Create(ctx context.Context, requesterID string, in NewLesson) (curriculum.Lesson, error) {
	if err := lib.requireStaff(ctx, requesterID); err != nil {
		return curriculum.Lesson{}, err
	}
	l, dayNumber, err := in.lesson()
	if err != nil {
		return curriculum.Lesson{}, err
	}

	days, err := lib.store.ListDays(ctx, false)
	if err != nil {
		return curriculum.Lesson{}, err
	}
	for _, d := range days {
		if d.Number == dayNumber {
			l.DayID = d.ID
			break
		}
	}
	if l.DayID == "" {
		return curriculum.Lesson{}, apperr.NotFound("day", fmt.Sprint(dayNumber))
	}

	created, err := lib.store.InsertLesson(ctx, l)
	if err != nil {
		return curriculum.Lesson{}, err
	}
	slog.Info("lesson created",
		"lesson_id", created.ID,
		"day_number", dayNumber,
		"order_index", created.OrderIndex,
		"requested_by", requesterID,
	)
	return created, nil
}

func (in NewLesson) lesson() (curriculum.Lesson, int, error) {
	l := curriculum.Lesson{
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		Content:         in.Content,
		Type:            curriculum.LessonType(strings.ToLower(strings.TrimSpace(in.Type))),
		OrderIndex:      in.OrderIndex,
		DurationMinutes: in.DurationMinutes,
		PointsReward:    DefaultPoints,
		IsRequired:      true,
	}
	switch {
	case l.Title == "":
		return l, 0, apperr.InvalidInput("title", "is required")
	case strings.TrimSpace(l.Content) == "":
		return l, 0, apperr.InvalidInput("content", "is required")
	case l.Type == "":
		return l, 0, apperr.InvalidInput("type", "is required")
	case !l.Type.Valid():
		return l, 0, apperr.InvalidInput("type", "must be one of theory, practical, quiz, video")
	case in.OrderIndex < 0:
		return l, 0, apperr.InvalidInput("order_index", "must not be negative")
	case in.DurationMinutes < 0:
		return l, 0, apperr.InvalidInput("duration_minutes", "must not be negative")
	}
	if l.DurationMinutes == 0 {
		l.DurationMinutes = DefaultDuration
	}
	if in.PointsReward != nil {
		if *in.PointsReward < 0 {
			return l, 0, apperr.InvalidInput("points_reward", "must not be negative")
		}
		l.PointsReward = *in.PointsReward
	}
	if in.Required != nil {
		l.IsRequired = *in.Required
	}
	dayNumber := in.DayNumber
	if dayNumber == 0 {
		dayNumber = 1
	}
	return l, dayNumber, nil
}

func normalizeQuery(q Query) (Query, error) {
	q.Type = strings.ToLower(strings.TrimSpace(q.Type))
	if q.Type != "" && !curriculum.LessonType(q.Type).Valid() {
		return q, apperr.InvalidInput("type", "must be one of theory, practical, quiz, video")
	}
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Page < 1 {
		return q, apperr.InvalidInput("page", "must be at least 1")
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return q, apperr.InvalidInput("limit", fmt.Sprintf("must be between 1 and %d", MaxLimit))
	}
	return q, nil
}

func newItem(d curriculum.Day, l curriculum.Lesson) Item {
	minutes := l.DurationMinutes
	if minutes <= 0 {
		minutes = DefaultDuration
	}
	return Item{
		ID:               l.ID,
		Title:            l.Title,
		Slug:             Slug(l.Title),
		Description:      describe(l),
		Type:             l.Type,
		DayNumber:        d.Number,
		OrderIndex:       l.OrderIndex,
		Difficulty:       l.Difficulty,
		EstimatedMinutes: minutes,
		PointsReward:     l.PointsReward,
		IsRequired:       l.IsRequired,
		AIProcessed:      l.ProcessedAt != nil,
	}
}

// describe falls back to the start of the lesson body.
func describe(l curriculum.Lesson) string {
	if l.Description != "" {
		return l.Description
	}
	body := strings.TrimSpace(l.Content)
	if utf8.RuneCountInString(body) <= summaryRunes {
		return body
	}
	return string([]rune(body)[:summaryRunes]) + "..."
}

// Slug lowercases title and joins its words with hyphens.
func Slug(title string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

func (lib *Library) requireStaff(ctx context.Context, requesterID string) error {
	l, err := lib.store.GetLearner(ctx, requesterID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Forbidden("only admins and trainers can manage content")
	}
	if err != nil {
		return err
	}
	if !l.Role.IsStaff() {
		return apperr.Forbidden("only admins and trainers can manage content")
	}
	return nil
}
