// Package quiz grades quiz submissions and picks the attempt that represents
// each quiz's current state for a learner.
package quiz

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/ggproduction/onboarding/internal/apperr"
)

// QuestionType is the closed set of question formats.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer:
		return true
	}
	return false
}

// Option is one multiple choice answer.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Item is a quiz question attached to a lesson.
type Item struct {
	ID            string       `json:"id"`
	LessonID      string       `json:"lesson_id"`
	Question      string       `json:"question"`
	Type          QuestionType `json:"question_type"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation,omitempty"`
	Points        int          `json:"points"`
	OrderIndex    int          `json:"order_index"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Attempt is one graded submission. Attempts are append-only.
type Attempt struct {
	ID              string    `json:"id"`
	LearnerID       string    `json:"user_id"`
	QuizID          string    `json:"quiz_id"`
	SubmittedAnswer string    `json:"user_answer"`
	IsCorrect       bool      `json:"is_correct"`
	PointsEarned    int       `json:"points_earned"`
	AttemptedAt     time.Time `json:"attempted_at"`
}

// Result is the outcome of grading one answer.
type Result struct {
	IsCorrect    bool `json:"is_correct"`
	PointsEarned int  `json:"points_earned"`
}

// Grade compares the submitted answer to the stored one, ignoring case and
// surrounding whitespace. Every call grades independently; whether a learner
// may answer again is decided by the caller.
func Grade(q Item, submitted string) (Result, error) {
	answer := normalize(submitted)
	if answer == "" {
		return Result{}, apperr.InvalidInput("user_answer", "is required")
	}
	if answer != normalize(q.CorrectAnswer) {
		return Result{}, nil
	}
	return Result{IsCorrect: true, PointsEarned: q.Points}, nil
}

// NewAttempt grades submitted and returns the attempt row to record.
func NewAttempt(learnerID string, q Item, submitted string, now time.Time) (Attempt, error) {
	if strings.TrimSpace(learnerID) == "" {
		return Attempt{}, apperr.InvalidInput("learner_id", "is required")
	}
	res, err := Grade(q, submitted)
	if err != nil {
		return Attempt{}, err
	}
	return Attempt{
		LearnerID:       learnerID,
		QuizID:          q.ID,
		SubmittedAnswer: submitted,
		IsCorrect:       res.IsCorrect,
		PointsEarned:    res.PointsEarned,
		AttemptedAt:     now,
	}, nil
}

// LatestAttempts returns the most recent attempt per quiz. Attempts with the
// same timestamp are ordered by ID.
func LatestAttempts(attempts []Attempt) map[string]Attempt {
	sorted := make([]Attempt, len(attempts))
	copy(sorted, attempts)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].AttemptedAt.Equal(sorted[j].AttemptedAt) {
			return sorted[i].AttemptedAt.After(sorted[j].AttemptedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})

	latest := make(map[string]Attempt)
	for _, a := range sorted {
		if _, seen := latest[a.QuizID]; !seen {
			latest[a.QuizID] = a
		}
	}
	return latest
}

// A Caser keeps state, so each call gets its own.
func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
