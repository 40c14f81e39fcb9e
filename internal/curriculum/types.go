// Package curriculum holds the onboarding curriculum model: ordered days,
// each owning an ordered list of lessons.
package curriculum

import "time"

// LessonType is the closed set of lesson formats.
type LessonType string

const (
	LessonTheory    LessonType = "theory"
	LessonPractical LessonType = "practical"
	LessonQuiz      LessonType = "quiz"
	LessonVideo     LessonType = "video"
)

// Valid reports whether t is a known lesson type.
func (t LessonType) Valid() bool {
	switch t {
	case LessonTheory, LessonPractical, LessonQuiz, LessonVideo:
		return true
	}
	return false
}

// Difficulty grades how demanding a lesson is. Empty means ungraded.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Day is one step of the curriculum. Number is unique and starts at 1.
type Day struct {
	ID            string    `json:"id" yaml:"id"`
	Number        int       `json:"day_number" yaml:"day_number"`
	Title         string    `json:"title" yaml:"title"`
	Description   string    `json:"description,omitempty" yaml:"description"`
	Objectives    []string  `json:"objectives,omitempty" yaml:"objectives"`
	DurationHours int       `json:"duration_hours" yaml:"duration_hours"`
	IsActive      bool      `json:"is_active" yaml:"-"`
	Lessons       []Lesson  `json:"lessons,omitempty" yaml:"lessons"`
	UpdatedAt     time.Time `json:"updated_at,omitzero" yaml:"-"`
}

// Lesson belongs to exactly one Day; OrderIndex is unique within the day.
type Lesson struct {
	ID              string     `json:"id" yaml:"id"`
	DayID           string     `json:"day_id" yaml:"-"`
	OrderIndex      int        `json:"order_index" yaml:"order_index"`
	Title           string     `json:"title" yaml:"title"`
	Description     string     `json:"description,omitempty" yaml:"description"`
	Content         string     `json:"content,omitempty" yaml:"content"`
	ContentFile     string     `json:"-" yaml:"content_file"`
	Type            LessonType `json:"lesson_type" yaml:"type"`
	DurationMinutes int        `json:"duration_minutes" yaml:"duration_minutes"`
	PointsReward    int        `json:"points_reward" yaml:"points_reward"`
	IsRequired      bool       `json:"is_required" yaml:"required"`
	Objectives      []string   `json:"learning_objectives,omitempty" yaml:"objectives"`
	KeyConcepts     []string   `json:"key_concepts,omitempty" yaml:"key_concepts"`
	Difficulty      Difficulty `json:"difficulty_level,omitempty" yaml:"difficulty"`
	// RawContent keeps the trainer notes a processed lesson was built from.
	RawContent  string     `json:"-" yaml:"-"`
	ProcessedAt *time.Time `json:"ai_processed_at,omitempty" yaml:"-"`
}

// Revision replaces a lesson body with one restructured from raw notes.
type Revision struct {
	RawContent      string
	Content         string
	Objectives      []string
	KeyConcepts     []string
	Difficulty      Difficulty
	DurationMinutes int
	RevisedAt       time.Time
}

// Revise returns l with r applied.
func (l Lesson) Revise(r Revision) Lesson {
	at := r.RevisedAt
	l.RawContent = r.RawContent
	l.Content = r.Content
	l.Objectives = r.Objectives
	l.KeyConcepts = r.KeyConcepts
	l.Difficulty = r.Difficulty
	if r.DurationMinutes > 0 {
		l.DurationMinutes = r.DurationMinutes
	}
	l.ProcessedAt = &at
	return l
}
