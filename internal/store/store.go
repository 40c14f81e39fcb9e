// Package store persists the onboarding data: curriculum, learner profiles,
// lesson progress, quizzes and quiz attempts.
//
// Two implementations share the Store interface: MemoryStore for tests and
// local development, and PostgresStore for production.
package store

import (
	"context"

	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/learner"
	"github.com/ggproduction/onboarding/internal/progress"
	"github.com/ggproduction/onboarding/internal/quiz"
	"github.com/ggproduction/onboarding/internal/ranking"
)

// CurriculumStore reads and seeds curriculum days and lessons.
type CurriculumStore interface {
	// ListDays returns days ordered by day number, without lessons.
	ListDays(ctx context.Context, activeOnly bool) ([]curriculum.Day, error)
	// ListLessons returns the lessons of dayID ordered by order index, or
	// every lesson when dayID is empty.
	ListLessons(ctx context.Context, dayID string) ([]curriculum.Lesson, error)
	GetLesson(ctx context.Context, id string) (curriculum.Lesson, error)
	UpsertDay(ctx context.Context, d curriculum.Day) (curriculum.Day, error)
	UpsertLesson(ctx context.Context, l curriculum.Lesson) (curriculum.Lesson, error)
	// InsertLesson adds a new lesson. A zero order index appends it to the
	// day; an index already used in the day is rejected.
	InsertLesson(ctx context.Context, l curriculum.Lesson) (curriculum.Lesson, error)
	// ReviseLessonContent replaces a lesson body and its teaching metadata.
	ReviseLessonContent(ctx context.Context, lessonID string, r curriculum.Revision) (curriculum.Lesson, error)
}

// ProgressFunc computes the record to store from the existing one (nil when
// absent) and the points the write awards to the learner.
type ProgressFunc func(existing *progress.Record) (next progress.Record, award int, err error)

// ProgressStore keeps one progress record per (learner, lesson).
type ProgressStore interface {
	// GetProgress returns the learner's records keyed by lesson ID.
	GetProgress(ctx context.Context, learnerID string) (map[string]progress.Record, error)
	// UpsertProgress runs fn against the current record while holding it
	// exclusively, stores the result and applies the award to the learner's
	// points in the same transaction.
	UpsertProgress(ctx context.Context, learnerID, lessonID string, fn ProgressFunc) (progress.Record, error)
	// CompletedLessonCounts returns completed lesson counts keyed by learner.
	CompletedLessonCounts(ctx context.Context) (map[string]int, error)
}

// LearnerStore keeps learner profiles and point totals.
type LearnerStore interface {
	// EnsureLearner creates the profile when missing and returns the stored one.
	EnsureLearner(ctx context.Context, l learner.Learner) (learner.Learner, error)
	GetLearner(ctx context.Context, id string) (learner.Learner, error)
	// ListLearners returns learners with role, or everyone when role is empty.
	ListLearners(ctx context.Context, role learner.Role) ([]learner.Learner, error)
	// ListLearnerPoints returns point totals for learners with role.
	ListLearnerPoints(ctx context.Context, role learner.Role) ([]ranking.LearnerPoints, error)
}

// QuizStore keeps quiz items and the append-only attempt log.
type QuizStore interface {
	GetQuiz(ctx context.Context, id string) (quiz.Item, error)
	ListQuizzes(ctx context.Context, lessonID string, activeOnly bool) ([]quiz.Item, error)
	InsertQuizzes(ctx context.Context, items []quiz.Item) ([]quiz.Item, error)
	SetQuizActive(ctx context.Context, id string, active bool) error
	ListAttempts(ctx context.Context, learnerID string, quizIDs []string) ([]quiz.Attempt, error)
	// RecordAttempt inserts the attempt and, when it earned points, adds them
	// to the learner's total. Both happen or neither does.
	RecordAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error)
}

// Store is the full persistence surface used by the learning service.
type Store interface {
	CurriculumStore
	ProgressStore
	LearnerStore
	QuizStore
}
