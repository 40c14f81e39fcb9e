package learning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/progress"
)

// UpdateInput is a learner's progress write for one lesson.
type UpdateInput struct {
	LessonID         string          `json:"lesson_id"`
	Status           progress.Status `json:"status"`
	TimeSpentMinutes int             `json:"time_spent_minutes"`
	Notes            *string         `json:"notes"`
}

// UpdateResult is the stored record and the learner's points after the write.
type UpdateResult struct {
	Progress      progress.Record `json:"progress"`
	PointsAwarded int             `json:"points_awarded"`
	TotalPoints   int             `json:"total_points"`
}

// UpdateProgress applies in to the learner's record for the lesson. The write
// that first completes a lesson awards its points in the same transaction.
func (s *Service) UpdateProgress(ctx context.Context, learnerID string, in UpdateInput) (UpdateResult, error) {
	if in.LessonID == "" {
		return UpdateResult{}, apperr.InvalidInput("lesson_id", "is required")
	}
	status, err := progress.ParseStatus(string(in.Status))
	if err != nil {
		return UpdateResult{}, err
	}
	update, err := progress.UpdateFromStatus(status, in.TimeSpentMinutes, in.Notes)
	if err != nil {
		return UpdateResult{}, err
	}

	st, err := s.loadState(ctx, learnerID)
	if err != nil {
		return UpdateResult{}, err
	}
	day, lesson, err := st.unlockedLesson(in.LessonID)
	if err != nil {
		return UpdateResult{}, err
	}

	var (
		completed bool
		awarded   int
	)
	rec, err := s.store.UpsertProgress(ctx, learnerID, lesson.ID, func(existing *progress.Record) (progress.Record, int, error) {
		next, newlyCompleted := progress.Apply(existing, learnerID, lesson.ID, update, s.now())
		completed, awarded = newlyCompleted, 0
		if newlyCompleted {
			awarded = lesson.PointsReward
		}
		return next, awarded, nil
	})
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update progress: %w", err)
	}

	l, err := s.store.GetLearner(ctx, learnerID)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("get learner: %w", err)
	}

	if completed {
		slog.Info("lesson completed",
			"learner_id", learnerID,
			"lesson_id", lesson.ID,
			"day_number", day.Number,
			"points_awarded", awarded,
		)
		s.logEvent(ctx, learnerID, EventLessonCompleted, map[string]any{
			"lesson_id":      lesson.ID,
			"day_number":     day.Number,
			"points_awarded": awarded,
		})
		s.leaderboardChanged(ctx, learnerID, "lesson_completed")
	}

	return UpdateResult{
		Progress:      rec,
		PointsAwarded: awarded,
		TotalPoints:   l.Points,
	}, nil
}

// HistoryEntry is one progress record with its lesson and day.
type HistoryEntry struct {
	progress.Record
	LessonTitle string                `json:"lesson_title"`
	LessonType  curriculum.LessonType `json:"lesson_type,omitempty"`
	DayNumber   int                   `json:"day_number,omitempty"`
	DayTitle    string                `json:"day_title,omitempty"`
}

// HistoryStats aggregates a learner's progress records.
type HistoryStats struct {
	TotalLessonsStarted int `json:"total_lessons_started"`
	CompletedLessons    int `json:"completed_lessons"`
	InProgressLessons   int `json:"in_progress_lessons"`
	TotalTimeSpent      int `json:"total_time_spent"`
}

// History is a learner's progress log, most recently updated first.
type History struct {
	Progress []HistoryEntry `json:"progress"`
	Stats    HistoryStats   `json:"stats"`
}

// ProgressHistory lists every progress record of learnerID.
func (s *Service) ProgressHistory(ctx context.Context, learnerID string) (History, error) {
	if learnerID == "" {
		return History{}, apperr.InvalidInput("learner_id", "is required")
	}
	days, err := s.loadCurriculum(ctx)
	if err != nil {
		return History{}, err
	}
	records, err := s.store.GetProgress(ctx, learnerID)
	if err != nil {
		return History{}, fmt.Errorf("get progress: %w", err)
	}

	h := History{Progress: make([]HistoryEntry, 0, len(records))}
	for _, rec := range records {
		e := HistoryEntry{Record: rec}
		if day, lesson, ok := curriculum.FindLesson(days, rec.LessonID); ok {
			e.LessonTitle = lesson.Title
			e.LessonType = lesson.Type
			e.DayNumber = day.Number
			e.DayTitle = day.Title
		}
		h.Progress = append(h.Progress, e)

		h.Stats.TotalLessonsStarted++
		switch rec.Status {
		case progress.StatusCompleted:
			h.Stats.CompletedLessons++
		case progress.StatusInProgress:
			h.Stats.InProgressLessons++
		}
		h.Stats.TotalTimeSpent += rec.TimeSpentMinutes
	}

	sort.Slice(h.Progress, func(i, j int) bool {
		a, b := h.Progress[i], h.Progress[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.LessonID < b.LessonID
	})
	return h, nil
}
