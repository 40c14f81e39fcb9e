package learning

import (
	"context"
	"fmt"

	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/progress"
	"github.com/ggproduction/onboarding/internal/ranking"
)

// LessonView is a lesson in the curriculum listing, annotated for one learner.
type LessonView struct {
	curriculum.Lesson
	Status   progress.Status  `json:"status"`
	IsLocked bool             `json:"is_locked"`
	Progress *progress.Record `json:"progress,omitempty"`
}

// DayView is a day with its annotated lessons.
type DayView struct {
	curriculum.Day
	Lessons  []LessonView         `json:"lessons"`
	Progress progress.DayProgress `json:"progress"`
}

// CurriculumStats summarises the learner's progress through the curriculum.
type CurriculumStats struct {
	TotalDays          int `json:"total_days"`
	TotalLessons       int `json:"total_lessons"`
	CompletedLessons   int `json:"completed_lessons"`
	ProgressPercentage int `json:"progress_percentage"`
}

// CurriculumView is the active curriculum as one learner sees it.
type CurriculumView struct {
	Days     []DayView         `json:"days"`
	Stats    CurriculumStats   `json:"stats"`
	Snapshot progress.Snapshot `json:"snapshot"`
}

// Curriculum returns the active curriculum with each lesson's status and lock
// state for learnerID. Lesson bodies are left out of the listing.
func (s *Service) Curriculum(ctx context.Context, learnerID string) (CurriculumView, error) {
	st, err := s.loadState(ctx, learnerID)
	if err != nil {
		return CurriculumView{}, err
	}

	view := CurriculumView{
		Days: make([]DayView, 0, len(st.days)),
		Stats: CurriculumStats{
			TotalDays:          len(st.days),
			TotalLessons:       st.snapshot.TotalLessons,
			CompletedLessons:   st.snapshot.CompletedLessons,
			ProgressPercentage: st.snapshot.OverallPercentage,
		},
		Snapshot: st.snapshot,
	}

	// Compute keeps PerDay aligned with days.
	for i, d := range st.days {
		dp := st.snapshot.PerDay[i]
		dv := DayView{
			Day:      d,
			Lessons:  make([]LessonView, 0, len(d.Lessons)),
			Progress: dp,
		}
		dv.Day.Lessons = nil
		for _, l := range d.Lessons {
			l.Content = ""
			lv := LessonView{
				Lesson:   l,
				Status:   progress.StatusOf(st.records, l.ID),
				IsLocked: dp.IsLocked,
			}
			if rec, ok := st.records[l.ID]; ok {
				lv.Progress = &rec
			}
			dv.Lessons = append(dv.Lessons, lv)
		}
		view.Days = append(view.Days, dv)
	}
	return view, nil
}

// Dashboard is the learner's home screen summary.
type Dashboard struct {
	Progress      progress.Snapshot `json:"progress"`
	Points        int               `json:"points"`
	Rank          int               `json:"rank"`
	TotalLearners int               `json:"total_learners"`
	CompletedDays int               `json:"completed_days"`
	TotalDays     int               `json:"total_days"`
	CurrentDay    int               `json:"current_day"`
}

// Dashboard returns progress, points and rank for learnerID.
func (s *Service) Dashboard(ctx context.Context, learnerID string) (Dashboard, error) {
	st, err := s.loadState(ctx, learnerID)
	if err != nil {
		return Dashboard{}, err
	}
	l, err := s.store.GetLearner(ctx, learnerID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("get learner: %w", err)
	}
	board, err := s.standings(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	rank, err := ranking.ComputeRank(ranking.LearnerPoints{ID: l.ID, FullName: l.DisplayName(), Points: l.Points}, board.Learners)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Progress:      st.snapshot,
		Points:        l.Points,
		Rank:          rank.Rank,
		TotalLearners: rank.TotalLearners,
		CompletedDays: st.snapshot.CompletedDays(),
		TotalDays:     len(st.days),
		CurrentDay:    st.snapshot.UnlockedDayNumber,
	}, nil
}

// LessonDetail is one lesson opened by a learner.
type LessonDetail struct {
	Day         curriculum.Day    `json:"day"`
	Lesson      curriculum.Lesson `json:"lesson"`
	ContentHTML string            `json:"content_html"`
	Progress    progress.Record   `json:"progress"`
}

// ViewLesson opens a lesson for learnerID, moving it to in_progress when it
// had not been started. Lessons of locked days are refused.
func (s *Service) ViewLesson(ctx context.Context, learnerID, lessonID string) (LessonDetail, error) {
	st, err := s.loadState(ctx, learnerID)
	if err != nil {
		return LessonDetail{}, err
	}
	day, lesson, err := st.unlockedLesson(lessonID)
	if err != nil {
		return LessonDetail{}, err
	}

	html, err := curriculum.RenderContent(lesson.Content)
	if err != nil {
		return LessonDetail{}, fmt.Errorf("render lesson %s: %w", lesson.ID, err)
	}

	var started bool
	rec, err := s.store.UpsertProgress(ctx, learnerID, lesson.ID, func(existing *progress.Record) (progress.Record, int, error) {
		started = existing == nil || existing.Status == progress.StatusNotStarted
		next, _ := progress.Apply(existing, learnerID, lesson.ID, progress.Update{Event: progress.EventView}, s.now())
		return next, 0, nil
	})
	if err != nil {
		return LessonDetail{}, fmt.Errorf("record lesson view: %w", err)
	}

	s.logEvent(ctx, learnerID, EventLessonViewed, map[string]any{
		"lesson_id":  lesson.ID,
		"day_number": day.Number,
		"first_view": started,
	})

	day.Lessons = nil
	return LessonDetail{
		Day:         day,
		Lesson:      lesson,
		ContentHTML: html,
		Progress:    rec,
	}, nil
}
