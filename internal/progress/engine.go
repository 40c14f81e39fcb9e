package progress

import (
	"strings"

	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/curriculum"
)

// DayProgress summarises one day for a learner.
type DayProgress struct {
	DayID          string `json:"day_id"`
	DayNumber      int    `json:"day_number"`
	CompletedCount int    `json:"completed_lessons"`
	TotalCount     int    `json:"total_lessons"`
	IsCompleted    bool   `json:"is_completed"`
	IsLocked       bool   `json:"is_locked"`
	IsInProgress   bool   `json:"is_in_progress"`
}

// LessonRef points at a lesson by its curriculum position.
type LessonRef struct {
	LessonID   string `json:"lesson_id"`
	DayID      string `json:"day_id"`
	DayNumber  int    `json:"day_number"`
	OrderIndex int    `json:"order_index"`
	Title      string `json:"title"`
}

// Snapshot is a learner's derived position in the curriculum.
type Snapshot struct {
	LearnerID         string        `json:"learner_id"`
	TotalLessons      int           `json:"total_lessons"`
	CompletedLessons  int           `json:"completed_lessons"`
	OverallPercentage int           `json:"progress_percentage"`
	PerDay            []DayProgress `json:"days"`
	UnlockedDayNumber int           `json:"unlocked_day_number"`
	NextLesson        *LessonRef    `json:"next_lesson"`
}

// CompletedDays counts fully completed days.
func (s Snapshot) CompletedDays() int {
	n := 0
	for _, d := range s.PerDay {
		if d.IsCompleted {
			n++
		}
	}
	return n
}

// Day returns the progress entry for a day number.
func (s Snapshot) Day(number int) (DayProgress, bool) {
	for _, d := range s.PerDay {
		if d.DayNumber == number {
			return d, true
		}
	}
	return DayProgress{}, false
}

// StatusOf returns the status recorded for lessonID, not_started if none.
func StatusOf(records map[string]Record, lessonID string) Status {
	if r, ok := records[lessonID]; ok && r.Status.Valid() {
		return r.Status
	}
	return StatusNotStarted
}

// Compute derives the learner's snapshot. days must be ordered by day number
// and each day's lessons by order index; records is keyed by lesson ID and a
// missing entry means not_started.
//
// Days unlock strictly in sequence: a day is locked while any earlier day is
// incomplete, so the unlocked day is the first incomplete one (or the last
// day once everything is done). A day with no lessons counts as completed.
func Compute(learnerID string, days []curriculum.Day, records map[string]Record) (Snapshot, error) {
	if strings.TrimSpace(learnerID) == "" {
		return Snapshot{}, apperr.InvalidInput("learner_id", "is required")
	}
	if err := checkOrdering(days); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		LearnerID:         learnerID,
		PerDay:            make([]DayProgress, 0, len(days)),
		UnlockedDayNumber: 1,
	}

	priorComplete := true
	unlockedSet := false

	for _, d := range days {
		dp := DayProgress{
			DayID:      d.ID,
			DayNumber:  d.Number,
			TotalCount: len(d.Lessons),
			IsLocked:   !priorComplete,
		}

		for _, l := range d.Lessons {
			switch StatusOf(records, l.ID) {
			case StatusCompleted:
				dp.CompletedCount++
				continue
			case StatusInProgress:
				dp.IsInProgress = true
			}
			if snap.NextLesson == nil {
				snap.NextLesson = &LessonRef{
					LessonID:   l.ID,
					DayID:      d.ID,
					DayNumber:  d.Number,
					OrderIndex: l.OrderIndex,
					Title:      l.Title,
				}
			}
		}

		dp.IsCompleted = dp.CompletedCount == dp.TotalCount
		if priorComplete && !dp.IsCompleted {
			snap.UnlockedDayNumber = d.Number
			unlockedSet = true
		}
		priorComplete = priorComplete && dp.IsCompleted

		snap.TotalLessons += dp.TotalCount
		snap.CompletedLessons += dp.CompletedCount
		snap.PerDay = append(snap.PerDay, dp)
	}

	if !unlockedSet && len(days) > 0 {
		snap.UnlockedDayNumber = days[len(days)-1].Number
	}
	snap.OverallPercentage = Percentage(snap.CompletedLessons, snap.TotalLessons)

	return snap, nil
}

// Percentage returns round(100*part/whole) with halves rounded up, and 0 when
// whole is zero.
func Percentage(part, whole int) int {
	if whole <= 0 || part <= 0 {
		return 0
	}
	if part >= whole {
		return 100
	}
	return (200*part + whole) / (2 * whole)
}

func checkOrdering(days []curriculum.Day) error {
	seen := make(map[string]struct{})
	for i, d := range days {
		if d.Number < 1 {
			return apperr.DataIntegrity("day %q has non-positive number %d", d.ID, d.Number)
		}
		if i > 0 && d.Number <= days[i-1].Number {
			return apperr.DataIntegrity("day numbers out of order or duplicated at %d", d.Number)
		}
		for j, l := range d.Lessons {
			if l.DayID != "" && l.DayID != d.ID {
				return apperr.DataIntegrity("lesson %q references day %q but is listed under day %d", l.ID, l.DayID, d.Number)
			}
			if j > 0 && l.OrderIndex <= d.Lessons[j-1].OrderIndex {
				return apperr.DataIntegrity("day %d lesson order indexes out of order or duplicated at %d", d.Number, l.OrderIndex)
			}
			if _, dup := seen[l.ID]; dup {
				return apperr.DataIntegrity("lesson %q appears more than once", l.ID)
			}
			seen[l.ID] = struct{}{}
		}
	}
	return nil
}
