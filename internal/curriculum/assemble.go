package curriculum

import (
	"sort"

	"github.com/ggproduction/onboarding/internal/apperr"
)

// Assemble groups lessons under their days and orders both levels by
// (day number, lesson order index). Lessons of inactive days are dropped when
// activeOnly is set. A lesson whose DayID matches no day is a data integrity
// error, as are duplicate day numbers or duplicate order indexes.
func Assemble(days []Day, lessons []Lesson, activeOnly bool) ([]Day, error) {
	byID := make(map[string]int, len(days))
	numbers := make(map[int]string, len(days))
	out := make([]Day, 0, len(days))

	for _, d := range days {
		if _, dup := byID[d.ID]; dup {
			return nil, apperr.DataIntegrity("duplicate day id %q", d.ID)
		}
		if other, dup := numbers[d.Number]; dup {
			return nil, apperr.DataIntegrity("days %q and %q share day number %d", other, d.ID, d.Number)
		}
		numbers[d.Number] = d.ID
		d.Lessons = nil
		byID[d.ID] = len(out)
		out = append(out, d)
	}

	for _, l := range lessons {
		idx, ok := byID[l.DayID]
		if !ok {
			return nil, apperr.DataIntegrity("lesson %q references unknown day %q", l.ID, l.DayID)
		}
		out[idx].Lessons = append(out[idx].Lessons, l)
	}

	if activeOnly {
		active := out[:0]
		for _, d := range out {
			if d.IsActive {
				active = append(active, d)
			}
		}
		out = active
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	for i := range out {
		ls := out[i].Lessons
		sort.SliceStable(ls, func(a, b int) bool { return ls[a].OrderIndex < ls[b].OrderIndex })
		for j := 1; j < len(ls); j++ {
			if ls[j].OrderIndex == ls[j-1].OrderIndex {
				return nil, apperr.DataIntegrity("day %d has two lessons with order index %d", out[i].Number, ls[j].OrderIndex)
			}
		}
	}

	return out, nil
}

// FindLesson returns the day and lesson for a lesson ID within ordered days.
func FindLesson(days []Day, lessonID string) (Day, Lesson, bool) {
	for _, d := range days {
		for _, l := range d.Lessons {
			if l.ID == lessonID {
				return d, l, true
			}
		}
	}
	return Day{}, Lesson{}, false
}

// CountLessons returns the total number of lessons across days.
func CountLessons(days []Day) int {
	n := 0
	for _, d := range days {
		n += len(d.Lessons)
	}
	return n
}
