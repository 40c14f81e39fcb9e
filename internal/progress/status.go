// Package progress derives a learner's position in the curriculum from their
// lesson progress records: per-day completion, the unlocked day boundary,
// overall percentage and the next lesson to take.
//
// Everything here is pure. Writes are expressed as upsert intents that the
// storage layer applies.
package progress

import (
	"time"

	"github.com/ggproduction/onboarding/internal/apperr"
)

// Status is the per-lesson progress state.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", apperr.InvalidInput("status", "must be one of not_started, in_progress, completed")
	}
	return s, nil
}

// Event is a learner action that moves a lesson through its states.
type Event int

const (
	EventView Event = iota
	EventComplete
)

func (e Event) String() string {
	switch e {
	case EventView:
		return "view"
	case EventComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Transition returns the state reached from current on event.
//
//	not_started --view--> in_progress --complete--> completed
//
// Completed is terminal and viewing never moves a lesson backwards.
func Transition(current Status, event Event) Status {
	if current == StatusCompleted {
		return StatusCompleted
	}
	switch event {
	case EventComplete:
		return StatusCompleted
	case EventView:
		return StatusInProgress
	}
	return current
}

// Record is the stored progress of one learner on one lesson.
type Record struct {
	LearnerID        string     `json:"learner_id"`
	LessonID         string     `json:"lesson_id"`
	Status           Status     `json:"status"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	TimeSpentMinutes int        `json:"time_spent_minutes"`
	Notes            string     `json:"notes,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Update is a learner's progress write request for one lesson.
type Update struct {
	Event            Event
	TimeSpentMinutes int
	Notes            *string
}

// UpdateFromStatus maps a requested target status onto an event. Requests for
// not_started are rejected: progress is never reset.
func UpdateFromStatus(s Status, minutes int, notes *string) (Update, error) {
	var ev Event
	switch s {
	case StatusInProgress:
		ev = EventView
	case StatusCompleted:
		ev = EventComplete
	default:
		return Update{}, apperr.InvalidInput("status", "must be in_progress or completed")
	}
	if minutes < 0 {
		return Update{}, apperr.InvalidInput("time_spent_minutes", "must not be negative")
	}
	return Update{Event: ev, TimeSpentMinutes: minutes, Notes: notes}, nil
}

// Apply computes the record to upsert for an update on top of existing (nil
// when the learner has no record for the lesson yet). Timestamps are set once
// and never overwritten. newlyCompleted is true only for the write that moves
// the lesson into completed, which is the one that earns the lesson reward.
func Apply(existing *Record, learnerID, lessonID string, u Update, now time.Time) (rec Record, newlyCompleted bool) {
	if existing != nil {
		rec = *existing
	} else {
		rec = Record{LearnerID: learnerID, LessonID: lessonID, Status: StatusNotStarted}
	}

	prev := rec.Status
	rec.Status = Transition(prev, u.Event)

	if rec.Status != StatusNotStarted && rec.StartedAt == nil {
		started := now
		rec.StartedAt = &started
	}
	if rec.Status == StatusCompleted && rec.CompletedAt == nil {
		completed := now
		rec.CompletedAt = &completed
	}
	if u.TimeSpentMinutes > 0 {
		rec.TimeSpentMinutes += u.TimeSpentMinutes
	}
	if u.Notes != nil {
		rec.Notes = *u.Notes
	}
	rec.UpdatedAt = now

	return rec, prev != StatusCompleted && rec.Status == StatusCompleted
}
