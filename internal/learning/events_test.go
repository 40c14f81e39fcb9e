package learning_test

import (
	"context"
	"testing"

	"github.com/ggproduction/onboarding/internal/learning"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := learning.NewMemoryEventLogger()

	err := logger.LogEvent(context.Background(), learning.Event{
		LearnerID: "learner-1",
		EventType: learning.EventLessonCompleted,
		Data: map[string]any{
			"lesson_id": "lesson-1",
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].EventType != learning.EventLessonCompleted {
		t.Errorf("EventType = %q, want %s", events[0].EventType, learning.EventLessonCompleted)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_Validation(t *testing.T) {
	logger := learning.NewMemoryEventLogger()

	tests := []struct {
		name  string
		event learning.Event
	}{
		{"missing type", learning.Event{LearnerID: "learner-1"}},
		{"missing learner", learning.Event{EventType: learning.EventLessonViewed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := logger.LogEvent(context.Background(), tt.event); err == nil {
				t.Error("LogEvent() should fail")
			}
		})
	}
	if got := len(logger.Events()); got != 0 {
		t.Errorf("len(events) = %d, want 0", got)
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := learning.NewPostgresEventLogger(nil)

	err := logger.LogEvent(context.Background(), learning.Event{
		LearnerID: "learner-1",
		EventType: learning.EventLessonViewed,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}
