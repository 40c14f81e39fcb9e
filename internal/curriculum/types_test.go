package curriculum_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/ggproduction/onboarding/internal/curriculum"
)

func TestDifficulty_Valid(t *testing.T) {
	tests := []struct {
		d    curriculum.Difficulty
		want bool
	}{
		{curriculum.DifficultyEasy, true},
		{curriculum.DifficultyMedium, true},
		{curriculum.DifficultyHard, true},
		{"", false},
		{"Hard", false},
		{"expert", false},
	}
	for _, tt := range tests {
		if got := tt.d.Valid(); got != tt.want {
			t.Errorf("Difficulty(%q).Valid() = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestLesson_Revise(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	l := curriculum.Lesson{ID: "l1", Title: "Blinds", Content: "old", DurationMinutes: 15, PointsReward: 10}

	got := l.Revise(curriculum.Revision{
		RawContent:  "blinds r 2 seats left",
		Content:     "# Blinds\n\nTwo seats left of the button.",
		Objectives:  []string{"Place the blinds"},
		KeyConcepts: []string{"big blind"},
		Difficulty:  curriculum.DifficultyEasy,
		RevisedAt:   at,
	})

	if got.Content != "# Blinds\n\nTwo seats left of the button." || got.RawContent != "blinds r 2 seats left" {
		t.Errorf("Revise() content = %q, raw = %q", got.Content, got.RawContent)
	}
	if !reflect.DeepEqual(got.Objectives, []string{"Place the blinds"}) || got.Difficulty != curriculum.DifficultyEasy {
		t.Errorf("Revise() = %+v", got)
	}
	if got.DurationMinutes != 15 {
		t.Errorf("DurationMinutes = %d, want 15 kept when revision has none", got.DurationMinutes)
	}
	if got.ProcessedAt == nil || !got.ProcessedAt.Equal(at) {
		t.Errorf("ProcessedAt = %v, want %v", got.ProcessedAt, at)
	}
	if got.ID != "l1" || got.PointsReward != 10 {
		t.Errorf("Revise() changed identity fields: %+v", got)
	}
	if l.ProcessedAt != nil || l.Content != "old" {
		t.Error("Revise() modified the receiver")
	}
}
