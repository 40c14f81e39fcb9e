package quizgen_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ggproduction/onboarding/internal/ai"
	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/quizgen"
)

const processedOutput = `{
  "content": "# Blinds\n\nThe big blind sits two seats left of the button.",
  "learning_objectives": ["Place the blinds", "Move the button"],
  "key_concepts": ["small blind", "big blind", "button"],
  "difficulty_level": "easy",
  "estimated_duration_minutes": 25,
  "summary": "Where the blinds sit."
}`

const rawNotes = "blinds: sb 1 left of btn, bb 2 left. btn moves clockwise each hand"

func TestProcessContent_RevisesLesson(t *testing.T) {
	f := newFixture(t, "old body", "```json\n"+processedOutput+"\n```")
	ctx := context.Background()

	res, err := f.gen.ProcessContent(ctx, "trainer", quizgen.ContentRequest{RawContent: "  " + rawNotes + "\n", LessonID: f.lesson.ID})
	if err != nil {
		t.Fatalf("ProcessContent() error = %v", err)
	}
	if res.Data.Difficulty != curriculum.DifficultyEasy || res.Data.DurationMinutes != 25 {
		t.Errorf("Data = %+v", res.Data)
	}
	if res.OriginalLength != len(rawNotes) || res.ProcessedLength != len(res.Data.Content) {
		t.Errorf("lengths = %d, %d, want %d, %d", res.OriginalLength, res.ProcessedLength, len(rawNotes), len(res.Data.Content))
	}
	if res.Model != "mock" {
		t.Errorf("Model = %q, want mock", res.Model)
	}

	req := f.provider.LastRequest
	if req.Task != ai.TaskContentReview || !req.JSONMode || req.Temperature != 0.3 || req.MaxTokens != 4000 {
		t.Errorf("completion request = %+v", req)
	}
	prompt := req.Messages[len(req.Messages)-1].Content
	for _, want := range []string{"Lesson: Blinds", rawNotes} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	got, err := f.store.GetLesson(ctx, f.lesson.ID)
	if err != nil {
		t.Fatalf("GetLesson() error = %v", err)
	}
	if got.Content != "# Blinds\n\nThe big blind sits two seats left of the button." || got.RawContent != rawNotes {
		t.Errorf("stored content = %q, raw = %q", got.Content, got.RawContent)
	}
	if !reflect.DeepEqual(got.KeyConcepts, []string{"small blind", "big blind", "button"}) || got.DurationMinutes != 25 {
		t.Errorf("stored lesson = %+v", got)
	}
	if res.Lesson == nil || res.Lesson.ProcessedAt == nil {
		t.Errorf("Lesson = %+v, want the processed lesson", res.Lesson)
	}

	st, err := f.gen.ContentStatus(ctx, "admin", f.lesson.ID)
	if err != nil {
		t.Fatalf("ContentStatus() error = %v", err)
	}
	if !st.AIProcessed || st.ProcessedAt == "" || len(st.Objectives) != 2 {
		t.Errorf("ContentStatus() = %+v", st)
	}
}

func TestProcessContent_WithoutLesson(t *testing.T) {
	f := newFixture(t, "old body", processedOutput)
	ctx := context.Background()

	res, err := f.gen.ProcessContent(ctx, "admin", quizgen.ContentRequest{RawContent: rawNotes})
	if err != nil {
		t.Fatalf("ProcessContent() error = %v", err)
	}
	if res.Lesson != nil {
		t.Errorf("Lesson = %+v, want nil", res.Lesson)
	}
	got, _ := f.store.GetLesson(ctx, f.lesson.ID)
	if got.Content != "old body" || got.ProcessedAt != nil {
		t.Errorf("lesson changed without a lesson id: %+v", got)
	}

	st, err := f.gen.ContentStatus(ctx, "admin", f.lesson.ID)
	if err != nil {
		t.Fatalf("ContentStatus() error = %v", err)
	}
	if st.AIProcessed || st.Objectives == nil || st.KeyConcepts == nil {
		t.Errorf("ContentStatus() = %+v, want unprocessed with empty lists", st)
	}
}

func TestProcessContent_Errors(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		requester string
		req       func(lessonID string) quizgen.ContentRequest
		want      error
		wantCalls int
	}{
		{
			name:      "trainee",
			output:    processedOutput,
			requester: "trainee",
			req:       func(id string) quizgen.ContentRequest { return quizgen.ContentRequest{RawContent: rawNotes, LessonID: id} },
			want:      apperr.ErrForbidden,
		},
		{
			name:      "blank notes",
			output:    processedOutput,
			requester: "admin",
			req:       func(id string) quizgen.ContentRequest { return quizgen.ContentRequest{RawContent: " \n ", LessonID: id} },
			want:      apperr.ErrInvalidInput,
		},
		{
			name:      "notes too long",
			output:    processedOutput,
			requester: "admin",
			req: func(string) quizgen.ContentRequest {
				return quizgen.ContentRequest{RawContent: strings.Repeat("x", quizgen.MaxRawContentRunes+1)}
			},
			want: apperr.ErrInvalidInput,
		},
		{
			name:      "unknown lesson",
			output:    processedOutput,
			requester: "admin",
			req:       func(string) quizgen.ContentRequest { return quizgen.ContentRequest{RawContent: rawNotes, LessonID: "missing"} },
			want:      apperr.ErrNotFound,
		},
		{
			name:      "not json",
			output:    "Here is your lesson!",
			requester: "admin",
			req:       func(id string) quizgen.ContentRequest { return quizgen.ContentRequest{RawContent: rawNotes, LessonID: id} },
			want:      quizgen.ErrInvalidOutput,
			wantCalls: 1,
		},
		{
			name:      "unknown difficulty",
			output:    strings.Replace(processedOutput, `"easy"`, `"expert"`, 1),
			requester: "admin",
			req:       func(id string) quizgen.ContentRequest { return quizgen.ContentRequest{RawContent: rawNotes, LessonID: id} },
			want:      quizgen.ErrInvalidOutput,
			wantCalls: 1,
		},
		{
			name:      "missing objectives",
			output:    `{"content":"# Blinds","key_concepts":["button"],"difficulty_level":"easy","estimated_duration_minutes":5}`,
			requester: "admin",
			req:       func(id string) quizgen.ContentRequest { return quizgen.ContentRequest{RawContent: rawNotes, LessonID: id} },
			want:      quizgen.ErrInvalidOutput,
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "old body", tt.output)
			ctx := context.Background()

			_, err := f.gen.ProcessContent(ctx, tt.requester, tt.req(f.lesson.ID))
			if !errors.Is(err, tt.want) {
				t.Errorf("ProcessContent() error = %v, want %v", err, tt.want)
			}
			if f.provider.Calls != tt.wantCalls {
				t.Errorf("provider called %d times, want %d", f.provider.Calls, tt.wantCalls)
			}
			got, _ := f.store.GetLesson(ctx, f.lesson.ID)
			if got.Content != "old body" || got.ProcessedAt != nil {
				t.Errorf("lesson changed after failure: %+v", got)
			}
		})
	}
}

func TestProcessContent_Budget(t *testing.T) {
	f := newFixture(t, "old body", processedOutput)
	gen, err := quizgen.New(f.store, f.provider, quizgen.WithBudget(ai.NewMemoryBudget(50)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if _, err := gen.ProcessContent(ctx, "admin", quizgen.ContentRequest{RawContent: rawNotes}); err != nil {
		t.Fatalf("first ProcessContent() error = %v", err)
	}
	if _, err := gen.ProcessContent(ctx, "admin", quizgen.ContentRequest{RawContent: rawNotes}); !errors.Is(err, quizgen.ErrBudgetExhausted) {
		t.Errorf("second ProcessContent() error = %v, want ErrBudgetExhausted", err)
	}
	if f.provider.Calls != 1 {
		t.Errorf("provider called %d times, want 1", f.provider.Calls)
	}
}

func TestContentStatus_Errors(t *testing.T) {
	f := newFixture(t, "old body")

	tests := []struct {
		name      string
		requester string
		lessonID  string
		want      error
	}{
		{"trainee", "trainee", f.lesson.ID, apperr.ErrForbidden},
		{"missing lesson id", "admin", "", apperr.ErrInvalidInput},
		{"unknown lesson", "admin", "missing", apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.gen.ContentStatus(context.Background(), tt.requester, tt.lessonID); !errors.Is(err, tt.want) {
				t.Errorf("ContentStatus() error = %v, want %v", err, tt.want)
			}
		})
	}
}
