package quiz_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/quiz"
)

func TestGrade(t *testing.T) {
	tests := []struct {
		name      string
		correct   string
		submitted string
		points    int
		want      quiz.Result
	}{
		{"exact", "b", "b", 10, quiz.Result{IsCorrect: true, PointsEarned: 10}},
		{"case and whitespace", "Paris", " paris ", 15, quiz.Result{IsCorrect: true, PointsEarned: 15}},
		{"upper submitted", "true", "TRUE", 10, quiz.Result{IsCorrect: true, PointsEarned: 10}},
		{"unicode fold", "Éclair", "éCLAIR", 10, quiz.Result{IsCorrect: true, PointsEarned: 10}},
		{"wrong", "b", "a", 10, quiz.Result{IsCorrect: false, PointsEarned: 0}},
		{"stored answer padded", "  c ", "C", 20, quiz.Result{IsCorrect: true, PointsEarned: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := quiz.Grade(quiz.Item{ID: "q1", CorrectAnswer: tt.correct, Points: tt.points}, tt.submitted)
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Grade() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGrade_EmptyAnswer(t *testing.T) {
	for _, answer := range []string{"", "   ", "\t\n"} {
		_, err := quiz.Grade(quiz.Item{CorrectAnswer: "a", Points: 10}, answer)
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Grade(%q) error = %v, want invalid input", answer, err)
		}
	}
}

func TestGrade_Repeatable(t *testing.T) {
	q := quiz.Item{CorrectAnswer: "a", Points: 10}
	first, _ := quiz.Grade(q, "a")
	second, _ := quiz.Grade(q, "a")
	if first != second {
		t.Errorf("regrading differs: %+v vs %+v", first, second)
	}
}

func TestNewAttempt(t *testing.T) {
	now := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	q := quiz.Item{ID: "q1", CorrectAnswer: "true", Points: 12}

	a, err := quiz.NewAttempt("learner-1", q, "True", now)
	if err != nil {
		t.Fatalf("NewAttempt() error = %v", err)
	}
	if !a.IsCorrect || a.PointsEarned != 12 || a.QuizID != "q1" || !a.AttemptedAt.Equal(now) {
		t.Errorf("NewAttempt() = %+v", a)
	}
	if a.SubmittedAnswer != "True" {
		t.Errorf("SubmittedAnswer = %q, want the raw answer", a.SubmittedAnswer)
	}

	if _, err := quiz.NewAttempt("", q, "true", now); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("NewAttempt(no learner) error = %v, want invalid input", err)
	}
}

func TestLatestAttempts(t *testing.T) {
	base := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	attempts := []quiz.Attempt{
		{ID: "1", QuizID: "q1", IsCorrect: false, AttemptedAt: base},
		{ID: "2", QuizID: "q1", IsCorrect: true, AttemptedAt: base.Add(time.Minute)},
		{ID: "3", QuizID: "q2", IsCorrect: true, AttemptedAt: base},
		{ID: "5", QuizID: "q3", AttemptedAt: base},
		{ID: "4", QuizID: "q3", AttemptedAt: base},
	}

	latest := quiz.LatestAttempts(attempts)

	if len(latest) != 3 {
		t.Fatalf("len(latest) = %d, want 3", len(latest))
	}
	if latest["q1"].ID != "2" {
		t.Errorf("latest[q1] = %s, want 2", latest["q1"].ID)
	}
	if latest["q2"].ID != "3" {
		t.Errorf("latest[q2] = %s, want 3", latest["q2"].ID)
	}
	if latest["q3"].ID != "5" {
		t.Errorf("latest[q3] = %s, want 5 (tie broken by ID)", latest["q3"].ID)
	}
}

func TestQuestionType_Valid(t *testing.T) {
	for _, qt := range []quiz.QuestionType{quiz.MultipleChoice, quiz.TrueFalse, quiz.ShortAnswer} {
		if !qt.Valid() {
			t.Errorf("%s should be valid", qt)
		}
	}
	if quiz.QuestionType("essay").Valid() {
		t.Error("essay should not be valid")
	}
}
