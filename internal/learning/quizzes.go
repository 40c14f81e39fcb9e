package learning

import (
	"context"
	"fmt"
	"strings"

	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/quiz"
)

// OptionView is a multiple choice option; IsCorrect is withheld until the
// learner has answered.
type OptionView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// QuizView is a quiz question as shown to one learner.
type QuizView struct {
	ID            string            `json:"id"`
	LessonID      string            `json:"lesson_id"`
	Question      string            `json:"question"`
	Type          quiz.QuestionType `json:"question_type"`
	Options       []OptionView      `json:"options,omitempty"`
	Points        int               `json:"points"`
	OrderIndex    int               `json:"order_index"`
	CorrectAnswer string            `json:"correct_answer,omitempty"`
	Explanation   string            `json:"explanation,omitempty"`
	UserAttempt   *quiz.Attempt     `json:"user_attempt"`
}

// QuizSet is the active quiz of a lesson for one learner.
type QuizSet struct {
	Quizzes        []QuizView `json:"quizzes"`
	TotalQuestions int        `json:"total_questions"`
	Answered       int        `json:"answered"`
	Correct        int        `json:"correct"`
}

// LessonQuizzes returns the active questions of a lesson in order, each with
// the learner's most recent attempt. Answers stay hidden for questions the
// learner has not attempted.
func (s *Service) LessonQuizzes(ctx context.Context, learnerID, lessonID string) (QuizSet, error) {
	if lessonID == "" {
		return QuizSet{}, apperr.InvalidInput("lesson_id", "is required")
	}
	st, err := s.loadState(ctx, learnerID)
	if err != nil {
		return QuizSet{}, err
	}
	if _, _, err := st.unlockedLesson(lessonID); err != nil {
		return QuizSet{}, err
	}

	items, err := s.store.ListQuizzes(ctx, lessonID, true)
	if err != nil {
		return QuizSet{}, fmt.Errorf("list quizzes: %w", err)
	}
	set := QuizSet{Quizzes: make([]QuizView, 0, len(items)), TotalQuestions: len(items)}
	if len(items) == 0 {
		return set, nil
	}

	ids := make([]string, len(items))
	for i, q := range items {
		ids[i] = q.ID
	}
	attempts, err := s.store.ListAttempts(ctx, learnerID, ids)
	if err != nil {
		return QuizSet{}, fmt.Errorf("list attempts: %w", err)
	}
	latest := quiz.LatestAttempts(attempts)

	for _, q := range items {
		v := QuizView{
			ID:         q.ID,
			LessonID:   q.LessonID,
			Question:   q.Question,
			Type:       q.Type,
			Points:     q.Points,
			OrderIndex: q.OrderIndex,
		}
		a, attempted := latest[q.ID]
		for _, o := range q.Options {
			ov := OptionView{ID: o.ID, Text: o.Text}
			if attempted {
				correct := o.IsCorrect
				ov.IsCorrect = &correct
			}
			v.Options = append(v.Options, ov)
		}
		if attempted {
			v.CorrectAnswer = q.CorrectAnswer
			v.Explanation = q.Explanation
			v.UserAttempt = &a
			set.Answered++
			if a.IsCorrect {
				set.Correct++
			}
		}
		set.Quizzes = append(set.Quizzes, v)
	}
	return set, nil
}

// SubmitResult is the graded attempt with the answer revealed.
type SubmitResult struct {
	Attempt       quiz.Attempt `json:"attempt"`
	IsCorrect     bool         `json:"is_correct"`
	PointsEarned  int          `json:"points_earned"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
}

// SubmitQuiz grades answer against quizID and records the attempt. Points
// earned are added to the learner's total in the same transaction. Every
// correct attempt earns the question's points.
func (s *Service) SubmitQuiz(ctx context.Context, learnerID, quizID, answer string) (SubmitResult, error) {
	if learnerID == "" {
		return SubmitResult{}, apperr.InvalidInput("learner_id", "is required")
	}
	if quizID == "" {
		return SubmitResult{}, apperr.InvalidInput("quiz_id", "is required")
	}
	if strings.TrimSpace(answer) == "" {
		return SubmitResult{}, apperr.InvalidInput("user_answer", "is required")
	}
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("get quiz: %w", err)
	}
	st, err := s.loadState(ctx, learnerID)
	if err != nil {
		return SubmitResult{}, err
	}
	if _, _, err := st.unlockedLesson(q.LessonID); err != nil {
		return SubmitResult{}, err
	}

	attempt, err := quiz.NewAttempt(learnerID, q, answer, s.now())
	if err != nil {
		return SubmitResult{}, err
	}
	attempt, err = s.store.RecordAttempt(ctx, attempt)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("record attempt: %w", err)
	}

	s.logEvent(ctx, learnerID, EventQuizAttempted, map[string]any{
		"quiz_id":       q.ID,
		"lesson_id":     q.LessonID,
		"is_correct":    attempt.IsCorrect,
		"points_earned": attempt.PointsEarned,
	})
	if attempt.PointsEarned > 0 {
		s.leaderboardChanged(ctx, learnerID, "quiz_answered")
	}

	return SubmitResult{
		Attempt:       attempt,
		IsCorrect:     attempt.IsCorrect,
		PointsEarned:  attempt.PointsEarned,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}, nil
}
