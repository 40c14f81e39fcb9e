package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/learner"
	"github.com/ggproduction/onboarding/internal/progress"
	"github.com/ggproduction/onboarding/internal/quiz"
	"github.com/ggproduction/onboarding/internal/ranking"
)

type progressKey struct {
	learnerID string
	lessonID  string
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	days     map[string]curriculum.Day
	lessons  map[string]curriculum.Lesson
	learners map[string]learner.Learner
	progress map[progressKey]progress.Record
	quizzes  map[string]quiz.Item
	attempts []quiz.Attempt
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		days:     make(map[string]curriculum.Day),
		lessons:  make(map[string]curriculum.Lesson),
		learners: make(map[string]learner.Learner),
		progress: make(map[progressKey]progress.Record),
		quizzes:  make(map[string]quiz.Item),
		now:      time.Now,
	}
}

func (s *MemoryStore) ListDays(_ context.Context, activeOnly bool) ([]curriculum.Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make([]curriculum.Day, 0, len(s.days))
	for _, d := range s.days {
		if activeOnly && !d.IsActive {
			continue
		}
		d.Lessons = nil
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Number < days[j].Number })
	return days, nil
}

func (s *MemoryStore) ListLessons(_ context.Context, dayID string) ([]curriculum.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lessons := make([]curriculum.Lesson, 0, len(s.lessons))
	for _, l := range s.lessons {
		if dayID != "" && l.DayID != dayID {
			continue
		}
		lessons = append(lessons, l)
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].DayID != lessons[j].DayID {
			return s.days[lessons[i].DayID].Number < s.days[lessons[j].DayID].Number
		}
		return lessons[i].OrderIndex < lessons[j].OrderIndex
	})
	return lessons, nil
}

func (s *MemoryStore) GetLesson(_ context.Context, id string) (curriculum.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lessons[id]
	if !ok {
		return curriculum.Lesson{}, apperr.NotFound("lesson", id)
	}
	return l, nil
}

// UpsertDay matches existing days by day number.
func (s *MemoryStore) UpsertDay(_ context.Context, d curriculum.Day) (curriculum.Day, error) {
	if d.Number <= 0 {
		return curriculum.Day{}, apperr.InvalidInput("day_number", "must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d.Lessons = nil
	d.ID = ""
	for id, existing := range s.days {
		if existing.Number == d.Number {
			d.ID = id
			break
		}
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.UpdatedAt = s.now()
	s.days[d.ID] = d
	return d, nil
}

// UpsertLesson matches existing lessons by (day, order index).
func (s *MemoryStore) UpsertLesson(_ context.Context, l curriculum.Lesson) (curriculum.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.days[l.DayID]; !ok {
		return curriculum.Lesson{}, apperr.NotFound("day", l.DayID)
	}
	l.ID = ""
	for id, existing := range s.lessons {
		if existing.DayID == l.DayID && existing.OrderIndex == l.OrderIndex {
			l.ID = id
			break
		}
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	} else {
		existing := s.lessons[l.ID]
		l.RawContent, l.ProcessedAt = existing.RawContent, existing.ProcessedAt
	}
	s.lessons[l.ID] = l
	return l, nil
}

func (s *MemoryStore) InsertLesson(_ context.Context, l curriculum.Lesson) (curriculum.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.days[l.DayID]; !ok {
		return curriculum.Lesson{}, apperr.NotFound("day", l.DayID)
	}
	last := 0
	for _, existing := range s.lessons {
		if existing.DayID != l.DayID {
			continue
		}
		if existing.OrderIndex == l.OrderIndex {
			return curriculum.Lesson{}, apperr.InvalidInput("order_index", "is already used in this day")
		}
		last = max(last, existing.OrderIndex)
	}
	if l.OrderIndex == 0 {
		l.OrderIndex = last + 1
	}
	l.ID = uuid.NewString()
	l.RawContent, l.ProcessedAt = "", nil
	s.lessons[l.ID] = l
	return l, nil
}

func (s *MemoryStore) ReviseLessonContent(_ context.Context, lessonID string, r curriculum.Revision) (curriculum.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lessons[lessonID]
	if !ok {
		return curriculum.Lesson{}, apperr.NotFound("lesson", lessonID)
	}
	l = l.Revise(r)
	s.lessons[lessonID] = l
	return l, nil
}

func (s *MemoryStore) GetProgress(_ context.Context, learnerID string) (map[string]progress.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make(map[string]progress.Record)
	for k, rec := range s.progress {
		if k.learnerID == learnerID {
			records[k.lessonID] = rec
		}
	}
	return records, nil
}

func (s *MemoryStore) UpsertProgress(_ context.Context, learnerID, lessonID string, fn ProgressFunc) (progress.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.learners[learnerID]
	if !ok {
		return progress.Record{}, apperr.NotFound("learner", learnerID)
	}
	if _, ok := s.lessons[lessonID]; !ok {
		return progress.Record{}, apperr.NotFound("lesson", lessonID)
	}

	key := progressKey{learnerID: learnerID, lessonID: lessonID}
	var existing *progress.Record
	if rec, ok := s.progress[key]; ok {
		existing = &rec
	}
	next, award, err := fn(existing)
	if err != nil {
		return progress.Record{}, err
	}
	next.LearnerID = learnerID
	next.LessonID = lessonID
	s.progress[key] = next
	if award > 0 {
		l.Points += award
		s.learners[learnerID] = l
	}
	return next, nil
}

func (s *MemoryStore) CompletedLessonCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for k, rec := range s.progress {
		if rec.Status == progress.StatusCompleted {
			counts[k.learnerID]++
		}
	}
	return counts, nil
}

func (s *MemoryStore) EnsureLearner(_ context.Context, l learner.Learner) (learner.Learner, error) {
	if l.ID == "" {
		return learner.Learner{}, apperr.InvalidInput("id", "is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.learners[l.ID]; ok {
		return existing, nil
	}
	if l.Role == "" {
		l.Role = learner.RoleTrainee
	}
	if l.Points < 0 {
		l.Points = 0
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	s.learners[l.ID] = l
	return l, nil
}

func (s *MemoryStore) GetLearner(_ context.Context, id string) (learner.Learner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.learners[id]
	if !ok {
		return learner.Learner{}, apperr.NotFound("learner", id)
	}
	return l, nil
}

func (s *MemoryStore) ListLearners(_ context.Context, role learner.Role) ([]learner.Learner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]learner.Learner, 0, len(s.learners))
	for _, l := range s.learners {
		if role != "" && l.Role != role {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListLearnerPoints(ctx context.Context, role learner.Role) ([]ranking.LearnerPoints, error) {
	learners, err := s.ListLearners(ctx, role)
	if err != nil {
		return nil, err
	}
	points := make([]ranking.LearnerPoints, 0, len(learners))
	for _, l := range learners {
		points = append(points, ranking.LearnerPoints{ID: l.ID, FullName: l.DisplayName(), Points: l.Points})
	}
	return points, nil
}

func (s *MemoryStore) GetQuiz(_ context.Context, id string) (quiz.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok {
		return quiz.Item{}, apperr.NotFound("quiz", id)
	}
	return q, nil
}

func (s *MemoryStore) ListQuizzes(_ context.Context, lessonID string, activeOnly bool) ([]quiz.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []quiz.Item
	for _, q := range s.quizzes {
		if q.LessonID != lessonID || (activeOnly && !q.IsActive) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) InsertQuizzes(_ context.Context, items []quiz.Item) ([]quiz.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range items {
		if _, ok := s.lessons[q.LessonID]; !ok {
			return nil, apperr.NotFound("lesson", q.LessonID)
		}
	}
	out := make([]quiz.Item, 0, len(items))
	now := s.now()
	for _, q := range items {
		q.ID = uuid.NewString()
		q.Options = slices.Clone(q.Options)
		if q.CreatedAt.IsZero() {
			q.CreatedAt = now
		}
		s.quizzes[q.ID] = q
		out = append(out, q)
	}
	return out, nil
}

func (s *MemoryStore) SetQuizActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[id]
	if !ok {
		return apperr.NotFound("quiz", id)
	}
	q.IsActive = active
	s.quizzes[id] = q
	return nil
}

func (s *MemoryStore) ListAttempts(_ context.Context, learnerID string, quizIDs []string) ([]quiz.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []quiz.Attempt
	for _, a := range s.attempts {
		if a.LearnerID != learnerID {
			continue
		}
		if quizIDs != nil && !slices.Contains(quizIDs, a.QuizID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *MemoryStore) RecordAttempt(_ context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.learners[a.LearnerID]
	if !ok {
		return quiz.Attempt{}, apperr.NotFound("learner", a.LearnerID)
	}
	if _, ok := s.quizzes[a.QuizID]; !ok {
		return quiz.Attempt{}, apperr.NotFound("quiz", a.QuizID)
	}
	a.ID = uuid.NewString()
	if a.AttemptedAt.IsZero() {
		a.AttemptedAt = s.now()
	}
	s.attempts = append(s.attempts, a)
	if a.PointsEarned > 0 {
		l.Points += a.PointsEarned
		s.learners[a.LearnerID] = l
	}
	return a, nil
}
