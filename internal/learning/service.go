// Package learning serves the learner-facing operations of the onboarding
// program. It loads state from the store, runs the progress, ranking and
// quiz engines over it and writes the results back.
package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/learner"
	"github.com/ggproduction/onboarding/internal/progress"
	"github.com/ggproduction/onboarding/internal/store"
)

const (
	defaultTopK           = 10
	defaultLeaderboardTTL = 30 * time.Second
)

// Cache stores JSON values with a TTL. *cache.Cache satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Publisher broadcasts change notifications. realtime buses satisfy it.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Config wires the service. Only Store is required.
type Config struct {
	Store          store.Store
	Cache          Cache
	Publisher      Publisher
	Events         EventLogger
	TopK           int
	RankedRole     learner.Role
	LeaderboardTTL time.Duration
	Now            func() time.Time
}

// Service implements the learner operations.
type Service struct {
	store          store.Store
	cache          Cache
	publisher      Publisher
	events         EventLogger
	topK           int
	rankedRole     learner.Role
	leaderboardTTL time.Duration
	now            func() time.Time
}

// NewService creates a Service from cfg, filling in defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("learning: store is required")
	}
	s := &Service{
		store:          cfg.Store,
		cache:          cfg.Cache,
		publisher:      cfg.Publisher,
		events:         cfg.Events,
		topK:           cfg.TopK,
		rankedRole:     cfg.RankedRole,
		leaderboardTTL: cfg.LeaderboardTTL,
		now:            cfg.Now,
	}
	if s.events == nil {
		s.events = NopEventLogger{}
	}
	if s.topK <= 0 {
		s.topK = defaultTopK
	}
	if s.rankedRole == "" {
		s.rankedRole = learner.RoleTrainee
	}
	if !s.rankedRole.Valid() {
		return nil, fmt.Errorf("learning: invalid ranked role %q", s.rankedRole)
	}
	if s.leaderboardTTL <= 0 {
		s.leaderboardTTL = defaultLeaderboardTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// learnerState is a learner's view of the active curriculum.
type learnerState struct {
	days     []curriculum.Day
	records  map[string]progress.Record
	snapshot progress.Snapshot
}

// lesson finds lessonID in the active curriculum and reports whether its day
// is locked.
func (st learnerState) lesson(lessonID string) (curriculum.Day, curriculum.Lesson, bool, error) {
	day, lesson, ok := curriculum.FindLesson(st.days, lessonID)
	if !ok {
		return curriculum.Day{}, curriculum.Lesson{}, false, apperr.NotFound("lesson", lessonID)
	}
	dp, ok := st.snapshot.Day(day.Number)
	if !ok {
		return curriculum.Day{}, curriculum.Lesson{}, false, apperr.DataIntegrity("day %d missing from snapshot", day.Number)
	}
	return day, lesson, dp.IsLocked, nil
}

// unlockedLesson is lesson that refuses lessons of locked days.
func (st learnerState) unlockedLesson(lessonID string) (curriculum.Day, curriculum.Lesson, error) {
	day, lesson, locked, err := st.lesson(lessonID)
	if err != nil {
		return curriculum.Day{}, curriculum.Lesson{}, err
	}
	if locked {
		return curriculum.Day{}, curriculum.Lesson{}, apperr.Forbidden(fmt.Sprintf("day %d is locked", day.Number))
	}
	return day, lesson, nil
}

func (s *Service) loadCurriculum(ctx context.Context) ([]curriculum.Day, error) {
	days, err := s.store.ListDays(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	lessons, err := s.store.ListLessons(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return curriculum.Assemble(days, lessons, true)
}

func (s *Service) loadState(ctx context.Context, learnerID string) (learnerState, error) {
	if learnerID == "" {
		return learnerState{}, apperr.InvalidInput("learner_id", "is required")
	}
	days, err := s.loadCurriculum(ctx)
	if err != nil {
		return learnerState{}, err
	}
	records, err := s.store.GetProgress(ctx, learnerID)
	if err != nil {
		return learnerState{}, fmt.Errorf("get progress: %w", err)
	}
	snap, err := progress.Compute(learnerID, days, records)
	if err != nil {
		return learnerState{}, err
	}
	return learnerState{days: days, records: records, snapshot: snap}, nil
}

// EnsureLearner returns the learner's profile, creating it from l on first
// sight. A new profile changes the ranked population, so the leaderboard is
// refreshed.
func (s *Service) EnsureLearner(ctx context.Context, l learner.Learner) (learner.Learner, error) {
	if l.ID == "" {
		return learner.Learner{}, apperr.InvalidInput("learner_id", "is required")
	}
	existing, err := s.store.GetLearner(ctx, l.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return learner.Learner{}, fmt.Errorf("get learner: %w", err)
	}
	created, err := s.store.EnsureLearner(ctx, l)
	if err != nil {
		return learner.Learner{}, fmt.Errorf("ensure learner: %w", err)
	}
	slog.Info("learner profile created", "learner_id", created.ID, "role", created.Role)
	s.leaderboardChanged(ctx, created.ID, "learner_joined")
	return created, nil
}

func (s *Service) logEvent(ctx context.Context, learnerID, eventType string, data map[string]any) {
	err := s.events.LogEvent(ctx, Event{
		LearnerID: learnerID,
		EventType: eventType,
		Data:      data,
		CreatedAt: s.now(),
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "learner_id", learnerID, "error", err)
	}
}
