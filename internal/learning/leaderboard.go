package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/learner"
	"github.com/ggproduction/onboarding/internal/progress"
	"github.com/ggproduction/onboarding/internal/ranking"
	"github.com/ggproduction/onboarding/internal/realtime"
	"github.com/ggproduction/onboarding/internal/report"
)

const defaultTrainingDays = 7

// standings is the cached input of every leaderboard view.
type standings struct {
	Learners  []ranking.LearnerPoints `json:"learners"`
	Completed map[string]int          `json:"completed"`
}

func (s *Service) leaderboardKey() string {
	return "leaderboard:v1:" + string(s.rankedRole)
}

// standings loads ranked learners and their completed lesson counts, through
// the cache when one is configured. Cache failures fall back to the store.
func (s *Service) standings(ctx context.Context) (standings, error) {
	key := s.leaderboardKey()
	if s.cache != nil {
		var cached standings
		found, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			slog.Warn("leaderboard cache read failed", "key", key, "error", err)
		} else if found {
			return cached, nil
		}
	}

	learners, err := s.store.ListLearnerPoints(ctx, s.rankedRole)
	if err != nil {
		return standings{}, fmt.Errorf("list learner points: %w", err)
	}
	completed, err := s.store.CompletedLessonCounts(ctx)
	if err != nil {
		return standings{}, fmt.Errorf("count completed lessons: %w", err)
	}
	st := standings{Learners: learners, Completed: completed}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, st, s.leaderboardTTL); err != nil {
			slog.Warn("leaderboard cache write failed", "key", key, "error", err)
		}
	}
	return st, nil
}

// leaderboardChanged drops the cached standings and tells live viewers to
// refresh. Failures are logged; the write that caused them already succeeded.
func (s *Service) leaderboardChanged(ctx context.Context, learnerID, reason string) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, s.leaderboardKey()); err != nil {
			slog.Warn("leaderboard cache invalidation failed", "error", err)
		}
	}
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(realtime.Notification{
		Reason:    reason,
		LearnerID: learnerID,
		At:        s.now(),
	})
	if err != nil {
		slog.Warn("encode leaderboard notification", "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, realtime.LeaderboardChannel, payload); err != nil {
		slog.Warn("leaderboard publish failed", "reason", reason, "error", err)
	}
}

// LeaderboardEntry is a leaderboard row with the learner's completed lessons.
type LeaderboardEntry struct {
	ranking.Entry
	CompletedLessons int `json:"completed_lessons"`
}

// Leaderboard is the top of the ranking as seen by one viewer.
type Leaderboard struct {
	Entries       []LeaderboardEntry `json:"leaderboard"`
	ViewerRank    int                `json:"current_user_rank"`
	TotalLearners int                `json:"total_users"`
}

// Leaderboard returns the top ranked learners with viewerID's own rank. A
// viewer outside the ranked role is ranked against the board by points.
func (s *Service) Leaderboard(ctx context.Context, viewerID string) (Leaderboard, error) {
	if viewerID == "" {
		return Leaderboard{}, apperr.InvalidInput("learner_id", "is required")
	}
	viewer, err := s.store.GetLearner(ctx, viewerID)
	if err != nil {
		return Leaderboard{}, fmt.Errorf("get learner: %w", err)
	}
	st, err := s.standings(ctx)
	if err != nil {
		return Leaderboard{}, err
	}

	board, err := ranking.BuildBoard(
		ranking.LearnerPoints{ID: viewer.ID, FullName: viewer.DisplayName(), Points: viewer.Points},
		st.Learners,
		s.topK,
	)
	if err != nil {
		return Leaderboard{}, err
	}

	out := Leaderboard{
		Entries:       make([]LeaderboardEntry, len(board.Entries)),
		ViewerRank:    board.ViewerRank,
		TotalLearners: board.TotalLearners,
	}
	for i, e := range board.Entries {
		out.Entries[i] = LeaderboardEntry{Entry: e, CompletedLessons: st.Completed[e.ID]}
	}
	return out, nil
}

// PublicStats is the anonymous program summary shown on the landing page.
type PublicStats struct {
	DeploymentRate    int `json:"deploymentRate"`
	GraduatedTrainees int `json:"graduatedTrainees"`
	TrainingDays      int `json:"trainingDays"`
	TotalTrainees     int `json:"totalTrainees"`
	ActiveTrainees    int `json:"activeTrainees"`
}

// DefaultPublicStats is served when the statistics cannot be computed.
func DefaultPublicStats() PublicStats {
	return PublicStats{TrainingDays: defaultTrainingDays}
}

// PublicStats counts ranked learners and those who completed every lesson of
// the active curriculum.
func (s *Service) PublicStats(ctx context.Context) (PublicStats, error) {
	days, err := s.loadCurriculum(ctx)
	if err != nil {
		return PublicStats{}, err
	}
	st, err := s.standings(ctx)
	if err != nil {
		return PublicStats{}, err
	}

	stats := DefaultPublicStats()
	if len(days) > 0 {
		stats.TrainingDays = days[len(days)-1].Number
	}
	total := curriculum.CountLessons(days)

	stats.TotalTrainees = len(st.Learners)
	if total > 0 {
		for _, l := range st.Learners {
			if st.Completed[l.ID] >= total {
				stats.GraduatedTrainees++
			}
		}
	}
	stats.ActiveTrainees = stats.TotalTrainees - stats.GraduatedTrainees
	stats.DeploymentRate = progress.Percentage(stats.GraduatedTrainees, stats.TotalTrainees)
	return stats, nil
}

// ProgressReport returns one report row per ranked learner, best first.
// Only staff may read it.
func (s *Service) ProgressReport(ctx context.Context, requesterID string) ([]report.LearnerRow, error) {
	if err := s.requireStaff(ctx, requesterID); err != nil {
		return nil, err
	}
	days, err := s.loadCurriculum(ctx)
	if err != nil {
		return nil, err
	}
	total := curriculum.CountLessons(days)

	learners, err := s.store.ListLearners(ctx, s.rankedRole)
	if err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	completed, err := s.store.CompletedLessonCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count completed lessons: %w", err)
	}

	points := make([]ranking.LearnerPoints, len(learners))
	byID := make(map[string]learner.Learner, len(learners))
	for i, l := range learners {
		points[i] = ranking.LearnerPoints{ID: l.ID, FullName: l.DisplayName(), Points: l.Points}
		byID[l.ID] = l
	}

	rows := make([]report.LearnerRow, 0, len(learners))
	for _, e := range ranking.TopK(points, len(points)) {
		l := byID[e.ID]
		done := min(completed[e.ID], total)
		rows = append(rows, report.LearnerRow{
			Rank:             e.Rank,
			Name:             e.FullName,
			Email:            l.Email,
			Department:       l.Department,
			Points:           e.Points,
			CompletedLessons: done,
			TotalLessons:     total,
			Percentage:       progress.Percentage(done, total),
		})
	}
	return rows, nil
}

func (s *Service) requireStaff(ctx context.Context, requesterID string) error {
	if requesterID == "" {
		return apperr.InvalidInput("learner_id", "is required")
	}
	l, err := s.store.GetLearner(ctx, requesterID)
	if err != nil {
		return apperr.Forbidden("staff access required")
	}
	if !l.Role.IsStaff() {
		return apperr.Forbidden("staff access required")
	}
	return nil
}
