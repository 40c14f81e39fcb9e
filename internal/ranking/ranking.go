// Package ranking computes leaderboard positions from learner point totals.
//
// Rank follows competition ranking: a learner's rank is one more than the
// number of learners with strictly more points, so tied learners share a
// rank.
package ranking

import (
	"sort"
	"strings"

	"github.com/ggproduction/onboarding/internal/apperr"
)

// LearnerPoints is one learner's point total.
type LearnerPoints struct {
	ID       string `json:"user_id"`
	FullName string `json:"full_name"`
	Points   int    `json:"points"`
}

// Rank is a learner's position among the ranked learners.
type Rank struct {
	Rank          int `json:"rank"`
	TotalLearners int `json:"total_learners"`
}

// ComputeRank ranks viewer against all. The viewer's own points are used as
// given, so a viewer missing from all (staff, or filtered upstream) still gets
// a rank. TotalLearners counts all.
func ComputeRank(viewer LearnerPoints, all []LearnerPoints) (Rank, error) {
	if strings.TrimSpace(viewer.ID) == "" {
		return Rank{}, apperr.InvalidInput("learner_id", "is required")
	}
	ahead := 0
	for _, lp := range all {
		if lp.ID != viewer.ID && lp.Points > viewer.Points {
			ahead++
		}
	}
	return Rank{Rank: ahead + 1, TotalLearners: len(all)}, nil
}

// Entry is one leaderboard row.
type Entry struct {
	LearnerPoints
	Rank          int  `json:"rank"`
	IsCurrentUser bool `json:"is_current_user"`
}

// TopK returns the k learners with the most points, best first. Learners with
// equal points share a rank; their display order falls back to ID so it is
// stable across calls.
func TopK(all []LearnerPoints, k int) []Entry {
	if k <= 0 || len(all) == 0 {
		return []Entry{}
	}
	sorted := make([]LearnerPoints, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		return sorted[i].ID < sorted[j].ID
	})

	if k > len(sorted) {
		k = len(sorted)
	}
	entries := make([]Entry, k)
	for i := 0; i < k; i++ {
		rank := i + 1
		if i > 0 && sorted[i].Points == sorted[i-1].Points {
			rank = entries[i-1].Rank
		}
		entries[i] = Entry{LearnerPoints: sorted[i], Rank: rank}
	}
	return entries
}

// Board is the leaderboard as seen by one viewer.
type Board struct {
	Entries       []Entry `json:"leaderboard"`
	ViewerRank    int     `json:"current_user_rank"`
	TotalLearners int     `json:"total_users"`
}

// BuildBoard returns the top k entries with the viewer flagged. When the
// viewer falls outside the window their rank is computed against everyone.
func BuildBoard(viewer LearnerPoints, all []LearnerPoints, k int) (Board, error) {
	r, err := ComputeRank(viewer, all)
	if err != nil {
		return Board{}, err
	}

	board := Board{
		Entries:       TopK(all, k),
		ViewerRank:    r.Rank,
		TotalLearners: r.TotalLearners,
	}
	for i := range board.Entries {
		if board.Entries[i].ID == viewer.ID {
			board.Entries[i].IsCurrentUser = true
			board.ViewerRank = board.Entries[i].Rank
		}
	}
	return board, nil
}
