// Package learner defines the learner profile shared by storage, auth and
// the learning service.
package learner

import (
	"time"

	"github.com/ggproduction/onboarding/internal/apperr"
)

// Role is a profile's role. Only trainees are ranked on the leaderboard.
type Role string

const (
	RoleTrainee Role = "trainee"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleTrainee, RoleTrainer, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may author content.
func (r Role) IsStaff() bool {
	return r == RoleTrainer || r == RoleAdmin
}

// ParseRole converts a wire value into a Role.
func ParseRole(v string) (Role, error) {
	r := Role(v)
	if !r.Valid() {
		return "", apperr.InvalidInput("role", "must be one of trainee, trainer, admin")
	}
	return r, nil
}

// Learner is a user profile. Points only ever grow.
type Learner struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Department string    `json:"department,omitempty"`
	Role       Role      `json:"role"`
	Points     int       `json:"points"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayName returns the name shown on the leaderboard.
func (l Learner) DisplayName() string {
	if l.FullName != "" {
		return l.FullName
	}
	if l.Email != "" {
		return l.Email
	}
	return "Unknown User"
}
