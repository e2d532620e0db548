package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile represents a player in the users table.
type UserProfile struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Username         string    `json:"username" db:"username"`
	DisplayName      string    `json:"display_name" db:"display_name"`
	AvatarURL        *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	TotalPoints      int       `json:"total_points" db:"total_points"`
	Level            int       `json:"level" db:"level"`
	ChallengesSolved int       `json:"challenges_solved" db:"challenges_solved"`
	StreakDays       int       `json:"streak_days" db:"streak_days"`
	LastActive       time.Time `json:"last_active" db:"last_active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	IsActive         bool      `json:"is_active" db:"is_active"`
}
