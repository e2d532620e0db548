package models

import "github.com/google/uuid"

// LeaderboardEntry represents a user's position on the leaderboard.
// Rank uses competition ranking: users with equal points share a rank and
// the next distinct score skips ahead by the number of ties.
type LeaderboardEntry struct {
	Rank             int       `json:"rank"`
	UserID           uuid.UUID `json:"user_id"`
	Username         string    `json:"username"`
	TotalPoints      int       `json:"total_points"`
	Level            int       `json:"level"`
	ChallengesSolved int       `json:"challenges_solved"`
	IsCurrentUser    bool      `json:"is_current_user"`
}

// LeaderboardPage is the API response for a paginated leaderboard view.
// UserRank is the requesting user's own rank, present even when that user
// does not appear on the current page; nil when they have no recorded score.
type LeaderboardPage struct {
	Entries         []LeaderboardEntry `json:"entries"`
	UserRank        *int               `json:"user_rank"`
	TotalEntries    int                `json:"total_entries"`
	TotalPages      int                `json:"total_pages"`
	CurrentPage     int                `json:"current_page"`
	HasNextPage     bool               `json:"has_next_page"`
	HasPreviousPage bool               `json:"has_previous_page"`
}

// TopPlayersResponse is the API response for a plain top-N query.
type TopPlayersResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	TotalUsers  int                `json:"total_users"`
}
