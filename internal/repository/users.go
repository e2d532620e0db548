package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/V-25K/Guess-sub004/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository reads and writes player profiles in Postgres. It is the
// authoritative store for total_points; the leaderboard sorted set is only
// an index over it and is rebuilt from these queries.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const profileColumns = `
	id, username, display_name, avatar_url,
	total_points, level, challenges_solved, streak_days,
	last_active, created_at, is_active
`

// GetProfile retrieves an active player's profile by ID
func (r *UserRepository) GetProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM users
		WHERE id = $1 AND is_active = true
	`

	var user models.UserProfile
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.AvatarURL,
		&user.TotalPoints,
		&user.Level,
		&user.ChallengesSolved,
		&user.StreakDays,
		&user.LastActive,
		&user.CreatedAt,
		&user.IsActive,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// TopByPoints returns active players ordered by total points descending.
// Used as the leaderboard fallback when the sorted set is empty or down.
func (r *UserRepository) TopByPoints(ctx context.Context, limit, offset int) ([]models.UserProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM users
		WHERE is_active = true
		ORDER BY total_points DESC, username ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// ScoredUsers returns up to limit active players ordered by points, the
// working set for leaderboard refresh and fallback rank counting.
func (r *UserRepository) ScoredUsers(ctx context.Context, limit int) ([]models.UserProfile, error) {
	return r.TopByPoints(ctx, limit, 0)
}

// CountPlayers counts active players
func (r *UserRepository) CountPlayers(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE is_active = true`
	var count int
	err := r.db.QueryRow(ctx, query).Scan(&count)
	return count, err
}

// AddPoints atomically adds delta to a player's total and returns the new
// total. Concurrent awards are serialized by the database.
func (r *UserRepository) AddPoints(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	query := `
		UPDATE users
		SET total_points = total_points + $2,
		    last_active = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND is_active = true
		RETURNING total_points
	`

	var total int
	err := r.db.QueryRow(ctx, query, id, delta).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return total, nil
}

func scanProfiles(rows pgx.Rows) ([]models.UserProfile, error) {
	users := []models.UserProfile{}
	for rows.Next() {
		var user models.UserProfile
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.DisplayName,
			&user.AvatarURL,
			&user.TotalPoints,
			&user.Level,
			&user.ChallengesSolved,
			&user.StreakDays,
			&user.LastActive,
			&user.CreatedAt,
			&user.IsActive,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
