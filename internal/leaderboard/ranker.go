// Package leaderboard maintains a ranked view of players by total points.
// The primary index is a sorted set in the key-value store, giving O(log N)
// reads; every read operation degrades to a relational scan when the sorted
// set is empty or the store errors. Ranks use competition ranking ("1224"):
// tied scores share a rank and the next distinct score resumes at
// 1 + count of strictly greater scores.
package leaderboard

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/V-25K/Guess-sub004/internal/cache"
	"github.com/V-25K/Guess-sub004/internal/models"
	"github.com/V-25K/Guess-sub004/internal/repository"
)

// DefaultScanLimit bounds the relational working set used by the fallback
// rank computation and by RefreshLeaderboard. Ranks past this many players
// are approximate on the fallback path.
const DefaultScanLimit = 1000

// DefaultPageSize is used when a caller asks for a non-positive page size.
const DefaultPageSize = 25

// ProfileSource resolves player profiles and provides the relational
// fallback queries. Implemented by repository.UserRepository.
type ProfileSource interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	TopByPoints(ctx context.Context, limit, offset int) ([]models.UserProfile, error)
	ScoredUsers(ctx context.Context, limit int) ([]models.UserProfile, error)
	CountPlayers(ctx context.Context) (int, error)
}

// Ranker answers top-N and rank-of-user queries. It absorbs storage
// failures: read operations fall back to the relational store or return
// safe defaults, never an infrastructure error.
type Ranker struct {
	store     cache.Store
	users     ProfileSource
	log       zerolog.Logger
	scanLimit int
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithScanLimit overrides the bounded working set used by the fallback
// path and refresh.
func WithScanLimit(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.scanLimit = n
		}
	}
}

func NewRanker(store cache.Store, users ProfileSource, log zerolog.Logger, opts ...Option) *Ranker {
	r := &Ranker{
		store:     store,
		users:     users,
		log:       log.With().Str("component", "leaderboard").Logger(),
		scanLimit: DefaultScanLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// UpdateScore sets a player's score absolutely (last-write-wins). Use it
// only for idempotent full-state writes such as refresh; concurrent deltas
// must go through IncrementScore.
func (r *Ranker) UpdateScore(ctx context.Context, userID uuid.UUID, points int) error {
	err := r.store.ZAdd(ctx, cache.LeaderboardKey, userID.String(), float64(points))
	if err != nil {
		r.log.Error().Err(err).Str("operation", "update_score").Str("user_id", userID.String()).Msg("failed to update leaderboard score")
	}
	return err
}

// IncrementScore atomically adds delta to a player's score server-side and
// returns the new score. The atomicity lives in the store, so concurrent
// increments never lose updates.
func (r *Ranker) IncrementScore(ctx context.Context, userID uuid.UUID, delta int) (int, error) {
	score, err := r.store.ZIncrBy(ctx, cache.LeaderboardKey, float64(delta), userID.String())
	if err != nil {
		r.log.Error().Err(err).Str("operation", "increment_score").Str("user_id", userID.String()).Msg("failed to increment leaderboard score")
		return 0, err
	}
	return int(score), nil
}

// GetUserScore returns a player's cached score, or nil when the player has
// no entry in the sorted set. Storage failures are logged and reported as
// nil, the same as an absent member.
func (r *Ranker) GetUserScore(ctx context.Context, userID uuid.UUID) *int {
	score, err := r.store.ZScore(ctx, cache.LeaderboardKey, userID.String())
	if errors.Is(err, cache.ErrNotFound) {
		return nil
	}
	if err != nil {
		r.log.Error().Err(err).Str("operation", "get_user_score").Str("user_id", userID.String()).Msg("failed to read leaderboard score")
		return nil
	}
	points := int(score)
	return &points
}

// GetTotalPlayerCount returns the sorted set cardinality, falling back to a
// relational count when the set is empty or unavailable so a cold cache is
// never misreported as zero players.
func (r *Ranker) GetTotalPlayerCount(ctx context.Context) int {
	count, err := r.store.ZCard(ctx, cache.LeaderboardKey)
	if err != nil {
		r.log.Error().Err(err).Str("operation", "total_player_count").Msg("failed to read leaderboard cardinality, using database")
	}
	if err == nil && count > 0 {
		return int(count)
	}

	dbCount, err := r.users.CountPlayers(ctx)
	if err != nil {
		r.log.Error().Err(err).Str("operation", "total_player_count").Msg("fallback player count failed")
		return 0
	}
	return dbCount
}

// GetTopPlayers returns the score-descending slice [offset, offset+limit)
// with competition ranks and resolved profile attributes. On an empty or
// failing sorted set it serves the same page from the relational store.
func (r *Ranker) GetTopPlayers(ctx context.Context, limit, offset int) []models.LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	members, err := r.store.ZRevRangeWithScores(ctx, cache.LeaderboardKey, int64(offset), int64(offset+limit-1))
	if err != nil {
		r.log.Error().Err(err).Str("operation", "top_players").Str("key", cache.LeaderboardKey).Msg("sorted set range failed, using database")
		return r.topPlayersFromDB(ctx, limit, offset)
	}
	if len(members) == 0 {
		return r.topPlayersFromDB(ctx, limit, offset)
	}

	entries := make([]models.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		userID, err := uuid.Parse(m.Member)
		if err != nil {
			r.log.Warn().Str("member", m.Member).Msg("skipping non-uuid leaderboard member")
			continue
		}

		rank, err := r.rankForScore(ctx, m.Score, r.countGreaterInSet)
		if err != nil {
			r.log.Error().Err(err).Str("operation", "top_players").Str("key", cache.LeaderboardKey).Msg("rank computation failed, using database")
			return r.topPlayersFromDB(ctx, limit, offset)
		}

		entry := models.LeaderboardEntry{
			Rank:        rank,
			UserID:      userID,
			TotalPoints: int(m.Score),
		}
		if profile, err := r.users.GetProfile(ctx, userID); err == nil {
			entry.Username = profile.Username
			entry.Level = profile.Level
			entry.ChallengesSolved = profile.ChallengesSolved
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			r.log.Warn().Err(err).Str("user_id", userID.String()).Msg("profile lookup failed for leaderboard entry")
		}
		entries = append(entries, entry)
	}
	return entries
}

// GetUserRank returns a player's competition rank, or nil when the player
// has no recorded score. A sorted set miss or failure is answered from the
// relational store.
func (r *Ranker) GetUserRank(ctx context.Context, userID uuid.UUID) (*int, error) {
	score, err := r.store.ZScore(ctx, cache.LeaderboardKey, userID.String())
	if err == nil {
		rank, rankErr := r.rankForScore(ctx, score, r.countGreaterInSet)
		if rankErr == nil {
			return &rank, nil
		}
		err = rankErr
	}
	if !errors.Is(err, cache.ErrNotFound) {
		r.log.Error().Err(err).Str("operation", "user_rank").Str("user_id", userID.String()).Msg("sorted set rank failed, using database")
	}

	return r.userRankFromDB(ctx, userID)
}

// GetLeaderboardWithUser composes one leaderboard page with the total count
// and the requesting user's own rank, which is fetched unconditionally so a
// "your rank" panel can render even when the user is off-page.
func (r *Ranker) GetLeaderboardWithUser(ctx context.Context, userID uuid.UUID, pageSize, page int) models.LeaderboardPage {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 0 {
		page = 0
	}

	entries := r.GetTopPlayers(ctx, pageSize, page*pageSize)
	total := r.GetTotalPlayerCount(ctx)

	userRank, err := r.GetUserRank(ctx, userID)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID.String()).Msg("own-rank lookup failed for leaderboard page")
	}

	for i := range entries {
		if entries[i].UserID == userID {
			entries[i].IsCurrentUser = true
		}
	}

	totalPages := (total + pageSize - 1) / pageSize
	return models.LeaderboardPage{
		Entries:         entries,
		UserRank:        userRank,
		TotalEntries:    total,
		TotalPages:      totalPages,
		CurrentPage:     page,
		HasNextPage:     page < totalPages-1,
		HasPreviousPage: page > 0,
	}
}

// RefreshLeaderboard rebuilds the sorted set from the relational store,
// re-applying each player's total as an absolute write. It is idempotent
// and safe to run concurrently with reads; during a rebuild readers may see
// a partially-updated set, which converges by the end of the pass.
func (r *Ranker) RefreshLeaderboard(ctx context.Context) error {
	users, err := r.users.ScoredUsers(ctx, r.scanLimit)
	if err != nil {
		r.log.Error().Err(err).Str("operation", "refresh").Msg("failed to read scored users")
		return err
	}

	var failed int
	for _, u := range users {
		if err := r.store.ZAdd(ctx, cache.LeaderboardKey, u.ID.String(), float64(u.TotalPoints)); err != nil {
			failed++
		}
	}
	if failed > 0 {
		r.log.Warn().Int("failed", failed).Int("total", len(users)).Str("operation", "refresh").Msg("some leaderboard entries failed to sync")
	} else {
		r.log.Info().Int("synced", len(users)).Msg("leaderboard refreshed")
	}
	return nil
}

// RemoveUser deletes a player from the sorted set. The relational store is
// untouched.
func (r *Ranker) RemoveUser(ctx context.Context, userID uuid.UUID) error {
	err := r.store.ZRem(ctx, cache.LeaderboardKey, userID.String())
	if err != nil {
		r.log.Error().Err(err).Str("operation", "remove_user").Str("user_id", userID.String()).Msg("failed to remove leaderboard member")
	}
	return err
}

// ClearCache removes every member from the sorted set.
func (r *Ranker) ClearCache(ctx context.Context) error {
	err := r.store.ZRemRangeByRank(ctx, cache.LeaderboardKey, 0, -1)
	if err != nil {
		r.log.Error().Err(err).Str("operation", "clear_cache").Msg("failed to clear leaderboard")
	}
	return err
}

// countGreaterFunc reports how many players hold a score strictly above s.
type countGreaterFunc func(ctx context.Context, s float64) (int64, error)

// rankForScore is the single competition-rank computation shared by the
// primary and fallback paths, so the two cannot diverge in ranking
// semantics: rank = 1 + |{players with score > s}|.
func (r *Ranker) rankForScore(ctx context.Context, score float64, countGreater countGreaterFunc) (int, error) {
	greater, err := countGreater(ctx, score)
	if err != nil {
		return 0, err
	}
	return int(greater) + 1, nil
}

func (r *Ranker) countGreaterInSet(ctx context.Context, s float64) (int64, error) {
	min := "(" + strconv.FormatFloat(s, 'f', -1, 64)
	return r.store.ZCount(ctx, cache.LeaderboardKey, min, "+inf")
}

// countGreaterInSlice builds a countGreaterFunc over a bounded relational
// working set. Ranks beyond the working-set bound are approximate.
func countGreaterInSlice(working []models.UserProfile) countGreaterFunc {
	return func(_ context.Context, s float64) (int64, error) {
		var n int64
		for _, u := range working {
			if float64(u.TotalPoints) > s {
				n++
			}
		}
		return n, nil
	}
}

func (r *Ranker) topPlayersFromDB(ctx context.Context, limit, offset int) []models.LeaderboardEntry {
	profiles, err := r.users.TopByPoints(ctx, limit, offset)
	if err != nil {
		r.log.Error().Err(err).Str("operation", "top_players_fallback").Msg("relational leaderboard query failed")
		return []models.LeaderboardEntry{}
	}
	if len(profiles) == 0 {
		return []models.LeaderboardEntry{}
	}

	working, err := r.users.ScoredUsers(ctx, r.scanLimit)
	if err != nil {
		r.log.Error().Err(err).Str("operation", "top_players_fallback").Msg("working set query failed")
		return []models.LeaderboardEntry{}
	}
	countGreater := countGreaterInSlice(working)

	entries := make([]models.LeaderboardEntry, 0, len(profiles))
	for _, p := range profiles {
		rank, err := r.rankForScore(ctx, float64(p.TotalPoints), countGreater)
		if err != nil {
			return []models.LeaderboardEntry{}
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:             rank,
			UserID:           p.ID,
			Username:         p.Username,
			TotalPoints:      p.TotalPoints,
			Level:            p.Level,
			ChallengesSolved: p.ChallengesSolved,
		})
	}
	return entries
}

func (r *Ranker) userRankFromDB(ctx context.Context, userID uuid.UUID) (*int, error) {
	profile, err := r.users.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Error().Err(err).Str("operation", "user_rank_fallback").Str("user_id", userID.String()).Msg("relational rank lookup failed")
		return nil, err
	}

	working, err := r.users.ScoredUsers(ctx, r.scanLimit)
	if err != nil {
		r.log.Error().Err(err).Str("operation", "user_rank_fallback").Str("user_id", userID.String()).Msg("working set query failed")
		return nil, err
	}

	rank, err := r.rankForScore(ctx, float64(profile.TotalPoints), countGreaterInSlice(working))
	if err != nil {
		return nil, err
	}
	return &rank, nil
}
