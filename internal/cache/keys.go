package cache

import (
	"strconv"
	"strings"
)

// LeaderboardKey is the sorted set holding userID → total points.
const LeaderboardKey = "leaderboard:points"

const rateLimitPrefix = "ratelimit"

// Key joins segments into the canonical "{entity}:{identifier}[:{qualifier}]"
// form. Empty segments are skipped so keys never contain double or
// leading/trailing colons.
func Key(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		segments = append(segments, p)
	}
	return strings.Join(segments, ":")
}

// RateLimitKey builds the counter key for one rate-limit window bucket,
// e.g. "ratelimit:leaderboard:203.0.113.9:29451123".
func RateLimitKey(key string, windowIdx int64) string {
	return Key(rateLimitPrefix, key, strconv.FormatInt(windowIdx, 10))
}

// UserProfileKey builds the cache key for a user's profile blob.
func UserProfileKey(userID string) string {
	return Key("user", userID, "profile")
}
