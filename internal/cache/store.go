// Package cache abstracts the key-value store behind a Store interface so
// the limiter and ranker never depend on a concrete client. Production uses
// the Redis implementation; tests and Redis-less dev runs use MemoryStore.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key or sorted-set member does not exist.
var ErrNotFound = errors.New("cache: not found")

// MemberScore is one sorted-set member with its score.
type MemberScore struct {
	Member string
	Score  float64
}

// Store is the capability set the ranking and rate-limiting layer requires
// of any key-value backend: plain strings, atomic counters with expiry, and
// a sorted set with rank/score range queries.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	ZAdd(ctx context.Context, key, member string, score float64) error
	ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	// ZRevRangeWithScores returns the slice [start, stop] (inclusive, -1 for
	// the last element) of members ordered by score descending.
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]MemberScore, error)
	// ZCount counts members with score in [min, max]. Bounds use Redis
	// syntax: a number, "(number" for exclusive, or "-inf"/"+inf".
	ZCount(ctx context.Context, key, min, max string) (int64, error)
	ZCard(ctx context.Context, key string) (int64, error)
	ZRem(ctx context.Context, key string, members ...string) error
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error
}
