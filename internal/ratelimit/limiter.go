// Package ratelimit provides a sliding-window rate limiter backed by the
// key-value store. The window is approximated with two fixed counter buckets
// (current and previous window) whose contributions are linearly weighted,
// giving O(1) storage per key. On any storage error the limiter fails open:
// an outage of the limiter must never become an outage of the service it
// protects.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/V-25K/Guess-sub004/internal/cache"
)

// Result is the outcome of one rate-limit check. ResetTime is the epoch-ms
// timestamp at which the current window rolls over.
type Result struct {
	Allowed   bool  `json:"allowed"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
	Current   int   `json:"current"`
}

// Limiter checks request quotas over a sliding time window.
type Limiter struct {
	store cache.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewLimiter(store cache.Store, log zerolog.Logger) *Limiter {
	return &Limiter{
		store: store,
		log:   log.With().Str("component", "ratelimit").Logger(),
		now:   time.Now,
	}
}

// Check decides whether the request identified by key is within limit
// requests per windowSeconds. An error is returned only for invalid policy
// arguments; storage failures are absorbed and reported as an allow.
//
// Admitted requests increment the current window's counter and refresh its
// expiry to twice the window so the previous bucket stays readable for one
// extra cycle. The increment and the expiry are two separate calls, not a
// transaction: an increment can survive briefly without its expiry reset,
// which self-corrects within 2×windowSeconds.
func (l *Limiter) Check(ctx context.Context, key string, limit, windowSeconds int) (Result, error) {
	if limit <= 0 {
		return Result{}, fmt.Errorf("ratelimit: limit must be positive, got %d", limit)
	}
	if windowSeconds <= 0 {
		return Result{}, fmt.Errorf("ratelimit: windowSeconds must be positive, got %d", windowSeconds)
	}

	windowMs := int64(windowSeconds) * 1000
	now := l.now().UnixMilli()
	currentIdx := now / windowMs
	previousIdx := currentIdx - 1

	currentKey := cache.RateLimitKey(key, currentIdx)
	previousKey := cache.RateLimitKey(key, previousIdx)

	currentCount, err := l.readCount(ctx, currentKey)
	if err != nil {
		return l.failOpen(key, "read current window", err, limit, now, windowMs), nil
	}
	previousCount, err := l.readCount(ctx, previousKey)
	if err != nil {
		return l.failOpen(key, "read previous window", err, limit, now, windowMs), nil
	}

	fractionElapsed := float64(now%windowMs) / float64(windowMs)
	weighted := float64(currentCount) + float64(previousCount)*(1-fractionElapsed)

	result := Result{
		Allowed:   weighted < float64(limit),
		Remaining: limit - int(math.Ceil(weighted)),
		ResetTime: (currentIdx + 1) * windowMs,
		Current:   int(math.Ceil(weighted)),
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}

	if result.Allowed {
		if _, err := l.store.IncrBy(ctx, currentKey, 1); err != nil {
			return l.failOpen(key, "increment", err, limit, now, windowMs), nil
		}
		if err := l.store.Expire(ctx, currentKey, 2*time.Duration(windowSeconds)*time.Second); err != nil {
			// The counter still expires with whatever TTL an earlier admit
			// set, so only log.
			l.log.Warn().Err(err).Str("key", key).Msg("failed to refresh counter expiry")
		}
		// Report the state including this admitted request.
		result.Current++
		result.Remaining = limit - result.Current
		if result.Remaining < 0 {
			result.Remaining = 0
		}
	}

	return result, nil
}

func (l *Limiter) readCount(ctx context.Context, counterKey string) (int64, error) {
	val, err := l.store.Get(ctx, counterKey)
	if errors.Is(err, cache.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %q holds non-integer value: %w", counterKey, err)
	}
	return count, nil
}

// failOpen converts a storage failure into an unconditional allow.
func (l *Limiter) failOpen(key, op string, err error, limit int, now, windowMs int64) Result {
	l.log.Error().Err(err).Str("operation", op).Str("key", key).Msg("rate limit check failed, failing open")
	return Result{
		Allowed:   true,
		Remaining: limit,
		ResetTime: now + windowMs,
		Current:   0,
	}
}
