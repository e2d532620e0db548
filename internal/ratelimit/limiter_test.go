package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/V-25K/Guess-sub004/internal/cache"
)

func newTestLimiter(store cache.Store, at time.Time) *Limiter {
	l := NewLimiter(store, zerolog.Nop())
	l.now = func() time.Time { return at }
	return l
}

func TestCheckAdmitsUpToLimitThenDenies(t *testing.T) {
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_400_000)
	limiter := newTestLimiter(cache.NewMemoryStore(), at)

	for i, wantRemaining := range []int{4, 3, 2, 1, 0} {
		res, err := limiter.Check(ctx, "guess:u1", 5, 60)
		if err != nil {
			t.Fatalf("check %d: unexpected error: %v", i+1, err)
		}
		if !res.Allowed {
			t.Fatalf("check %d: expected request to be allowed", i+1)
		}
		if res.Remaining != wantRemaining {
			t.Fatalf("check %d: remaining = %d, want %d", i+1, res.Remaining, wantRemaining)
		}
	}

	res, err := limiter.Check(ctx, "guess:u1", 5, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatalf("expected request over the limit to be denied")
	}
	if res.Remaining != 0 {
		t.Fatalf("denied request remaining = %d, want 0", res.Remaining)
	}
	if res.Current != 5 {
		t.Fatalf("denied request current = %d, want 5", res.Current)
	}
}

func TestCheckAllowsAgainInNextWindow(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	start := time.UnixMilli(1_700_000_400_000) // on a window boundary
	limiter := newTestLimiter(store, start)

	for i := 0; i < 5; i++ {
		if res, _ := limiter.Check(ctx, "guess:u1", 5, 60); !res.Allowed {
			t.Fatalf("setup check %d unexpectedly denied", i+1)
		}
	}

	// One second into the next window the previous 5 still weigh ~4.9,
	// which is under the limit again.
	limiter.now = func() time.Time { return start.Add(61 * time.Second) }
	res, err := limiter.Check(ctx, "guess:u1", 5, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected request in new window to be allowed")
	}
}

func TestCheckKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_400_000)
	limiter := newTestLimiter(cache.NewMemoryStore(), at)

	if res, _ := limiter.Check(ctx, "guess:u1", 1, 60); !res.Allowed {
		t.Fatalf("expected first key to be allowed")
	}
	if res, _ := limiter.Check(ctx, "guess:u2", 1, 60); !res.Allowed {
		t.Fatalf("expected second key to be allowed independently")
	}
	if res, _ := limiter.Check(ctx, "guess:u1", 1, 60); res.Allowed {
		t.Fatalf("expected first key to be denied after its limit")
	}
}

func TestCheckPreviousWindowDecays(t *testing.T) {
	ctx := context.Background()
	windowStart := time.UnixMilli(1_700_000_400_000)

	// Fresh store per sample: previous bucket holds 10, current holds 0.
	sample := func(fraction float64) int {
		store := cache.NewMemoryStore()
		at := windowStart.Add(time.Duration(fraction * float64(time.Minute)))
		limiter := newTestLimiter(store, at)

		prevIdx := at.UnixMilli()/60_000 - 1
		if err := store.Set(ctx, cache.RateLimitKey("guess:u1", prevIdx), "10", 0); err != nil {
			t.Fatalf("failed to seed previous bucket: %v", err)
		}

		res, err := limiter.Check(ctx, "guess:u1", 100, 60)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return res.Current
	}

	previous := sample(0.1)
	for _, fraction := range []float64{0.4, 0.7, 0.95} {
		current := sample(fraction)
		if current >= previous {
			t.Fatalf("weighted count did not decay: %d then %d at fraction %v", previous, current, fraction)
		}
		if current < 1 {
			t.Fatalf("weighted count fell below the admitted request at fraction %v", fraction)
		}
		previous = current
	}
}

func TestCheckFailsOpenOnStorageErrors(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(&erroringStore{}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		res, err := limiter.Check(ctx, "guess:u1", 5, 60)
		if err != nil {
			t.Fatalf("fail-open check returned error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("expected fail-open check to allow")
		}
		if res.Remaining != 5 {
			t.Fatalf("fail-open remaining = %d, want 5", res.Remaining)
		}
		if res.Current != 0 {
			t.Fatalf("fail-open current = %d, want 0", res.Current)
		}
	}
}

func TestCheckFailsOpenWhenIncrementFails(t *testing.T) {
	ctx := context.Background()
	store := &erroringStore{reads: cache.NewMemoryStore()}
	limiter := newTestLimiter(store, time.UnixMilli(1_700_000_400_000))

	res, err := limiter.Check(ctx, "guess:u1", 5, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed || res.Remaining != 5 {
		t.Fatalf("expected fail-open result, got %+v", res)
	}
}

func TestCheckRejectsInvalidPolicy(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(cache.NewMemoryStore(), zerolog.Nop())

	if _, err := limiter.Check(ctx, "guess:u1", 0, 60); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := limiter.Check(ctx, "guess:u1", 5, -1); err == nil {
		t.Fatalf("expected error for negative window")
	}
}

var errStoreDown = errors.New("store down")

// erroringStore fails every write, and every read unless a read delegate is
// provided.
type erroringStore struct {
	reads cache.Store
}

func (s *erroringStore) Get(ctx context.Context, key string) (string, error) {
	if s.reads != nil {
		return s.reads.Get(ctx, key)
	}
	return "", errStoreDown
}

func (s *erroringStore) Set(context.Context, string, string, time.Duration) error {
	return errStoreDown
}

func (s *erroringStore) Del(context.Context, ...string) error { return errStoreDown }

func (s *erroringStore) IncrBy(context.Context, string, int64) (int64, error) {
	return 0, errStoreDown
}

func (s *erroringStore) Expire(context.Context, string, time.Duration) error { return errStoreDown }

func (s *erroringStore) ZAdd(context.Context, string, string, float64) error { return errStoreDown }

func (s *erroringStore) ZIncrBy(context.Context, string, float64, string) (float64, error) {
	return 0, errStoreDown
}

func (s *erroringStore) ZScore(context.Context, string, string) (float64, error) {
	return 0, errStoreDown
}

func (s *erroringStore) ZRevRangeWithScores(context.Context, string, int64, int64) ([]cache.MemberScore, error) {
	return nil, errStoreDown
}

func (s *erroringStore) ZCount(context.Context, string, string, string) (int64, error) {
	return 0, errStoreDown
}

func (s *erroringStore) ZCard(context.Context, string) (int64, error) { return 0, errStoreDown }

func (s *erroringStore) ZRem(context.Context, string, ...string) error { return errStoreDown }

func (s *erroringStore) ZRemRangeByRank(context.Context, string, int64, int64) error {
	return errStoreDown
}
