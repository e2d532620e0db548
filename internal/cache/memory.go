package cache

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and by dev runs without a
// Redis address configured. All operations are guarded by one mutex; the
// workloads it serves are small enough that contention is not a concern.
type MemoryStore struct {
	mu      sync.Mutex
	strings map[string]memoryEntry
	zsets   map[string]map[string]float64
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strings: make(map[string]memoryEntry),
		zsets:   make(map[string]map[string]float64),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveEntry(key)
	if !ok {
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.strings[key] = entry
	return nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.strings, key)
		delete(s.zsets, key)
	}
	return nil
}

func (s *MemoryStore) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	entry, ok := s.liveEntry(key)
	if ok {
		parsed, err := strconv.ParseInt(entry.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %q is not an integer: %w", key, err)
		}
		current = parsed
	}

	current += delta
	entry.value = strconv.FormatInt(current, 10)
	s.strings[key] = entry
	return current, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveEntry(key)
	if !ok {
		return nil
	}
	entry.expiresAt = time.Now().Add(ttl)
	s.strings[key] = entry
	return nil
}

func (s *MemoryStore) ZAdd(_ context.Context, key, member string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.zset(key)[member] = score
	return nil
}

func (s *MemoryStore) ZIncrBy(_ context.Context, key string, delta float64, member string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.zset(key)
	set[member] += delta
	return set[member], nil
}

func (s *MemoryStore) ZScore(_ context.Context, key, member string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	score, ok := s.zsets[key][member]
	if !ok {
		return 0, ErrNotFound
	}
	return score, nil
}

func (s *MemoryStore) ZRevRangeWithScores(_ context.Context, key string, start, stop int64) ([]MemberScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]MemberScore, 0, len(s.zsets[key]))
	for member, score := range s.zsets[key] {
		members = append(members, MemberScore{Member: member, Score: score})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score > members[j].Score
		}
		return members[i].Member < members[j].Member
	})

	n := int64(len(members))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start >= n || start > stop {
		return []MemberScore{}, nil
	}
	return members[start : stop+1], nil
}

func (s *MemoryStore) ZCount(_ context.Context, key, min, max string) (int64, error) {
	lower, lowerExcl, err := parseScoreBound(min)
	if err != nil {
		return 0, err
	}
	upper, upperExcl, err := parseScoreBound(max)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, score := range s.zsets[key] {
		if score < lower || (lowerExcl && score == lower) {
			continue
		}
		if score > upper || (upperExcl && score == upper) {
			continue
		}
		count++
	}
	return count, nil
}

func (s *MemoryStore) ZCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.zsets[key])), nil
}

func (s *MemoryStore) ZRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, member := range members {
		delete(s.zsets[key], member)
	}
	return nil
}

func (s *MemoryStore) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error {
	// Rank range is ascending by score, so translate to the descending view.
	s.mu.Lock()
	n := int64(len(s.zsets[key]))
	s.mu.Unlock()
	if n == 0 {
		return nil
	}

	ascStart, ascStop := start, stop
	if ascStart < 0 {
		ascStart += n
	}
	if ascStop < 0 {
		ascStop += n
	}
	revStart := n - 1 - ascStop
	revStop := n - 1 - ascStart

	victims, err := s.ZRevRangeWithScores(ctx, key, revStart, revStop)
	if err != nil {
		return err
	}
	names := make([]string, len(victims))
	for i, v := range victims {
		names[i] = v.Member
	}
	return s.ZRem(ctx, key, names...)
}

// liveEntry returns the entry for key, evicting it first if expired.
// Callers must hold the mutex.
func (s *MemoryStore) liveEntry(key string) (memoryEntry, bool) {
	entry, ok := s.strings[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.strings, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// zset returns the sorted set for key, creating it when absent.
// Callers must hold the mutex.
func (s *MemoryStore) zset(key string) map[string]float64 {
	set, ok := s.zsets[key]
	if !ok {
		set = make(map[string]float64)
		s.zsets[key] = set
	}
	return set
}

// parseScoreBound parses a Redis-style score bound: a number, "(number" for
// an exclusive bound, or "-inf"/"+inf".
func parseScoreBound(bound string) (value float64, exclusive bool, err error) {
	switch strings.ToLower(bound) {
	case "-inf":
		return math.Inf(-1), false, nil
	case "+inf", "inf":
		return math.Inf(1), false, nil
	}
	if strings.HasPrefix(bound, "(") {
		exclusive = true
		bound = bound[1:]
	}
	value, err = strconv.ParseFloat(bound, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid score bound %q: %w", bound, err)
	}
	return value, exclusive, nil
}
