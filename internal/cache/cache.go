// Package cache provides the process-wide in-memory TTL store used to memoize
// vision-verification results and listing searches.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL applies when Set is called with a non-positive TTL.
const DefaultTTL = 30 * time.Minute

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is a concurrent-safe key→value cache with per-entry expiry. Entries
// expire lazily on read and via the background sweep started by Start.
// Construct one per process and inject it; there is no package singleton.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry

	hits   atomic.Int64
	misses atomic.Int64

	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// Stats is a point-in-time view of cache performance.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Option configures a Store.
type Option func(*Store)

// WithSweepInterval overrides the background sweep cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.sweepEvery = d
		}
	}
}

// New creates an empty Store. Call Start to enable the background sweep and
// Stop at shutdown.
func New(opts ...Option) *Store {
	s := &Store{
		entries:    make(map[string]entry),
		sweepEvery: time.Minute,
		stop:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Key builds a deterministic cache key from a named prefix and a parameter
// map. Parameters are sorted so semantically identical requests collide to
// the same key regardless of map iteration order.
func Key(prefix string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}

	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%x", prefix, h[:16])
}

// Get returns the value for key, or false if absent or expired.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		// Re-check under write lock: a concurrent Set may have refreshed it.
		if cur, still := s.entries[key]; still && time.Now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	return e.value, true
}

// Set stores value under key for ttl (DefaultTTL if non-positive). Returns
// false instead of panicking on unusable input so callers can always fall
// back to recomputing.
func (s *Store) Set(key string, value any, ttl time.Duration) bool {
	if key == "" || value == nil {
		return false
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return true
}

// Has reports whether key holds an unexpired entry without counting a hit.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return ok && time.Now().Before(e.expiresAt)
}

// Invalidate removes key if present.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Clear removes every entry and returns the number removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]entry)
	s.mu.Unlock()
	return n
}

// Stats returns cache performance counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	n := len(s.entries)
	s.mu.RUnlock()

	hits := s.hits.Load()
	misses := s.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Entries: n, Hits: hits, Misses: misses, HitRate: rate}
}

// Start launches the background sweep goroutine.
func (s *Store) Start() {
	go func() {
		ticker := time.NewTicker(s.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// Stop terminates the background sweep. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweep() {
	now := time.Now()
	s.mu.Lock()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
}
