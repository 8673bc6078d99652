// Package cache provides an in-memory TTL store for completion responses,
// keyed by a caller-supplied request fingerprint.
package cache

import (
	"sync"
	"time"
)

// Entry is a cached value with expiry and access bookkeeping.
type Entry struct {
	Key            string
	Value          any
	ExpiresAt      time.Time
	AccessCount    int64
	LastAccessedAt time.Time
}

// Store is a mutex-guarded key/value store with per-entry TTL.
//
// Note that Store does not deduplicate concurrent misses: two callers that
// miss on the same key will both reach the transport and race to populate
// the entry, last writer winning. Callers that need single-flight semantics
// must layer them on top.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry

	now func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Get returns the value for key, or ok=false if the key is absent or its
// entry has expired. An expired entry is evicted as a side effect. On a hit
// the entry's access count and last-access time are updated.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.After(e.ExpiresAt) {
		delete(s.entries, key)
		return nil, false
	}

	e.AccessCount++
	e.LastAccessedAt = now
	return e.Value, true
}

// Put inserts or overwrites the entry for key with ExpiresAt = now + ttl,
// then sweeps any expired entries.
func (s *Store) Put(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[key] = &Entry{
		Key:            key,
		Value:          value,
		ExpiresAt:      now.Add(ttl),
		LastAccessedAt: now,
	}
	s.sweepLocked(now)
}

// Sweep removes all expired entries and returns how many were evicted.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *Store) sweepLocked(now time.Time) int {
	var evicted int
	for key, e := range s.entries {
		if now.After(e.ExpiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}
	return evicted
}

// Info returns a copy of the entry's bookkeeping for key without counting
// as an access. ok=false if the key is absent (expired entries still held
// are reported as-is).
func (s *Store) Info(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
}

// Len returns the number of entries currently held, including any that have
// expired but not yet been swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
