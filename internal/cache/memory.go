package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process cache tier: a mutex-guarded map with a
// capacity bound and oldest-stored-first eviction. Valid only within
// one process; multi-instance deployments are independent caches.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	capacity int
}

// DefaultCapacity bounds the in-memory tier when no capacity is
// configured.
const DefaultCapacity = 1024

// NewMemoryStore creates a MemoryStore holding at most capacity
// entries. capacity <= 0 uses DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		entries:  make(map[string]*Entry),
		capacity: capacity,
	}
}

// Get returns the entry for key. Expired entries are collected lazily
// and reported as a miss.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if e.Expired(time.Now()) {
		delete(s.entries, key)
		return nil, false
	}

	cp := *e
	return &cp, true
}

// Set stores an entry, evicting the oldest-stored entry when the
// capacity bound is reached.
func (s *MemoryStore) Set(_ context.Context, key string, e Entry) error {
	if e.TTL <= 0 {
		return nil
	}
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.capacity {
		s.evictOldestLocked()
	}
	s.entries[key] = &e
	return nil
}

// evictOldestLocked removes the entry with the earliest StoredAt.
// Linear scan; the capacity bound keeps this cheap.
func (s *MemoryStore) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range s.entries {
		if oldestKey == "" || e.StoredAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.StoredAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

// Delete removes an entry. Idempotent.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// InvalidateTags removes every entry carrying any of the given tags.
func (s *MemoryStore) InvalidateTags(_ context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		for _, t := range e.Tags {
			if _, hit := want[t]; hit {
				delete(s.entries, key)
				break
			}
		}
	}
	return nil
}

// Len reports the number of stored entries, including not-yet-collected
// expired ones.
func (s *MemoryStore) Len(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ Store = (*MemoryStore)(nil)
