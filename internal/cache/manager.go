package cache

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Operation classes the manager knows TTLs for. Listings are stable,
// search result sets churn, single-node lookups change rarely but get
// revalidated, so each class carries its own TTL.
const (
	ClassList   = "list"
	ClassSearch = "search"
	ClassLookup = "lookup"
)

// Policy configures the manager.
type Policy struct {
	// TTL maps an operation class to its entry lifetime. Classes not
	// present fall back to DefaultTTL.
	TTL map[string]time.Duration

	// DefaultTTL applies to unknown classes. Zero disables caching
	// for them.
	DefaultTTL time.Duration

	// MaxArgBytes excludes operations whose canonical arguments
	// exceed this bound, keeping key cardinality in check. Zero means
	// no bound.
	MaxArgBytes int
}

// DefaultPolicy returns the manager's default TTLs.
func DefaultPolicy() Policy {
	return Policy{
		TTL: map[string]time.Duration{
			ClassList:   5 * time.Minute,
			ClassSearch: time.Minute,
			ClassLookup: 10 * time.Minute,
		},
		DefaultTTL:  time.Minute,
		MaxArgBytes: 4096,
	}
}

// TTLFor resolves the TTL for an operation class.
func (p Policy) TTLFor(class string) time.Duration {
	if ttl, ok := p.TTL[class]; ok {
		return ttl
	}
	return p.DefaultTTL
}

// Stats holds the manager's counters. Snapshot type, safe to copy.
type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Revalidated   uint64 `json:"revalidated"`
	Invalidations uint64 `json:"invalidations"`
	Entries       int    `json:"entries"`
}

// ProbeFunc checks the upstream resource's last-modification
// timestamp. Used for revalidating lookup entries without re-fetching
// the payload.
type ProbeFunc func(ctx context.Context) (time.Time, error)

// Manager applies the caching policy over a Store: class-based TTLs,
// the argument size bound, timestamp revalidation, and tag
// invalidation. Store failures degrade to misses.
type Manager struct {
	store  Store
	policy Policy

	hits          atomic.Uint64
	misses        atomic.Uint64
	revalidated   atomic.Uint64
	invalidations atomic.Uint64
}

// NewManager creates a Manager over the given store.
func NewManager(store Store, policy Policy) *Manager {
	return &Manager{store: store, policy: policy}
}

// Cacheable reports whether an operation of the given class with the
// given canonical arguments may be cached at all.
func (m *Manager) Cacheable(class string, canonicalArgs []byte) bool {
	if m.policy.TTLFor(class) <= 0 {
		return false
	}
	if m.policy.MaxArgBytes > 0 && len(canonicalArgs) > m.policy.MaxArgBytes {
		return false
	}
	return true
}

// Lookup returns the cached payload for key when it is still valid.
// When the entry supports timestamp revalidation and probe is non-nil,
// a cheap metadata probe decides freshness: an upstream timestamp no
// newer than the recorded one keeps the entry; anything else is a miss.
func (m *Manager) Lookup(ctx context.Context, key string, probe ProbeFunc) ([]byte, bool) {
	e, ok := m.store.Get(ctx, key)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}

	if !e.ValidatedAt.IsZero() && probe != nil {
		upstream, err := probe(ctx)
		if err != nil {
			// Probe failure: be conservative, refetch via the live path.
			m.misses.Add(1)
			return nil, false
		}
		if upstream.After(e.ValidatedAt) {
			if err := m.store.Delete(ctx, key); err != nil {
				log.Printf("WARNING: cache delete after stale revalidation: %v", err)
			}
			m.misses.Add(1)
			return nil, false
		}
		m.revalidated.Add(1)
	}

	m.hits.Add(1)
	return e.Data, true
}

// Store caches a successful read result. modifiedAt is the upstream
// resource's modification timestamp when known (enables revalidation);
// pass the zero time otherwise. Failures are logged, never returned.
func (m *Manager) Store(ctx context.Context, key string, data []byte, class string, tags []string, modifiedAt time.Time) {
	err := m.store.Set(ctx, key, Entry{
		Data:        data,
		StoredAt:    time.Now(),
		TTL:         m.policy.TTLFor(class),
		ValidatedAt: modifiedAt,
		Tags:        tags,
	})
	if err != nil {
		log.Printf("WARNING: cache store: %v", err)
	}
}

// Invalidate removes every entry tagged with any of the given tags.
// Synchronous with respect to the caller: when it returns, a
// subsequent read through the manager cannot observe pre-write data.
func (m *Manager) Invalidate(ctx context.Context, tags ...string) {
	if len(tags) == 0 {
		return
	}
	m.invalidations.Add(1)
	if err := m.store.InvalidateTags(ctx, tags...); err != nil {
		log.Printf("WARNING: cache invalidate %v: %v", tags, err)
	}
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats(ctx context.Context) Stats {
	return Stats{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Revalidated:   m.revalidated.Load(),
		Invalidations: m.invalidations.Load(),
		Entries:       m.store.Len(ctx),
	}
}
