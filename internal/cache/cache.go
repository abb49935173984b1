// Package cache stores prior read results keyed by operation
// fingerprint. Entries carry a TTL, an optional upstream modification
// timestamp for revalidation, and tags for write-triggered
// invalidation. Two store tiers exist: an in-process map (always on)
// and an optional sqlite-backed tier that survives restarts.
//
// Contract: a cache failure is never a request failure. Every error
// from a store degrades to a miss and the live path runs.
package cache

import (
	"context"
	"time"
)

// Entry is one cached read result. Owned exclusively by the cache
// layer; callers only ever see the Data bytes.
type Entry struct {
	Data     []byte
	StoredAt time.Time
	TTL      time.Duration
	// ValidatedAt is the upstream resource's modification timestamp
	// recorded at cache time. Zero means the entry does not support
	// timestamp revalidation.
	ValidatedAt time.Time
	Tags        []string
}

// Expired reports whether the entry's TTL has elapsed at now.
func (e *Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return true
	}
	return now.After(e.StoredAt.Add(e.TTL))
}

// Store is the storage tier interface. Implementations must be safe
// for concurrent use and must apply TTL expiry on Get.
type Store interface {
	// Get returns the entry for key, or (nil, false) on miss/expiry.
	Get(ctx context.Context, key string) (*Entry, bool)

	// Set stores an entry, overwriting any previous one for key.
	Set(ctx context.Context, key string, e Entry) error

	// Delete removes an entry. Idempotent.
	Delete(ctx context.Context, key string) error

	// InvalidateTags removes every entry carrying any of the tags.
	InvalidateTags(ctx context.Context, tags ...string) error

	// Len reports the number of live entries (expired ones may count
	// until lazily collected).
	Len(ctx context.Context) int
}
