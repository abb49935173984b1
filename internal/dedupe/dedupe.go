// Package dedupe coalesces concurrent identical read requests into a
// single execution. The in-flight registry lives per process: across a
// fleet of stateless instances it is a best-effort optimization, not a
// coordination mechanism.
package dedupe

import (
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Deduplicator tracks in-flight read operations keyed by fingerprint.
// At most one live execution exists per fingerprint at any instant;
// every caller attached to it observes the same outcome, success or
// failure. The registry entry is purged the moment the operation
// settles — a later identical call always re-executes (and therefore
// re-consults the cache) instead of reusing a stale record.
type Deduplicator struct {
	group singleflight.Group

	executed  atomic.Uint64
	coalesced atomic.Uint64
}

// New creates a Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{}
}

// Stats holds the deduplicator's counters.
type Stats struct {
	Executed  uint64 `json:"executed"`
	Coalesced uint64 `json:"coalesced"`
}

// Do runs work under the fingerprint. Mutating operations (readOnly ==
// false) always execute directly: coalescing duplicate writes would
// silently drop side effects, so N concurrent identical writes produce
// N executions.
func (d *Deduplicator) Do(fingerprint string, readOnly bool, work func() (any, error)) (any, error) {
	if !readOnly {
		d.executed.Add(1)
		return work()
	}

	v, err, shared := d.group.Do(fingerprint, func() (any, error) {
		d.executed.Add(1)
		return work()
	})
	if shared {
		d.coalesced.Add(1)
	}
	return v, err
}

// Stats returns a snapshot of the counters.
func (d *Deduplicator) Stats() Stats {
	return Stats{
		Executed:  d.executed.Load(),
		Coalesced: d.coalesced.Load(),
	}
}
