// Package pipeline composes the resilient request path every operation
// flows through: fingerprint → dedupe → cache → retry → executor.
//
// Reads are deduplicated and cached; writes always execute and
// invalidate related cache entries before returning. All failures
// leaving the pipeline are classified (apierr.Classified); transient
// upstream failures, rate limiting included, are absorbed by the retry
// loop and never reach the caller.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/outlinedev/outline-mcp/internal/apierr"
	"github.com/outlinedev/outline-mcp/internal/cache"
	"github.com/outlinedev/outline-mcp/internal/dedupe"
	"github.com/outlinedev/outline-mcp/internal/retry"
)

// Class categorizes an operation for cacheability, deduplication, and
// retry policy selection.
type Class string

const (
	ClassList   Class = "list"
	ClassSearch Class = "search"
	ClassLookup Class = "lookup"
	ClassWrite  Class = "write"
)

// ReadOnly reports whether the class is safe to cache and coalesce.
func (c Class) ReadOnly() bool {
	return c != ClassWrite
}

// Operation is one request through the pipeline. Immutable once
// constructed; built per inbound call by the tool layer.
type Operation struct {
	// Name is the operation identifier (the tool name).
	Name string

	// Class selects cacheability, dedup eligibility, and retry policy.
	Class Class

	// Args are the normalized arguments; together with Name and
	// Credential they determine the fingerprint.
	Args map[string]any

	// Credential is the caller's opaque token. It flows into the
	// fingerprint (as a hash) and to the executor; it is never stored.
	Credential string

	// Run performs the upstream call.
	Run func(ctx context.Context) (any, error)

	// Probe, when set, checks the upstream modification timestamp so
	// a cache hit can be revalidated without re-fetching the payload.
	Probe cache.ProbeFunc

	// ResultModifiedAt, when set, extracts the resource's modification
	// timestamp from a fresh result, recorded for later revalidation.
	ResultModifiedAt func(result any) time.Time

	// Tags tag the cached entry for targeted invalidation.
	Tags []string

	// Invalidate lists the tags to purge after a successful write.
	Invalidate []string
}

// Policies maps operation classes to retry policies.
type Policies struct {
	Lookup retry.Policy
	Read   retry.Policy
	Write  retry.Policy
}

// DefaultPolicies returns the preset policies per class.
func DefaultPolicies() Policies {
	return Policies{
		Lookup: retry.QuickLookup,
		Read:   retry.StandardRead,
		Write:  retry.Write,
	}
}

// policyFor selects the retry policy for a class.
func (p Policies) policyFor(c Class) retry.Policy {
	switch c {
	case ClassLookup:
		return p.Lookup
	case ClassWrite:
		return p.Write
	default:
		return p.Read
	}
}

// Stats is a snapshot of the pipeline's counters.
type Stats struct {
	UpstreamCalls uint64       `json:"upstream_calls"`
	Cache         cache.Stats  `json:"cache"`
	Dedupe        dedupe.Stats `json:"dedupe"`
}

// Pipeline wires the shared cache and dedup registries with the retry
// policies. It holds no per-request state: concurrent requests
// interact only through those two registries.
type Pipeline struct {
	cache    *cache.Manager
	dedupe   *dedupe.Deduplicator
	policies Policies

	upstreamCalls atomic.Uint64
}

// New creates a Pipeline.
func New(cm *cache.Manager, dd *dedupe.Deduplicator, policies Policies) *Pipeline {
	return &Pipeline{cache: cm, dedupe: dd, policies: policies}
}

// Do executes the operation and returns its result as JSON. Cached and
// live paths return byte-identical payloads. Every error returned is a
// *apierr.Classified.
func (p *Pipeline) Do(ctx context.Context, op Operation) (json.RawMessage, error) {
	if op.Class == ClassWrite {
		return p.doWrite(ctx, op)
	}
	return p.doRead(ctx, op)
}

func (p *Pipeline) doWrite(ctx context.Context, op Operation) (json.RawMessage, error) {
	// Writes are never cached and never coalesced.
	data, err := p.runLive(ctx, op)
	if err != nil {
		return nil, err
	}
	// Invalidation is synchronous: once Do returns, a subsequent read
	// through the pipeline cannot observe pre-write cached data.
	p.cache.Invalidate(ctx, op.Invalidate...)
	return data, nil
}

func (p *Pipeline) doRead(ctx context.Context, op Operation) (json.RawMessage, error) {
	fingerprint, canonical, err := fingerprintOf(op)
	if err != nil {
		// Identity failure degrades to an uncached, uncoalesced call.
		return p.runLive(ctx, op)
	}

	result, err := p.dedupe.Do(fingerprint, true, func() (any, error) {
		if data, ok := p.cache.Lookup(ctx, fingerprint, op.Probe); ok {
			return json.RawMessage(data), nil
		}

		data, err := p.runLiveTimestamped(ctx, op, fingerprint, canonical)
		if err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(json.RawMessage), nil
}

// runLive executes the operation under its retry policy and encodes
// the result.
func (p *Pipeline) runLive(ctx context.Context, op Operation) (json.RawMessage, error) {
	result, err := retry.Do(ctx, p.policies.policyFor(op.Class), func(ctx context.Context) (any, error) {
		p.upstreamCalls.Add(1)
		return op.Run(ctx)
	})
	if err != nil {
		return nil, apierr.Classify(err)
	}
	return encode(result)
}

// runLiveTimestamped is runLive plus cache storage for read paths.
func (p *Pipeline) runLiveTimestamped(ctx context.Context, op Operation, fingerprint string, canonical []byte) (json.RawMessage, error) {
	result, err := retry.Do(ctx, p.policies.policyFor(op.Class), func(ctx context.Context) (any, error) {
		p.upstreamCalls.Add(1)
		return op.Run(ctx)
	})
	if err != nil {
		return nil, apierr.Classify(err)
	}

	data, encErr := encode(result)
	if encErr != nil {
		return nil, encErr
	}

	if p.cache.Cacheable(string(op.Class), canonical) {
		var modifiedAt time.Time
		if op.ResultModifiedAt != nil {
			modifiedAt = op.ResultModifiedAt(result)
		}
		p.cache.Store(ctx, fingerprint, data, string(op.Class), op.Tags, modifiedAt)
	}
	return data, nil
}

// Stats returns a snapshot of the pipeline, cache, and dedup counters.
func (p *Pipeline) Stats(ctx context.Context) Stats {
	return Stats{
		UpstreamCalls: p.upstreamCalls.Load(),
		Cache:         p.cache.Stats(ctx),
		Dedupe:        p.dedupe.Stats(),
	}
}

func fingerprintOf(op Operation) (string, []byte, error) {
	canonical, err := cache.CanonicalArgs(op.Args)
	if err != nil {
		return "", nil, err
	}
	fp, err := cache.Fingerprint(op.Name, op.Args, op.Credential)
	if err != nil {
		return "", nil, err
	}
	return fp, canonical, nil
}

func encode(result any) (json.RawMessage, error) {
	if raw, ok := result.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, apierr.Classify(fmt.Errorf("pipeline: encoding result: %w", err))
	}
	return data, nil
}
