// Package retry wraps operations in a policy-driven retry loop.
// Failures are classified through apierr: non-retryable kinds surface
// immediately, transient kinds back off exponentially with jitter, and
// Overload gets an elevated minimum floor so rate-limited upstreams
// are given materially longer to recover than generic network blips.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/outlinedev/outline-mcp/internal/apierr"
)

// Policy configures one retry loop. Immutable; one instance per
// operation class.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration

	// MaxDelay caps any computed delay.
	MaxDelay time.Duration

	// JitterFactor randomizes each delay by ±factor (0.25 = ±25%) to
	// avoid thundering-herd retries across stateless instances.
	JitterFactor float64

	// OverloadFloor is the minimum delay before any retry of an
	// Overload-classified failure, applied from the very first retry.
	OverloadFloor time.Duration
}

// DefaultOverloadFloor is the floor used by the preset policies. The
// exact value is a tunable, not a constant the rest of the code may
// rely on; config can override it per deployment.
const DefaultOverloadFloor = 5 * time.Second

// Preset policies per operation class.
var (
	// QuickLookup is for cheap metadata probes: fail fast.
	QuickLookup = Policy{
		MaxAttempts:   2,
		BaseDelay:     250 * time.Millisecond,
		MaxDelay:      time.Second,
		JitterFactor:  0.25,
		OverloadFloor: DefaultOverloadFloor,
	}

	// StandardRead covers list/search/get operations.
	StandardRead = Policy{
		MaxAttempts:   10,
		BaseDelay:     time.Second,
		MaxDelay:      30 * time.Second,
		JitterFactor:  0.25,
		OverloadFloor: DefaultOverloadFloor,
	}

	// Write covers all mutating operations.
	Write = Policy{
		MaxAttempts:   15,
		BaseDelay:     time.Second,
		MaxDelay:      time.Minute,
		JitterFactor:  0.25,
		OverloadFloor: DefaultOverloadFloor,
	}

	// RateLimitRecovery is the long-tail policy for sustained upstream
	// throttling.
	RateLimitRecovery = Policy{
		MaxAttempts:   40,
		BaseDelay:     5 * time.Second,
		MaxDelay:      10 * time.Minute,
		JitterFactor:  0.25,
		OverloadFloor: DefaultOverloadFloor,
	}
)

// WithOverloadFloor returns a copy of the policy with the floor
// replaced. Zero floors are kept as configured defaults elsewhere.
func (p Policy) WithOverloadFloor(floor time.Duration) Policy {
	p.OverloadFloor = floor
	return p
}

// Delay computes the backoff before retry number `retry` (1-based:
// retry 1 follows the first failed attempt) for the given
// classification. Split out from Do so backoff math is testable
// without timers.
func (p Policy) Delay(retry int, kind apierr.Kind) time.Duration {
	base := p.BaseDelay
	if kind == apierr.KindOverload && base < p.OverloadFloor {
		// The floor applies before exponential growth, so even the
		// first retry waits at least the floor.
		base = p.OverloadFloor
	}

	d := time.Duration(float64(base) * math.Pow(2, float64(retry-1)))
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	if kind == apierr.KindOverload && d < p.OverloadFloor {
		d = p.OverloadFloor
	}

	if p.JitterFactor > 0 {
		// ±JitterFactor, uniform.
		span := p.JitterFactor * float64(d)
		d += time.Duration(span * (2*rand.Float64() - 1))
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Do runs op under the policy. It returns op's first successful result,
// or the last classified error once a non-retryable kind occurs or
// attempts exhaust. Errors are never swallowed: callers always see
// either a result or a *apierr.Classified.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var last *apierr.Classified

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		last = apierr.Classify(err)
		if !last.Retryable {
			return zero, last
		}
		if attempt == attempts {
			break
		}

		delay := p.Delay(attempt, last.Kind)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, apierr.Classify(ctx.Err())
		case <-timer.C:
		}
	}

	return zero, last
}
