// Package apierr normalizes arbitrary upstream failures into a closed
// set of classified kinds with an explicit retryability flag. Every
// other pipeline component branches on the classification, never on
// raw error shapes.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the closed set of failure classifications.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindNetwork        Kind = "network"
	KindNotFound       Kind = "not_found"
	KindOverload       Kind = "overload"
	KindValidation     Kind = "validation"
	KindUnknown        Kind = "unknown"
)

// Classified is a normalized error record. It wraps the raw error so
// errors.Is/As still reach the cause.
type Classified struct {
	Kind      Kind
	Retryable bool
	// HTTPStatus is the upstream status when one was present, 0 otherwise.
	HTTPStatus int
	raw        error
}

func (e *Classified) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.raw)
}

func (e *Classified) Unwrap() error { return e.raw }

// Message returns the raw error message, safe to surface to callers:
// it never includes stack traces or credentials, only what the
// upstream reported.
func (e *Classified) Message() string {
	if e.raw == nil {
		return string(e.Kind)
	}
	return e.raw.Error()
}

// statusCarrier is the minimal shape an error needs for status-based
// classification. outline.APIError implements it.
type statusCarrier interface {
	HTTPStatus() int
}

// NewValidation builds a Classified validation error for argument
// failures rejected before reaching the executor.
func NewValidation(err error) *Classified {
	return &Classified{Kind: KindValidation, Retryable: false, raw: err}
}

// Classify maps an arbitrary failure onto exactly one Classified.
// Already-classified errors pass through unchanged so retry loops can
// call it idempotently. Pure function, no side effects.
func Classify(err error) *Classified {
	if err == nil {
		return nil
	}

	var already *Classified
	if errors.As(err, &already) {
		return already
	}

	status := 0
	var sc statusCarrier
	if errors.As(err, &sc) {
		status = sc.HTTPStatus()
	}
	msg := strings.ToLower(err.Error())

	// Rule order matters. Rate limiting wins over everything else,
	// including auth failures whose underlying cause is a rate limit —
	// those must stay retryable, not be treated as permanent.
	switch {
	case status == http.StatusTooManyRequests || isRateLimitMessage(msg):
		return &Classified{Kind: KindOverload, Retryable: true, HTTPStatus: status, raw: err}

	case isTransientStatus(status) || isConnectionMessage(msg):
		return &Classified{Kind: KindNetwork, Retryable: true, HTTPStatus: status, raw: err}

	case status == http.StatusUnauthorized || status == http.StatusForbidden || isAuthMessage(msg):
		return &Classified{Kind: KindAuthentication, Retryable: false, HTTPStatus: status, raw: err}

	case status == http.StatusNotFound || strings.Contains(msg, "not found"):
		return &Classified{Kind: KindNotFound, Retryable: false, HTTPStatus: status, raw: err}

	default:
		// Fail closed: unrecognized conditions are not retried.
		return &Classified{Kind: KindUnknown, Retryable: false, HTTPStatus: status, raw: err}
	}
}

func isTransientStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

var rateLimitTokens = []string{
	"too many requests",
	"rate limit",
	"rate-limit",
	"rate limited",
	"429",
}

func isRateLimitMessage(msg string) bool {
	for _, tok := range rateLimitTokens {
		if strings.Contains(msg, tok) {
			return true
		}
	}
	return false
}

var connectionTokens = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
	"timed out",
	"deadline exceeded",
	"no such host",
	"eof",
}

func isConnectionMessage(msg string) bool {
	for _, tok := range connectionTokens {
		if strings.Contains(msg, tok) {
			return true
		}
	}
	return false
}

var authTokens = []string{
	"unauthorized",
	"invalid api key",
	"invalid token",
	"expired token",
	"invalid credentials",
	"forbidden",
}

func isAuthMessage(msg string) bool {
	for _, tok := range authTokens {
		if strings.Contains(msg, tok) {
			return true
		}
	}
	return false
}
