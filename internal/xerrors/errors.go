// Package xerrors defines the error taxonomy shared by every component of
// the session engine. A single Kind-tagged Error type replaces the usual
// zoo of sentinel errors so callers can branch on Kind() while the
// underlying cause is still reachable through errors.Unwrap.
package xerrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an Error for programmatic handling by callers.
type Kind int

const (
	// Unknown is the zero value; never produced intentionally.
	Unknown Kind = iota

	// AuthRequired means no credentials are present or the session has
	// expired (HTTP 401, Twitter error code 89).
	AuthRequired

	// AuthFailed means login credentials were rejected.
	AuthFailed

	// TwoFactorRequired means the login flow needs a caller-supplied
	// verification code before it can proceed. FlowToken resumes it.
	TwoFactorRequired

	// EmailVerificationRequired means the login flow's LoginAcid subtask
	// fired and needs caller-supplied confirmation. FlowToken resumes it.
	EmailVerificationRequired

	// AccountLocked corresponds to Twitter error code 326.
	AccountLocked

	// AccountSuspended corresponds to Twitter error code 64.
	AccountSuspended

	// RateLimited means the retry policy exhausted its budget, or the
	// server-advertised wait exceeded the configured cap. ResetAt and
	// Endpoint are populated when known.
	RateLimited

	// TwitterApi wraps a non-empty errors[] array from a GraphQL/REST
	// response where data was null.
	TwitterApi

	// NotFound means a targeted lookup resolved to an unavailable/tombstone
	// variant rather than a concrete entity.
	NotFound

	// Network means a transport failure survived the retry budget.
	Network

	// Timeout means a per-request deadline was exceeded.
	Timeout

	// Corrupted means a Set-Cookie line, response body, or session file
	// could not be parsed.
	Corrupted

	// InvalidArgument means the caller supplied a value that violates a
	// documented precondition (e.g. an empty username).
	InvalidArgument
)

func (k Kind) String() string {
	switch k {
	case AuthRequired:
		return "AuthRequired"
	case AuthFailed:
		return "AuthFailed"
	case TwoFactorRequired:
		return "TwoFactorRequired"
	case EmailVerificationRequired:
		return "EmailVerificationRequired"
	case AccountLocked:
		return "AccountLocked"
	case AccountSuspended:
		return "AccountSuspended"
	case RateLimited:
		return "RateLimited"
	case TwitterApi:
		return "TwitterApi"
	case NotFound:
		return "NotFound"
	case Network:
		return "Network"
	case Timeout:
		return "Timeout"
	case Corrupted:
		return "Corrupted"
	case InvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type produced by every package in this
// module. It carries a Kind for programmatic dispatch, a human message, an
// optional wrapped cause, and kind-specific payload fields that are only
// meaningful for certain Kinds (documented per field).
type Error struct {
	kind    Kind
	message string
	cause   error

	// FlowToken resumes a login flow after TwoFactorRequired or
	// EmailVerificationRequired.
	FlowToken string

	// ResetAt is the rate-limit reset instant, populated on RateLimited.
	ResetAt time.Time

	// Endpoint identifies the endpoint that was rate limited.
	Endpoint string

	// Code and APIKind carry the Twitter-assigned error code and kind
	// string, populated on TwitterApi.
	Code    int
	APIKind string

	// Location names the input that failed to parse, populated on
	// Corrupted (e.g. "set-cookie", "session-file", "response-body").
	Location string
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind, wrapping cause so it remains
// reachable through errors.Unwrap / errors.Is / errors.As.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("xactions: %s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("xactions: %s: %s", e.kind, e.message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

// WithRateLimit attaches ResetAt/Endpoint to a RateLimited error and
// returns the receiver for chaining at the construction site.
func (e *Error) WithRateLimit(resetAt time.Time, endpoint string) *Error {
	e.ResetAt = resetAt
	e.Endpoint = endpoint
	return e
}

// WithAPIError attaches Code/APIKind to a TwitterApi error and returns the
// receiver for chaining at the construction site.
func (e *Error) WithAPIError(code int, apiKind string) *Error {
	e.Code = code
	e.APIKind = apiKind
	return e
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, xerrors.New(xerrors.RateLimited, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.kind == e.kind
	}
	return false
}

// Of reports whether err is an *Error of the given kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}

// As extracts the *Error from err, if any, mirroring errors.As.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
