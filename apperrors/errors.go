// Package apperrors defines the error taxonomy shared by every component:
// validation failures are surfaced immediately, not-found is a caller-visible
// miss, upstream provider failures are retryable, and conflicts mark a
// violated locking invariant.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: malformed filter, missing required article fields,
	// unknown doc type. Never retried.
	KindValidation
	// KindNotFound: unknown articleId/userId on a lookup.
	KindNotFound
	// KindUpstream: embedding/text-generation/index provider failure.
	// Retryable with backoff.
	KindUpstream
	// KindConflict: interleaving detected on the same articleId lock.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error carries a kind next to the usual message/cause pair.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return fmt.Sprintf("%s: %v", e.Msg, e.Err)
		}
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Upstream(err error, format string, args ...any) error {
	return &Error{Kind: KindUpstream, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an existing error, keeping the cause unwrappable.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf walks the error chain and returns the first taxonomy kind found.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsUpstream(err error) bool   { return KindOf(err) == KindUpstream }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }

// Retryable reports whether the retry policy applies: only transient
// upstream failures qualify, everything else fails fast.
func Retryable(err error) bool {
	return KindOf(err) == KindUpstream
}
