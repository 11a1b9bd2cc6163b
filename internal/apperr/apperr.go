// Package apperr defines the closed set of error kinds the service can surface
// to a client. Handlers and middleware return these; the HTTP error handler
// switches on the kind to pick a status code. Anything that is not an *Error
// is treated as internal.
package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates every client-visible failure category.
type Kind int

const (
	KindInternal Kind = iota // unexpected/programming error, message suppressed in prod
	KindValidation           // malformed input, field detail safe to return
	KindConflict             // duplicate email
	KindUnauthorized         // bad credentials or missing/invalid/expired token
	KindRefreshExpired       // refresh session ended; client must clear its cookies
	KindForbidden            // authenticated but insufficient role
	KindNotFound             // lookup of a nonexistent record
	KindUnavailable          // storage layer unreachable
)

// Error is a tagged error carrying a client-safe message, an optional map of
// field-level validation detail and an optional wrapped cause.
type Error struct {
	kind   Kind
	msg    string
	fields map[string]string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Message returns the client-safe message, without the wrapped cause.
func (e *Error) Message() string { return e.msg }

// New builds an error of the given kind with a client-safe message.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Wrap attaches a cause. The cause is logged server-side, never sent to clients.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{kind: kind, msg: msg, cause: cause}
}

// WithFields attaches field-level detail to a validation error.
func (e *Error) WithFields(fields map[string]string) *Error {
	e.fields = fields
	return e
}

// Fields returns field-level validation detail, or nil.
func Fields(err error) map[string]string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.fields
	}
	return nil
}

// KindOf extracts the kind from an error chain. Unknown errors are internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }
