/*
errors.go - Error taxonomy for the leave engine and its collaborators

PURPOSE:
  Every failure an operation can produce is one of a small set of kinds.
  The transport layer maps each kind to exactly one HTTP status, so
  operations never decide status codes themselves.

ERROR KINDS:
  ErrInvalidInput        malformed or missing request data
  ErrDateRange           fromDate in the past, or toDate before fromDate
  ErrOverlap             owner already has a Pending/Approved leave in range
  ErrInvalidState        operation not valid for the record's current status
  ErrUnauthenticated     missing, malformed, expired or forged token
  ErrInvalidCredentials  password does not match
  ErrForbidden           authenticated but not permitted
  ErrNotFound            record or account does not exist
  ErrConflict            unique name already taken
  ErrTooManyAttempts     login throttled
  ErrInternal            storage/runtime failure

USAGE:
  return Errorf(ErrInvalidState, "You can only edit pending leave requests")

  if errors.Is(err, leave.ErrForbidden) { ... }

SEE ALSO:
  - api/errors.go: kind -> HTTP status mapping
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL KINDS - Use with errors.Is()
// =============================================================================

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDateRange          = errors.New("invalid date range")
	ErrOverlap            = errors.New("overlapping leave request")
	ErrInvalidState       = errors.New("invalid state")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrInternal           = errors.New("internal error")
)

var kinds = []error{
	ErrInvalidInput,
	ErrDateRange,
	ErrOverlap,
	ErrInvalidState,
	ErrUnauthenticated,
	ErrInvalidCredentials,
	ErrForbidden,
	ErrNotFound,
	ErrConflict,
	ErrTooManyAttempts,
	ErrInternal,
}

// =============================================================================
// STRUCTURED ERROR
// =============================================================================

// Error carries a kind, a client-facing message and an optional cause.
// The cause is for server-side logs; Message is safe to show to callers.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure. Wrapping an error that already has a
// kind returns it unchanged.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != ErrInternal {
		return err
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: ErrInternal, Message: "Server error", Err: err}
}

// KindOf returns the sentinel kind of err, or ErrInternal when err carries none.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Server error"
}

// CauseOf returns the underlying cause recorded on err, if any.
func CauseOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Err
	}
	return err
}
