package errs

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("operation not allowed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("resource conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRateLimited       = errors.New("too many requests")

	// ErrStaleWrite is returned by stores when a conditional update finds
	// the row no longer in the state it was read in.
	ErrStaleWrite = errors.New("row changed since it was read")
)

// pq error code for unique_violation.
const uniqueViolation = "23505"

type ApiErr struct {
	StatusCode int
	Message    string
	Field      string
	Cause      error
	kind       error
}

func (e *ApiErr) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap lets errors.Is match the sentinel kind of the error.
func (e *ApiErr) Unwrap() error {
	return e.kind
}

// Code is the machine-readable error name sent to clients.
func (e *ApiErr) Code() string {
	switch e.kind {
	case ErrValidation:
		return "validation_error"
	case ErrNotFound:
		return "not_found"
	case ErrForbidden:
		return "forbidden"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrConflict:
		return "conflict"
	case ErrInvalidTransition:
		return "invalid_transition"
	case ErrRateLimited:
		return "rate_limited"
	}
	return "error"
}

func NewValidation(message string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusBadRequest, Message: message, kind: ErrValidation}
}

func NewMissingField(field, message string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusBadRequest, Message: message, Field: field, kind: ErrValidation}
}

func NewInvalidField(field, message string) *ApiErr {
	return NewMissingField(field, message)
}

func NewNotFound(entity string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusNotFound, Message: entity + " not found", kind: ErrNotFound}
}

func NewForbidden(message string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusForbidden, Message: message, kind: ErrForbidden}
}

func NewUnauthorized(message string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusUnauthorized, Message: message, kind: ErrUnauthorized}
}

// NewConflict reports a duplicate. Duplicates are surfaced as 400 so clients
// treat them like any other rejected submission.
func NewConflict(message string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusBadRequest, Message: message, kind: ErrConflict}
}

func NewInvalidTransition(from, to string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		Message:    fmt.Sprintf("cannot change status from %s to %s", from, to),
		Field:      "status",
		kind:       ErrInvalidTransition,
	}
}

// NewStatusChanged reports a write that lost a race with another status
// change on the same entity.
func NewStatusChanged(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		Message:    entity + " status changed; reload and try again",
		Field:      "status",
		kind:       ErrInvalidTransition,
	}
}

func NewRateLimited() *ApiErr {
	return &ApiErr{StatusCode: http.StatusTooManyRequests, Message: "Too many requests", kind: ErrRateLimited}
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsForbidden(err error) bool  { return errors.Is(err, ErrForbidden) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }

// IsUniqueViolation reports whether err came from a unique constraint in
// PostgreSQL.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// FromDB classifies a storage error. Missing rows become NotFound for entity,
// stale conditional writes become a 409 and unique violations become a
// conflict carrying conflictMsg. Anything else is returned wrapped so the
// handler reports a 500.
func FromDB(err error, entity, conflictMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return NewNotFound(entity)
	case errors.Is(err, ErrStaleWrite):
		return NewStatusChanged(entity)
	case IsUniqueViolation(err) && conflictMsg != "":
		return &ApiErr{StatusCode: http.StatusBadRequest, Message: conflictMsg, Cause: err, kind: ErrConflict}
	default:
		return fmt.Errorf("%s: %w", entity, err)
	}
}
