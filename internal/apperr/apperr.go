// Package apperr defines the error kinds shared by the domain packages.
// Handlers match kinds with errors.Is and translate them into HTTP
// status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind sentinels. Every error built by this package matches exactly one.
var (
	// ErrValidation marks malformed input. Never retried.
	ErrValidation = errors.New("validation")
	// ErrNotFound marks a missing entity or one outside the caller's organization.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a state-machine violation or a uniqueness clash.
	ErrConflict = errors.New("conflict")
	// ErrStorage marks a failure of the persistence layer.
	ErrStorage = errors.New("storage")
	// ErrForbidden marks an action the caller's role or identity does not allow.
	ErrForbidden = errors.New("forbidden")
)

// Error is a kinded error with a human-readable message and optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation builds an ErrValidation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflict builds an ErrConflict error.
func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

// Forbidden builds an ErrForbidden error.
func Forbidden(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps cause as an ErrStorage error.
func Storage(cause error, format string, args ...any) error {
	return &Error{Kind: ErrStorage, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// FromDB classifies a gorm error. Record-not-found becomes NotFound,
// duplicate keys become Conflict, anything else is Storage. Errors that
// already carry a kind pass through unchanged.
func FromDB(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var kinded *Error
	if errors.As(err, &kinded) {
		return err
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: ErrNotFound, Msg: msg}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: ErrConflict, Msg: msg, Err: err}
	default:
		return &Error{Kind: ErrStorage, Msg: msg, Err: err}
	}
}

// KindName returns a short machine-readable name for err's kind.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}

// HTTPStatus maps err's kind to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrStorage):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
