// Package errs defines the typed error taxonomy returned by the room and
// match state machines. Transport layers map kinds to status codes; domain
// code never imports net/http.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindPermission
	KindState
	KindConflict
	KindCapacity
	KindEmptyLibrary
)

var kindNames = map[Kind]string{
	KindUnknown:      "UNKNOWN",
	KindValidation:   "VALIDATION",
	KindNotFound:     "NOT_FOUND",
	KindPermission:   "PERMISSION",
	KindState:        "STATE",
	KindConflict:     "CONFLICT",
	KindCapacity:     "CAPACITY",
	KindEmptyLibrary: "EMPTY_LIBRARY",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND_%d", int(k))
}

// Error is a domain error with a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or out-of-range input.
func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// NotFound reports a missing room, membership, or card.
func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// Permission reports an actor lacking the required role.
func Permission(format string, args ...any) *Error {
	return newError(KindPermission, format, args...)
}

// State reports an operation invalid for the current status.
func State(format string, args ...any) *Error {
	return newError(KindState, format, args...)
}

// Conflict reports a duplicate request.
func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// Capacity reports a full room.
func Capacity(format string, args ...any) *Error {
	return newError(KindCapacity, format, args...)
}

// EmptyLibrary reports a draw from an empty library. Reportable, not fatal.
func EmptyLibrary(format string, args ...any) *Error {
	return newError(KindEmptyLibrary, format, args...)
}

// KindOf extracts the kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status code the HTTP boundary returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	case KindState, KindConflict, KindCapacity, KindEmptyLibrary:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
