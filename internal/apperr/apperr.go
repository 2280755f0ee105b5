package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for callers that need to react to it
// (HTTP status mapping, metrics labels).
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInsufficientStock Kind = "insufficient_stock"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInvalidTransition Kind = "invalid_transition"
	KindEmptyCart         Kind = "empty_cart"
	KindCheckoutFailed    Kind = "checkout_failed"
	KindUnauthenticated   Kind = "unauthenticated"
	KindInternal          Kind = "internal"
)

// Error is a sentinel-friendly error carrying a Kind.
type Error struct {
	kind Kind
	msg  string
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Kind() Kind { return e.kind }

// KindOf walks the wrap chain and returns the first Kind found.
// Errors without a Kind are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the response code the API uses for it.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientStock, KindInvalidTransition, KindCheckoutFailed:
		return http.StatusConflict
	case KindEmptyCart:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Common errors shared across packages.
var (
	ErrUnauthenticated = New(KindUnauthenticated, "authentication required")
	ErrForbidden       = New(KindForbidden, "forbidden")
)
