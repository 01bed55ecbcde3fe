package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, caller-visible category of an error.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindValidation     Kind = "validation"
	KindState          Kind = "state"
	// KindSizeLimit never leaves the claims encoder.
	KindSizeLimit Kind = "size_limit"
	KindInternal  Kind = "internal"
)

// Error is the structured error every service returns.
type Error struct {
	Kind    Kind
	Message string
	// ResourceID points at an existing record when relevant, e.g. the pending
	// invitation that caused a conflict.
	ResourceID string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so sentinel-style checks like
// errors.Is(err, apperr.ErrNotFound) work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is comparisons.
var (
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrState          = &Error{Kind: KindState}
	ErrSizeLimit      = &Error{Kind: KindSizeLimit}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Unauthenticated(format string, args ...any) *Error {
	return New(KindAuthentication, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(KindAuthorization, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Invalid(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return New(KindState, format, args...)
}

// Conflict builds a conflict error that references the existing resource.
func Conflict(resourceID string, format string, args ...any) *Error {
	e := New(KindConflict, format, args...)
	e.ResourceID = resourceID
	return e
}

// KindOf reports the kind of err, KindInternal for anything unstructured.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ResourceIDOf returns the resource reference carried by err, if any.
func ResourceIDOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.ResourceID
	}
	return ""
}

// HTTPStatus maps a kind to the response code used by the API layer.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindState:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
