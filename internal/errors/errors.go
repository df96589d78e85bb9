// Package errors defines the error taxonomy shared by services and the HTTP layer.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal_error"
)

// Error is a structured, user-presentable service error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string][]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the kind onto a status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WithCode returns a copy carrying a machine readable code.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Code: string(kind), Message: msg}
}

// Validation creates a validation error. Use this in service layer for bad input.
func Validation(msg string) *Error { return newErr(KindValidation, msg) }

// FieldValidation creates a validation error with a single field entry.
func FieldValidation(field, msg string) *Error {
	e := newErr(KindValidation, "Validation failed")
	e.Fields = map[string][]string{field: {msg}}
	return e
}

// Fields creates a validation error from a field map.
func Fields(fields map[string][]string) *Error {
	e := newErr(KindValidation, "Validation failed")
	e.Fields = fields
	return e
}

func NotFound(msg string) *Error     { return newErr(KindNotFound, msg) }
func Forbidden(msg string) *Error    { return newErr(KindForbidden, msg) }
func Conflict(msg string) *Error     { return newErr(KindConflict, msg) }
func Unauthorized(msg string) *Error { return newErr(KindUnauthorized, msg) }

// Internal wraps an unexpected failure. The cause is kept for logs, never rendered.
func Internal(cause error) *Error {
	e := newErr(KindInternal, "An internal error occurred")
	e.cause = cause
	return e
}

// Map converts repo/infra errors into service errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("record not found")

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Conflict("record already exists")

	case errors.Is(err, context.DeadlineExceeded):
		e := Internal(err)
		e.Message = "request timed out"
		return e

	case errors.Is(err, context.Canceled):
		e := Internal(err)
		e.Message = "request was canceled"
		return e

	default:
		return Internal(err)
	}
}

// As extracts a service error, mapping anything else first.
func As(err error) *Error {
	var svcErr *Error
	if errors.As(Map(err), &svcErr) {
		return svcErr
	}
	return Internal(err)
}

// IsKind reports whether err maps to the given kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return As(err).Kind == kind
}
