// Package apperr defines the error kinds surfaced to API clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure independently of the transport.
type Kind string

const (
	NotFound           Kind = "NotFound"
	Forbidden          Kind = "Forbidden"
	WrongOrganization  Kind = "WrongOrganization"
	CrossOrgAssignment Kind = "CrossOrgAssignment"
	MissingOrgContext  Kind = "MissingOrgContext"
	InvalidAction      Kind = "InvalidAction"
	AlreadyMember      Kind = "AlreadyMember"
	DuplicateRequest   Kind = "DuplicateRequest"
	ValidationError    Kind = "ValidationError"
	Unauthorized       Kind = "Unauthorized"
	Conflict           Kind = "Conflict"
	Internal           Kind = "Internal"
)

// Error carries a Kind, a short human readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.New(apperr.NotFound, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to a lower level error.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFoundf(format string, args ...any) *Error  { return Newf(NotFound, format, args...) }
func Forbiddenf(format string, args ...any) *Error { return Newf(Forbidden, format, args...) }
func Invalidf(format string, args ...any) *Error   { return Newf(ValidationError, format, args...) }

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the user visible message for err. Internal errors get a generic text.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return "Internal server error"
}

// HTTPStatus maps a kind to its response code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case NotFound:
		return http.StatusNotFound
	case Forbidden, WrongOrganization:
		return http.StatusForbidden
	case CrossOrgAssignment, MissingOrgContext, InvalidAction, ValidationError:
		return http.StatusBadRequest
	case AlreadyMember, DuplicateRequest, Conflict:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
