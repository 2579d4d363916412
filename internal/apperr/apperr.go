package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an application error so the HTTP boundary can translate it
// without inspecting messages.
type Code string

const (
	CodeAuthenticationRequired Code = "authentication_required"
	CodeBadRequest             Code = "bad_request"
	CodeForbidden              Code = "forbidden"
	CodeNotFound               Code = "not_found"
	CodeConflict               Code = "conflict"
	CodeScopeViolation         Code = "scope_violation"
	CodeInternal               Code = "internal"
)

// Error is the application error type carried across service boundaries.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

func AuthenticationRequired(msg string) *Error { return New(CodeAuthenticationRequired, msg) }
func BadRequest(msg string) *Error             { return New(CodeBadRequest, msg) }
func Forbidden(msg string) *Error              { return New(CodeForbidden, msg) }
func NotFound(msg string) *Error               { return New(CodeNotFound, msg) }
func Conflict(msg string) *Error               { return New(CodeConflict, msg) }
func ScopeViolation(msg string) *Error         { return New(CodeScopeViolation, msg) }
func Internal(msg string, err error) *Error    { return Wrap(CodeInternal, msg, err) }

// CodeOf returns the code of err, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Message returns the user-facing message of err, or a generic fallback for
// unclassified errors so internals never leak to clients.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal server error"
}
