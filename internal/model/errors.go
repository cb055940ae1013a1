package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures that are reported back to the caller.
type ErrorKind int

// Error kinds. KindInternal covers everything that must not leak to clients.
const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindConflict
	KindNotFound
)

// Error is a client-visible failure. Message is returned verbatim.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Validation reports missing or out-of-range input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Forbidden reports a caller acting outside their permissions.
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a state transition the current state does not allow.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an unknown id.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
