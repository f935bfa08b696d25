// Package apperror defines the application's error taxonomy.
//
// Every failure the service layer can produce wraps one of the sentinel
// errors below. Handlers use errors.Is() to map a sentinel to an HTTP
// status code without knowing anything about the message; callers get a
// human-readable message without parsing status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrSelfReference    = errors.New("self reference")
	ErrState            = errors.New("invalid state")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrUnauthorized     = errors.New("unauthorized")
)

// AppError pairs a sentinel error (for errors.Is checks) with a
// human-readable message (for API responses).
type AppError struct {
	Err     error  // sentinel, e.g. ErrNotFound
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports that a referenced entity does not exist. The message
// names both the resource and the id, so validation chains that check
// several entities in order produce distinguishable errors.
func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

// NotFoundMsg is NotFound with a caller-supplied message, for lookups that
// aren't keyed by a numeric id (e.g. username).
func NotFoundMsg(message string) *AppError {
	return &AppError{Err: ErrNotFound, Message: message}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a duplicate relationship, e.g. a follow edge or like
// pair that already exists.
func Conflict(message string) *AppError {
	return &AppError{Err: ErrConflict, Message: message}
}

// SelfReference reports an edge whose endpoints are the same entity
// (a user following themselves).
func SelfReference(message string) *AppError {
	return &AppError{Err: ErrSelfReference, Message: message}
}

// State reports an operation against an entity in the wrong state, e.g.
// buying from an inactive listing.
func State(message string) *AppError {
	return &AppError{Err: ErrState, Message: message}
}

// InvalidOperation reports a role mismatch, e.g. a transaction whose
// seller does not own the listing, or a buyer buying from themselves.
func InvalidOperation(message string) *AppError {
	return &AppError{Err: ErrInvalidOperation, Message: message}
}

// Unauthorized reports a missing or invalid credential.
// HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{Err: ErrUnauthorized, Message: message}
}
