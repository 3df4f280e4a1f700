package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies application errors so HTTP handlers can map them to
// status codes without string matching.
type ErrorKind int

const (
	KindBadRequest ErrorKind = iota
	KindNotFound
	KindInvariantViolation
	KindRemoteService
	KindInternal
)

// AppError is the application error type. Wrap lower-level errors with %w as
// usual; Kind survives wrapping via errors.As.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewBadRequest reports a malformed request or payload.
func NewBadRequest(msg string) *AppError {
	return &AppError{Kind: KindBadRequest, Message: msg}
}

// NewNotFound reports a missing referenced entity.
func NewNotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

// NewInvariantViolation reports locally stored state that breaks a data
// invariant, e.g. an agent with no linked user.
func NewInvariantViolation(msg string) *AppError {
	return &AppError{Kind: KindInvariantViolation, Message: msg}
}

// NewRemoteServiceError reports a failed call to the Retell API.
func NewRemoteServiceError(msg string, err error) *AppError {
	return &AppError{Kind: KindRemoteService, Message: msg, Err: err}
}

// KindOf extracts the ErrorKind from err, defaulting to KindInternal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
