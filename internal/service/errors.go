package service

import (
	"errors"
	"fmt"
)

// ErrNotImplemented marks operations the API advertises but does not serve yet.
var ErrNotImplemented = errors.New("operation not implemented")

// ValidationError is a malformed-input failure. The error boundary maps it
// to a 400 response with the message intact.
type ValidationError struct {
	Msg string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// AuthenticationError is a missing or unusable credential. The error boundary
// maps it to a 401 response.
type AuthenticationError struct {
	Msg string
}

func NewAuthenticationError(format string, args ...any) *AuthenticationError {
	return &AuthenticationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *AuthenticationError) Error() string {
	return e.Msg
}
