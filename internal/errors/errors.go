package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrNotFound     ErrorType = "NOT_FOUND"
	ErrInvalidInput ErrorType = "INVALID_INPUT"
	ErrAmbiguous    ErrorType = "AMBIGUOUS"
	ErrTransient    ErrorType = "TRANSIENT_API_FAILURE"
	ErrFetchFailure ErrorType = "FETCH_FAILURE"
	ErrInternal     ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	// Confirmed marks a NotFound that was established by a lookup (a cached
	// tombstone or an empty search) rather than a missing record.
	Confirmed bool
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// TypeOf returns the type of the first AppError in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrNotFound
}

// IsConfirmedNotFound checks if the error is a not found error backed by a
// previous negative lookup.
func IsConfirmedNotFound(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == ErrNotFound && appErr.Confirmed
	}
	return false
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return TypeOf(err) == ErrInvalidInput
}

// IsAmbiguous checks if the error is an ambiguous match error
func IsAmbiguous(err error) bool {
	return TypeOf(err) == ErrAmbiguous
}

// IsTransient checks if the error is a transient remote API failure
func IsTransient(err error) bool {
	return TypeOf(err) == ErrTransient
}

// IsFetchFailure checks if the error is a failed fetch of a single item
func IsFetchFailure(err error) bool {
	return TypeOf(err) == ErrFetchFailure
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewConfirmedNotFoundError creates a not found error for a result that is known not to exist
func NewConfirmedNotFoundError(message string, err error) *AppError {
	e := New(ErrNotFound, message, err)
	e.Confirmed = true
	return e
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewAmbiguousError creates a new ambiguous match error
func NewAmbiguousError(message string, err error) *AppError {
	return New(ErrAmbiguous, message, err)
}

// NewTransientError creates a new transient remote API error
func NewTransientError(message string, err error) *AppError {
	return New(ErrTransient, message, err)
}

// NewFetchError creates a new fetch failure error
func NewFetchError(message string, err error) *AppError {
	return New(ErrFetchFailure, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}
