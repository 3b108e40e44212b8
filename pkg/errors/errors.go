package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeBrowser    ErrorType = "browser"
	ErrorTypeNavigation ErrorType = "navigation"
	ErrorTypeFetch      ErrorType = "fetch"
	ErrorTypeDecode     ErrorType = "decode"
	ErrorTypeHandoff    ErrorType = "handoff"
	ErrorTypeExport     ErrorType = "export"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error carries a type so callers can decide between skipping, stopping and retrying
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

// New creates a typed error wrapping err
func New(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TypeOf returns the type of the first typed error in err's chain
func TypeOf(err error) ErrorType {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeHandoff, ErrorTypeBrowser:
		return true
	case ErrorTypeFetch, ErrorTypeDecode, ErrorTypeNavigation, ErrorTypeExport, ErrorTypeConfig:
		return false
	default:
		return false
	}
}

// IsSkippable reports whether a failure should only skip the current item
func IsSkippable(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeFetch, ErrorTypeDecode:
		return true
	}
	return false
}
