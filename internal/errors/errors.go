package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig              = "CONFIG"
	ErrProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrInvalidInput        = "INVALID_INPUT"
	ErrAlreadyRunning      = "ALREADY_RUNNING"
	ErrExport              = "EXPORT"
	ErrArchive             = "ARCHIVE"
	ErrNotFound            = "NOT_FOUND"
)

// Sentinels for errors.Is checks. A structured *Error matches the sentinel
// for its code, so both styles work against the same value.
var (
	AlreadyRunning      = errors.New("operation already running")
	InvalidInput        = errors.New("invalid input")
	ProviderUnavailable = errors.New("provider unavailable")
)

var sentinels = map[string]error{
	ErrAlreadyRunning:      AlreadyRunning,
	ErrInvalidInput:        InvalidInput,
	ErrProviderUnavailable: ProviderUnavailable,
}

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrProviderUnavailable.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrProviderUnavailable,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's code.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// Reason returns a single-line description suitable for status fields.
// It prefers the deepest cause message over the formatted block output.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var vErr *Error
	if errors.As(err, &vErr) {
		if vErr.Cause != nil {
			return vErr.Message + ": " + Reason(vErr.Cause)
		}
		return vErr.Message
	}
	return err.Error()
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost structured error, or "" if none.
func CodeOf(err error) string {
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr.Code
	}
	return ""
}

// ExitError signals that the process should exit with a specific code
// without printing an additional error message.
type ExitError struct {
	Code int
}

// NewExitError creates an ExitError for the given code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// GetExitCode extracts the exit code from an ExitError anywhere in the chain.
func GetExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
