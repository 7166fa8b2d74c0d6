package errors

import "fmt"

// Category represents the kind of error.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryProtocol Category = "protocol"
	CategoryCommand  Category = "command"
	CategoryCLI      Category = "cli"
)

// LockwatchError is a structured error with a code, detail and hint.
type LockwatchError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error kind.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of this occurrence.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *LockwatchError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Wrapped != nil && e.Detail == "" {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *LockwatchError) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *LockwatchError) WithSuggestion(s string) *LockwatchError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *LockwatchError) WithDetail(d string) *LockwatchError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *LockwatchError) Wrap(err error) *LockwatchError {
	e.Wrapped = err
	return e
}

// Is reports whether target is a LockwatchError with the same code.
func (e *LockwatchError) Is(target error) bool {
	t, ok := target.(*LockwatchError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// New creates a LockwatchError from a registered error code.
func New(code string) *LockwatchError {
	template, ok := registry[code]
	if !ok {
		return &LockwatchError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &LockwatchError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a LockwatchError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *LockwatchError {
	return &LockwatchError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a LockwatchError. Errors that already
// are LockwatchErrors are returned unchanged.
func FromError(err error, code string) *LockwatchError {
	if err == nil {
		return nil
	}
	if le, ok := err.(*LockwatchError); ok {
		return le
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of err if it is a LockwatchError, or "".
func CodeOf(err error) string {
	for err != nil {
		if le, ok := err.(*LockwatchError); ok {
			return le.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
