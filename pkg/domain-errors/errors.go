// Package domainerrors carries coded errors across the service boundary.
//
// Services return *Error values with a Code; transport layers map the code to a
// status without inspecting messages. Infrastructure facts (not found, conflict)
// travel as sentinel errors from pkg/platform/sentinel and are translated into
// codes by the owning service.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeValidation           Code = "validation_error"
	CodeBadRequest           Code = "bad_request"
	CodeInvalidInput         Code = "invalid_input"
	CodeExtractionFailed     Code = "extraction_failed"
	CodeComparisonFailed     Code = "comparison_failed"
	CodeMatchRejected        Code = "match_rejected"
	CodeInvalidState         Code = "invalid_state"
	CodeRegistrationRejected Code = "registration_rejected"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeUnauthorized         Code = "unauthorized"
	CodeForbidden            Code = "forbidden"
	CodeTimeout              Code = "timeout"
	CodeInvariantViolation   Code = "invariant_violation"
	CodeInternal             Code = "internal_error"
)

// Error is a coded domain error. Reasons is populated for rejections that list
// every failing criterion.
type Error struct {
	Code    Code
	Message string
	Reasons []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// WithReasons creates a coded error carrying the individual reasons behind it.
func WithReasons(code Code, msg string, reasons []string) error {
	r := make([]string, len(reasons))
	copy(r, reasons)
	return &Error{Code: code, Message: msg, Reasons: r}
}

// As returns the outermost *Error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in the chain has the code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost domain error, or CodeInternal.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// Reasons returns the reasons attached to the outermost domain error.
func Reasons(err error) []string {
	if de, ok := As(err); ok {
		return de.Reasons
	}
	return nil
}
