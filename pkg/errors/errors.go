// Package errors defines the error taxonomy shared across the tanglegram
// layout engine: input parsing, leaf/site binding, configuration, solver
// failures, and internal invariant violations.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown         = "UNKNOWN_ERROR"
	CodeInputParse      = "INPUT_PARSE_ERROR"
	CodeBindingMismatch = "BINDING_MISMATCH"
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeSolverFailure   = "SOLVER_FAILURE"
	CodeInternal        = "INTERNAL_ERROR"
)

// AppError represents an application error with a code, a human-readable
// message identifying the offending input, and an optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances, one per taxonomy class (spec §7).
var (
	ErrInputParse      = New(CodeInputParse, "input parse error")
	ErrBindingMismatch = New(CodeBindingMismatch, "leaf/site binding mismatch")
	ErrConfigInvalid   = New(CodeConfigInvalid, "invalid configuration")
	ErrSolverFailure   = New(CodeSolverFailure, "solver failure")
	ErrInternal        = New(CodeInternal, "internal invariant violation")
)

// IsInputParse reports whether err is an input-parse error.
func IsInputParse(err error) bool {
	return errors.Is(err, ErrInputParse)
}

// IsBindingMismatch reports whether err is a leaf/site binding mismatch.
func IsBindingMismatch(err error) bool {
	return errors.Is(err, ErrBindingMismatch)
}

// IsConfigInvalid reports whether err is a configuration error.
func IsConfigInvalid(err error) bool {
	return errors.Is(err, ErrConfigInvalid)
}

// IsSolverFailure reports whether err is a solver failure.
func IsSolverFailure(err error) bool {
	return errors.Is(err, ErrSolverFailure)
}

// IsInternal reports whether err is an internal invariant violation.
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// ExitCode maps an error's taxonomy class to the CLI exit code of spec §6:
// 1 for parse/validation errors, 2 for solver errors, 1 for anything else
// that escaped to the boundary unclassified.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetErrorCode(err) {
	case CodeSolverFailure:
		return 2
	default:
		return 1
	}
}
