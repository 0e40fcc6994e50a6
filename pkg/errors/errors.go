// Package errors provides structured error types for halftone.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the library
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Categories
//
// Pipeline errors fall into three groups:
//   - [ValidationError]: structural graph problems, always reported as a full
//     list so every problem can be shown at once
//   - parameter errors (code [ErrCodeInvalidParameter]): a transform was
//     invoked with unusable parameters; the executor wraps them in a
//     [NodeError] naming the failing node
//   - internal consistency failures: executor bugs, raised as panics and
//     never returned through this package
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidParameter, "palette must not be empty")
//	if errors.Is(err, errors.ErrCodeInvalidParameter) {
//	    // Handle parameter error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidInput, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidParameter Code = "INVALID_PARAMETER"
	ErrCodeInvalidGraph     Code = "INVALID_GRAPH"
	ErrCodeInvalidName      Code = "INVALID_NAME"
	ErrCodeInvalidPath      Code = "INVALID_PATH"

	// Lookup errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeUnknownAlgorithm Code = "UNKNOWN_ALGORITHM"
	ErrCodeUnknownPalette   Code = "UNKNOWN_PALETTE"

	// Execution errors
	ErrCodeExecution Code = "EXECUTION_FAILED"
	ErrCodeCanceled  Code = "CANCELED"

	// Backend errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Parameter is shorthand for an ErrCodeInvalidParameter error attributed to
// one transform.
func Parameter(algorithm, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidParameter,
		Message: algorithm + ": " + fmt.Sprintf(format, args...),
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an error carrying a matching code.
func Is(err error, code Code) bool {
	for err != nil {
		if c, ok := codeOf(err); ok && c == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	for err != nil {
		if c, ok := codeOf(err); ok {
			return c
		}
		err = errors.Unwrap(err)
	}
	return ""
}

func codeOf(err error) (Code, bool) {
	switch e := err.(type) {
	case *Error:
		return e.Code, true
	case *ValidationError:
		return ErrCodeInvalidGraph, true
	case *NodeError:
		return ErrCodeExecution, true
	}
	return "", false
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ValidationError lists every structural problem found in a pipeline graph.
// A graph carrying a ValidationError is never executed.
type ValidationError struct {
	Problems []string
}

// Error joins the problems, one per line.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "graph validation failed: " + e.Problems[0]
	}
	return "graph validation failed:\n  " + strings.Join(e.Problems, "\n  ")
}

// Code returns the error code for this error type.
func (e *ValidationError) Code() Code {
	return ErrCodeInvalidGraph
}

// NodeError reports the failure of a single pipeline node.
type NodeError struct {
	NodeID    string
	Algorithm string
	Err       error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.Algorithm != "" {
		return fmt.Sprintf("node %q (%s): %v", e.NodeID, e.Algorithm, e.Err)
	}
	return fmt.Sprintf("node %q: %v", e.NodeID, e.Err)
}

// Unwrap returns the transform error.
func (e *NodeError) Unwrap() error {
	return e.Err
}
