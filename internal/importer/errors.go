package importer

import (
	"errors"
	"fmt"
)

// ErrorType classifies pipeline errors by the stage that produced them.
type ErrorType string

const (
	ErrorTypeParse       ErrorType = "parse"
	ErrorTypeMapping     ErrorType = "mapping"
	ErrorTypeExecution   ErrorType = "execution"
	ErrorTypeFieldFormat ErrorType = "field_format"
	ErrorTypeState       ErrorType = "invalid_state"
)

// PipelineError is the error type surfaced by the import pipeline. Parse and
// execution errors halt stage progression; mapping errors are recoverable by
// user edits. Validation findings are never represented as errors.
type PipelineError struct {
	Type      ErrorType `json:"type"`
	Stage     string    `json:"stage,omitempty"`
	Field     string    `json:"field,omitempty"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Retryable bool      `json:"retryable"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e == nil {
		return "unknown import error"
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Field, e.Message)
	}
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewParseError reports an unreadable or unparseable source file. Fatal to
// the session; the user must re-upload.
func NewParseError(message string, cause error) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeParse,
		Stage:   "upload",
		Message: message,
		Cause:   cause,
	}
}

// NewMappingError reports a mapping that references a header absent from the
// parsed file, or a required field left unmapped.
func NewMappingError(field, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeMapping,
		Stage:   "map",
		Field:   field,
		Message: message,
	}
}

// NewExecutionError reports a remote import failure. Retryable: the session
// keeps its records, mapping and validation so the user can retry.
func NewExecutionError(message string, cause error) *PipelineError {
	return &PipelineError{
		Type:      ErrorTypeExecution,
		Stage:     "execute",
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

// NewFieldFormatError reports the remote field-format error class: a
// row-level identifier field the backend rejected as malformed. Carries the
// offending field so the caller can show an actionable message.
func NewFieldFormatError(field, message string) *PipelineError {
	return &PipelineError{
		Type:      ErrorTypeFieldFormat,
		Stage:     "execute",
		Field:     field,
		Message:   message,
		Retryable: true,
	}
}

// NewStateError reports a wizard invariant violation, e.g. executing without
// a passing validation. These indicate caller bugs, not runtime conditions.
func NewStateError(stage, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeState,
		Stage:   stage,
		Message: message,
	}
}

// IsFieldFormat reports whether err is the remote field-format error class.
func IsFieldFormat(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Type == ErrorTypeFieldFormat
}

// IsRetryable reports whether the failed stage can be retried without
// redoing earlier stages.
func IsRetryable(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Retryable
}
