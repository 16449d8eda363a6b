package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrModelUnavailable = errors.New("language model unavailable")
	ErrDegenerateInput  = errors.New("degenerate input")
	ErrTimeout          = errors.New("analysis timed out")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// HasField reports whether any field error refers to field with the given message.
func (e *ValidationError) HasField(field, message string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field && fe.Message == message {
			return true
		}
	}
	return false
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// Analysis pipeline stages, used to label AnalysisError.
const (
	StageTokenize = "tokenize"
	StageNGrams   = "ngrams"
	StageScore    = "score"
	StageStats    = "stats"
	StageAnalyze  = "analyze"
)

// AnalysisError wraps a failure of one pipeline stage. The message is meant
// to be shown to API clients as is.
type AnalysisError struct {
	Stage string
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// NewAnalysisError wraps err as a failure of stage.
func NewAnalysisError(stage string, err error) *AnalysisError {
	return &AnalysisError{Stage: stage, Err: err}
}
