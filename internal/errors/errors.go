package errors

import (
	"fmt"
)

// FairError is the structured error type for fairsearch.
// It provides rich context for error handling, logging, and user presentation.
type FairError struct {
	// Code is the unique error code (e.g., "ERR_205_CORRUPT_INDEX").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Embedding, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *FairError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *FairError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with FairError.
func (e *FairError) Is(target error) bool {
	if t, ok := target.(*FairError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *FairError) WithDetail(key, value string) *FairError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *FairError) WithSuggestion(suggestion string) *FairError {
	e.Suggestion = suggestion
	return e
}

// New creates a new FairError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *FairError {
	return &FairError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a FairError from an existing error.
// The error's message becomes the FairError message.
func Wrap(code string, err error) *FairError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *FairError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error (malformed or
// unsupported input; the file is skipped, the batch continues).
func ValidationError(message string, cause error) *FairError {
	return New(ErrCodeInvalidInput, message, cause)
}

// ExtractionError creates a format-specific metadata extraction error.
// The affected file is skipped; batch indexing continues.
func ExtractionError(path string, cause error) *FairError {
	return New(ErrCodeExtractionFailed, fmt.Sprintf("metadata extraction failed for %s", path), cause).
		WithDetail("path", path)
}

// EmbeddingError creates an embedding service error.
// Distinguished from extraction failures in batch summaries.
func EmbeddingError(message string, cause error) *FairError {
	return New(ErrCodeEmbedFailed, message, cause)
}

// DimensionError creates a vector dimension mismatch error.
// Fatal to the single operation; the index is left unchanged.
func DimensionError(expected, got int) *FairError {
	return New(ErrCodeDimensionMismatch,
		fmt.Sprintf("vector dimension mismatch: index expects %d, got %d", expected, got), nil).
		WithSuggestion("reindex with the configured embedding model or restore a matching snapshot")
}

// CorruptIndexError creates an index corruption error detected on load.
// Fatal: the load aborts and no partial or empty index is substituted.
func CorruptIndexError(message string, cause error) *FairError {
	return New(ErrCodeCorruptIndex, message, cause).
		WithSuggestion("rebuild the index with 'fairsearch index --rebuild'")
}

// PersistenceError creates an I/O error during snapshot save or load.
// Fatal to that operation; prior in-memory state remains usable.
func PersistenceError(message string, cause error) *FairError {
	return New(ErrCodeSnapshotIO, message, cause)
}

// NotFoundError creates a record lookup failure.
func NotFoundError(id uint64) *FairError {
	return New(ErrCodeRecordAbsent, fmt.Sprintf("record %d not found", id), nil)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a FairError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if fe, ok := err.(*FairError); ok {
		return fe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if fe, ok := err.(*FairError); ok {
		return fe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a FairError.
// Returns empty string if not a FairError.
func GetCode(err error) string {
	if fe, ok := err.(*FairError); ok {
		return fe.Code
	}
	return ""
}

// GetCategory extracts the category from a FairError.
// Returns empty string if not a FairError.
func GetCategory(err error) Category {
	if fe, ok := err.(*FairError); ok {
		return fe.Category
	}
	return ""
}
