// Package errors provides structured error types for the viewbench pipeline.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across pipeline stages.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by pipeline stage.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryProvision  ErrorCategory = "PROVISION"
	ErrCategoryGenerate   ErrorCategory = "GENERATE"
	ErrCategoryBench      ErrorCategory = "BENCH"
	ErrCategoryInspect    ErrorCategory = "INSPECT"
	ErrCategoryArchive    ErrorCategory = "ARCHIVE"
	ErrCategoryPublish    ErrorCategory = "PUBLISH"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeInvalidScale  = "INVALID_SCALE"

	// Provision codes
	CodeConnectFailed = "CONNECT_FAILED"
	CodeDDLFailed     = "DDL_FAILED"

	// Generate codes
	CodeCopyFailed    = "COPY_FAILED"
	CodeCountMismatch = "COUNT_MISMATCH"

	// Bench codes
	CodeQueryFailed      = "QUERY_FAILED"
	CodeNotEquivalent    = "NOT_EQUIVALENT"
	CodeExecutionTimeout = "EXECUTION_TIMEOUT"

	// Inspect codes
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Archive codes
	CodeRunNotFound = "RUN_NOT_FOUND"
	CodeWriteFailed = "WRITE_FAILED"

	// Publish codes
	CodeUploadFailed = "UPLOAD_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// BenchError is the structured error type used throughout the pipeline.
type BenchError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *BenchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *BenchError) Is(target error) bool {
	var t *BenchError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new BenchError.
func New(category ErrorCategory, code, message string) *BenchError {
	return &BenchError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new BenchError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *BenchError {
	return &BenchError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *BenchError) WithDetails(details map[string]interface{}) *BenchError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCategory(err error) ErrorCategory {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCode(err error) string {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable.
// Connection-level and upload failures are transient; everything else
// requires operator intervention.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryProvision && code == CodeConnectFailed:
		return true
	case category == ErrCategoryPublish && code == CodeUploadFailed:
		return true
	case category == ErrCategoryBench && code == CodeExecutionTimeout:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *BenchError {
	return New(ErrCategoryValidation, code, message)
}

func NewProvisionError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryProvision, code, message, cause)
}

func NewGenerateError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryGenerate, code, message, cause)
}

func NewBenchError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryBench, code, message, cause)
}

func NewArchiveError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryArchive, code, message, cause)
}

func NewPublishError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryPublish, code, message, cause)
}

func NewInternalError(message string, cause error) *BenchError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
