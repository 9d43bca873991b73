// Package errors provides a lightweight structured error type (DocExportError)
// for category-based classification of pipeline failures and CLI exit codes.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a DocExport error for classification
type ErrorCategory string

const (
	// User-facing configuration errors
	CategoryConfig ErrorCategory = "config"

	// Output tree and artifact persistence errors
	CategoryFileSystem ErrorCategory = "filesystem"

	// Site model corruption (duplicate page identities)
	CategoryIntegrity ErrorCategory = "integrity"

	// Page-level processing errors
	CategoryConversion ErrorCategory = "conversion"
	CategoryProvenance ErrorCategory = "provenance"

	// Runtime and infrastructure errors
	CategoryPipeline ErrorCategory = "pipeline"
	CategoryNotify   ErrorCategory = "notify"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Aborts the build
	SeverityError   ErrorSeverity = "error"   // Page skipped, run continues
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded output
)

// DocExportError is a structured error with category, severity and context
type DocExportError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for DocExportError
type ContextFields map[string]any

// Error implements the error interface
func (e *DocExportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for errors.Is / errors.As
func (e *DocExportError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *DocExportError) WithContext(key string, value any) *DocExportError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new DocExportError
func New(category ErrorCategory, severity ErrorSeverity, message string) *DocExportError {
	return &DocExportError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new DocExportError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *DocExportError {
	return &DocExportError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As returns the outermost DocExportError in err's chain.
func As(err error) (*DocExportError, bool) {
	var dee *DocExportError
	if stderrors.As(err, &dee) {
		return dee, true
	}
	return nil, false
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if dee, ok := As(err); ok {
		return dee.Category == category
	}
	return false
}

// IsFatal reports whether err must abort the build.
func IsFatal(err error) bool {
	if dee, ok := As(err); ok {
		return dee.Severity == SeverityFatal
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a DocExportError
func GetCategory(err error) ErrorCategory {
	if dee, ok := As(err); ok {
		return dee.Category
	}
	return CategoryInternal
}
