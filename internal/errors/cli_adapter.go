package errors

import (
	"context"
	"fmt"
	"log/slog"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	dee, ok := As(err)
	if !ok {
		return 1
	}

	switch dee.Category {
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryIntegrity:
		return 9 // Corrupt site model
	case CategoryFileSystem, CategoryConversion, CategoryProvenance:
		return 11 // Build error
	case CategoryPipeline, CategoryNotify:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	dee, ok := As(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}

	if a.verbose {
		return dee.Error()
	}
	if dee.Category == CategoryConfig {
		return dee.Message
	}
	return fmt.Sprintf("%s: %s", dee.Category, dee.Message)
}

// LogError logs an error with a level derived from its severity and its context fields.
func (a *CLIErrorAdapter) LogError(err error) {
	if err == nil {
		return
	}

	dee, ok := As(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}

	attrs := []slog.Attr{slog.String("category", string(dee.Category))}
	for k, v := range dee.Context {
		attrs = append(attrs, slog.Any(k, v))
	}
	if dee.Cause != nil {
		attrs = append(attrs, slog.String("cause", dee.Cause.Error()))
	}
	a.logger.LogAttrs(context.Background(), levelFor(dee.Severity), dee.Message, attrs...)
}

func levelFor(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
