package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
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

	classified, ok := AsClassified(err)
	if !ok {
		return 1
	}

	switch classified.Category() {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryManifest, CategoryTemplate, CategoryRender, CategoryPostProcess, CategoryEncoding:
		return 11 // Build error
	case CategoryFileSystem, CategoryNotFound:
		return 9 // I/O error
	case CategoryRuntime, CategoryWatch:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	classified, ok := AsClassified(err)
	if !ok || a.verbose {
		return fmt.Sprintf("Error: %v", err)
	}
	if classified.Category() == CategoryInternal {
		return "Internal error occurred (use -v for details)"
	}
	return "Error: " + classified.Message()
}

// Report logs err and prints the user-facing message to w. It returns the exit code.
func (a *CLIErrorAdapter) Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	if classified, ok := AsClassified(err); ok {
		attrs := classified.LogAttrs()
		if classified.Cause() != nil {
			attrs = append(attrs, slog.String("error", classified.Cause().Error()))
		}
		a.logger.LogAttrs(context.Background(), a.slogLevelFromSeverity(classified.Severity()), classified.Message(), attrs...)
	} else if a.verbose {
		a.logger.Error("Unclassified error", "error", err)
	}

	_, _ = fmt.Fprintln(w, a.FormatError(err))
	return a.ExitCodeFor(err)
}

// slogLevelFromSeverity converts ClassifiedError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
