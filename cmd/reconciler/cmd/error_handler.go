package cmd

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"treasury-reconciliation-service/pkg/errors"
	"treasury-reconciliation-service/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for the CLI
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: verbose,
	}
}

// HandleError processes an error and returns an appropriate exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	if rerr, ok := errors.AsReconcilerError(err); ok {
		return h.handleReconcilerError(rerr)
	}

	return h.handleGenericError(err)
}

// handleReconcilerError handles structured application errors
func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 && h.verbose {
		fmt.Fprintf(os.Stderr, "\nDetails:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	if help := h.getCategoryHelp(err.Category); help != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", help)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying cause: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles errors that did not come from the application's
// error types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	switch {
	case h.isFileNotFoundError(err):
		fmt.Fprintf(os.Stderr, "Error: File not found\n%v\n", err)
		fmt.Fprintf(os.Stderr, "\nSuggestion: Check the file path and try again\n")
		return 2

	case h.isPermissionError(err):
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n%v\n", err)
		fmt.Fprintf(os.Stderr, "\nSuggestion: Check file permissions or run with appropriate privileges\n")
		return 2

	case h.isDiskFullError(err):
		fmt.Fprintf(os.Stderr, "Error: No space left on device\n%v\n", err)
		fmt.Fprintf(os.Stderr, "\nSuggestion: Free up disk space and try again\n")
		return 2

	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if h.verbose {
			h.logger.WithError(err).Error("Unhandled error")
		}
		return 1
	}
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check that the file path is correct
• Verify you have read access to the file
• Ensure the file is not open in another application`

	case errors.CategoryParse:
		return `Parse error help:
• Verify the CSV file format and structure
• Check for proper column headers and data types
• Remove any special characters or formatting from the data
• Use 'reconciler match --help' for examples of correct file formats`

	case errors.CategoryValidation:
		return `Validation error help:
• Check that all required fields have values
• Verify date formats use YYYY-MM-DD
• Amounts may carry $ signs and thousands separators, but must be decimal numbers
• Currency codes must be three uppercase letters (ISO 4217)`

	case errors.CategoryLedger:
		return `Ledger error help:
• Check that the invoice ID exists in the loaded ledger
• Payments can only be applied to OPEN invoices
• A payment cannot exceed the invoice's remaining balance`

	case errors.CategoryMatching:
		return `Matching error help:
• Check data quality in the payment and ledger files
• Try adjusting the scoring thresholds (--stp-threshold, --noise-floor)
• Verify that payer names and amounts are populated`

	case errors.CategoryAudit:
		return `Audit error help:
• Check that the audit database path is writable
• Verify available disk space
• The audit trail is compliance-critical: failed runs should not be re-applied blindly`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Use 'reconciler match --help' to see all available options
• Try running with default settings first`

	default:
		return `For more help:
• Use 'reconciler --help' for general help
• Use 'reconciler match --help' for command-specific help
• Check the documentation for detailed examples`
	}
}

// Error detection helpers

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if err == syscall.ENOSPC {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}
