// Package errors defines the categorized error taxonomy used across the
// reconciliation service.
//
// Two error classes matter to the engine contract:
//   - InvalidInputError: a malformed payment (non-positive amount, bad currency).
//     Fails fast; no partial result is produced.
//   - InvoiceFieldError: one ledger row with unparseable data. Absorbed per row;
//     the engine skips the invoice and reports the skip in aggregate.
//
// An empty ledger is never an error. "No match found" is an empty candidate
// list; an error return always means the engine itself failed.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryParse         ErrorCategory = "parse"
	CategoryLedger        ErrorCategory = "ledger"
	CategoryMatching      ErrorCategory = "matching"
	CategoryAudit         ErrorCategory = "audit"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryFile          ErrorCategory = "file"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Validation errors
	CodeInvalidInput    ErrorCode = "invalid_input"
	CodeInvalidAmount   ErrorCode = "invalid_amount"
	CodeInvalidCurrency ErrorCode = "invalid_currency"
	CodeInvoiceField    ErrorCode = "invoice_field"
	CodeMissingField    ErrorCode = "missing_field"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"

	// Ledger errors
	CodeUnknownInvoice   ErrorCode = "unknown_invoice"
	CodeDuplicateInvoice ErrorCode = "duplicate_invoice"
	CodeInvoiceNotOpen   ErrorCode = "invoice_not_open"
	CodeOverApplication  ErrorCode = "over_application"

	// Matching errors
	CodeMatchingFailed ErrorCode = "matching_failed"

	// Audit errors
	CodeAuditWriteFailed ErrorCode = "audit_write_failed"
	CodeAuditReadFailed  ErrorCode = "audit_read_failed"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryLedger, CategoryMatching, CategoryInternal:
		return 5
	case CategoryAudit:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// InvalidInputError creates the fatal malformed-payment error. The engine
// returns it before any invoice is scored.
func InvalidInputError(field string, value interface{}, err error) *ReconcilerError {
	message := fmt.Sprintf("invalid payment input in field '%s': %v", field, value)

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryValidation, CodeInvalidInput, message)
	} else {
		result = New(CategoryValidation, CodeInvalidInput, message)
	}

	return result.
		WithSuggestion("the caller owns input hygiene: validate amount and currency before calling the engine").
		WithContext("field", field).
		WithContext("value", value)
}

// IsInvalidInput checks whether an error is the fatal malformed-payment error
func IsInvalidInput(err error) bool {
	if rerr, ok := AsReconcilerError(err); ok {
		return rerr.Code == CodeInvalidInput
	}
	return false
}

// InvoiceFieldError creates the per-invoice, non-fatal data error. Matching
// skips the affected invoice and continues with the rest of the ledger.
func InvoiceFieldError(invoiceID, field string, value interface{}, err error) *ReconcilerError {
	message := fmt.Sprintf("invoice %s has unusable field '%s': %v", invoiceID, field, value)

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryValidation, CodeInvoiceField, message)
	} else {
		result = New(CategoryValidation, CodeInvoiceField, message)
	}

	return result.
		WithSuggestion("correct the ledger row; the invoice was skipped, not matched").
		WithContext("invoice_id", invoiceID).
		WithContext("field", field).
		WithContext("value", value)
}

// ParseError creates a parsing-related error with file position context
func ParseError(code ErrorCode, file string, line int, column string, value string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in file %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "check the data format and ensure it matches the expected structure"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in file %s", column, file)
		suggestion = "verify the file has all required columns with correct headers"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in file %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "correct the data format or remove the invalid entry"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column).
		WithContext("value", value)
}

// LedgerError creates a ledger mutation error
func LedgerError(code ErrorCode, invoiceID string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeUnknownInvoice:
		message = fmt.Sprintf("invoice not found in ledger: %s", invoiceID)
		suggestion = "check the invoice id; the ledger snapshot may be stale"
	case CodeDuplicateInvoice:
		message = fmt.Sprintf("invoice already exists in ledger: %s", invoiceID)
		suggestion = "invoice ids are immutable once booked"
	case CodeInvoiceNotOpen:
		message = fmt.Sprintf("invoice %s is not open for payment application", invoiceID)
		suggestion = "only Open invoices accept payments; Paid and Disputed are frozen"
	case CodeOverApplication:
		message = fmt.Sprintf("payment exceeds amount remaining on invoice %s", invoiceID)
		suggestion = "amount remaining decreases monotonically and can never go negative"
	default:
		message = fmt.Sprintf("ledger error for invoice %s", invoiceID)
		suggestion = "review the ledger state and retry"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryLedger, code, message)
	} else {
		result = New(CategoryLedger, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("invoice_id", invoiceID)
}

// MatchingError creates a matching-related error
func MatchingError(operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("matching failed during %s", operation)

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryMatching, CodeMatchingFailed, message)
	} else {
		result = New(CategoryMatching, CodeMatchingFailed, message)
	}

	return result.
		WithSuggestion("check payment and ledger data quality").
		WithContext("operation", operation)
}

// AuditError creates an audit store error
func AuditError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message string
	switch code {
	case CodeAuditWriteFailed:
		message = fmt.Sprintf("failed to record audit event during %s", operation)
	case CodeAuditReadFailed:
		message = fmt.Sprintf("failed to read audit trail during %s", operation)
	default:
		message = fmt.Sprintf("audit store error during %s", operation)
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryAudit, code, message)
	} else {
		result = New(CategoryAudit, code, message)
	}

	return result.
		WithSuggestion("the audit trail is compliance-critical: do not proceed until writes succeed").
		WithContext("operation", operation)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*ReconcilerError    `json:"errors"`
	SampleErrors []*ReconcilerError    `json:"sample_errors,omitempty"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}

	if len(errs) == 0 {
		summary.Errors = []*ReconcilerError{}
		return summary
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	maxSamples := 5
	if len(errs) > maxSamples {
		summary.SampleErrors = errs[:maxSamples]
	} else {
		summary.SampleErrors = errs
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	count, exists := es.ByCategory[category]
	return exists && count > 0
}

// HasCode checks if the summary contains errors with the given code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	count, exists := es.ByCode[code]
	return exists && count > 0
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// Utility functions

// IsReconcilerError checks if an error is a ReconcilerError
func IsReconcilerError(err error) bool {
	_, ok := err.(*ReconcilerError)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
