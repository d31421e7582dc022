// Package reporter renders batch reconciliation results for human and
// machine consumption.
//
// Supported output formats:
//   - Console: tabular output for terminal review
//   - JSON: structured data for programmatic consumption
//   - CSV: flat candidate rows for spreadsheet triage
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"treasury-reconciliation-service/internal/reconciler"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeCandidates bool `json:"include_candidates"`
	IncludeSkipped    bool `json:"include_skipped"`
	IncludeDrafts     bool `json:"include_drafts"`

	// MaxCandidatesPerPayment caps the candidates shown per payment in
	// console output; zero means all
	MaxCandidatesPerPayment int `json:"max_candidates_per_payment"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                  FormatConsole,
		IncludeCandidates:       true,
		IncludeSkipped:          true,
		IncludeDrafts:           false,
		MaxCandidatesPerPayment: 3,
		CSVDelimiter:            ',',
		CSVHeaders:              true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxCandidatesPerPayment < 0 {
		return fmt.Errorf("max candidates per payment cannot be negative: %d", c.MaxCandidatesPerPayment)
	}

	return nil
}

// ReportGenerator renders batch reports in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator with the given configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateReport writes the batch report to the provided writer
func (rg *ReportGenerator) GenerateReport(report *reconciler.BatchReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("batch report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(report *reconciler.BatchReport, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(writer, "Processing Duration: %v\n\n", report.Summary.ProcessingTime.Round(time.Millisecond))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "%-28s %d\n", "Payments processed:", report.Summary.TotalPayments)
	fmt.Fprintf(writer, "%-28s %d\n", "Auto-applied (STP):", report.Summary.AutoApplied)
	fmt.Fprintf(writer, "%-28s %d\n", "High confidence:", report.Summary.HighConfidence)
	fmt.Fprintf(writer, "%-28s %d\n", "Needs investigation:", report.Summary.Investigation)
	fmt.Fprintf(writer, "%-28s %d\n", "Unmatched:", report.Summary.Unmatched)
	fmt.Fprintf(writer, "%-28s %d\n", "Invalid payments:", report.Summary.InvalidPayments)
	fmt.Fprintf(writer, "%-28s %d\n", "Skipped ledger rows:", report.Summary.SkippedInvoices)
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeCandidates {
		fmt.Fprintf(writer, "=== PAYMENT DETAILS ===\n")
		for i, outcome := range report.Outcomes {
			rg.printOutcome(writer, i+1, outcome)
		}
	}

	return nil
}

func (rg *ReportGenerator) printOutcome(writer io.Writer, index int, outcome *reconciler.PaymentOutcome) {
	payment := outcome.Payment
	fmt.Fprintf(writer, "[%d] %s %s from %q", index,
		payment.Amount.StringFixed(2), payment.Currency, payment.PayerName)
	if payment.Reference != "" {
		fmt.Fprintf(writer, " (ref %s)", payment.Reference)
	}
	fmt.Fprintf(writer, "\n")

	if outcome.Error != "" {
		fmt.Fprintf(writer, "    REJECTED: %s\n", outcome.Error)
		return
	}

	if len(outcome.Candidates) == 0 {
		fmt.Fprintf(writer, "    no candidates above the noise floor\n")
		if rg.config.IncludeDrafts && outcome.Draft != nil {
			fmt.Fprintf(writer, "    clarification drafted: %s\n", outcome.Draft.Subject)
		}
		return
	}

	limit := len(outcome.Candidates)
	if rg.config.MaxCandidatesPerPayment > 0 && rg.config.MaxCandidatesPerPayment < limit {
		limit = rg.config.MaxCandidatesPerPayment
	}

	for _, candidate := range outcome.Candidates[:limit] {
		marker := " "
		if outcome.AutoApplied != nil && candidate.InvoiceID == outcome.AutoApplied.InvoiceID {
			marker = "*"
		}
		fmt.Fprintf(writer, "  %s %-12s %-24s %.2f  %s", marker,
			candidate.InvoiceID, candidate.CustomerName, candidate.Confidence, candidate.Classification)
		if candidate.Annotation != "" {
			fmt.Fprintf(writer, "  [%s]", candidate.Annotation)
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeSkipped {
		for _, skipped := range outcome.Skipped {
			fmt.Fprintf(writer, "    skipped %s: %s\n", skipped.InvoiceID, skipped.Reason)
		}
	}
}

func (rg *ReportGenerator) generateJSONReport(report *reconciler.BatchReport, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (rg *ReportGenerator) generateCSVReport(report *reconciler.BatchReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"payment_amount", "payment_currency", "payer_name", "reference",
			"invoice_id", "customer_name", "confidence", "classification", "annotation", "auto_applied",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, outcome := range report.Outcomes {
		payment := outcome.Payment

		if len(outcome.Candidates) == 0 {
			row := []string{
				payment.Amount.StringFixed(2), payment.Currency, payment.PayerName, payment.Reference,
				"", "", "", "", "", "false",
			}
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
			continue
		}

		for _, candidate := range outcome.Candidates {
			applied := outcome.AutoApplied != nil && candidate.InvoiceID == outcome.AutoApplied.InvoiceID
			row := []string{
				payment.Amount.StringFixed(2),
				payment.Currency,
				payment.PayerName,
				payment.Reference,
				candidate.InvoiceID,
				candidate.CustomerName,
				strconv.FormatFloat(candidate.Confidence, 'f', 4, 64),
				string(candidate.Classification),
				candidate.Annotation,
				strconv.FormatBool(applied),
			}
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	return nil
}
