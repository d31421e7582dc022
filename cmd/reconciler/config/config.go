// Package config builds parser, engine, and reporter configurations for the
// CLI, layering command-line overrides onto the production defaults.
package config

import (
	"fmt"
	"strings"

	"treasury-reconciliation-service/internal/matcher"
	"treasury-reconciliation-service/internal/parsers"
	"treasury-reconciliation-service/internal/reporter"
)

// CreateInvoiceParserConfig creates a parser configuration for the AR ledger
// export. The alias map absorbs the column-name drift seen across ERP exports.
func CreateInvoiceParserConfig() (*parsers.InvoiceParserConfig, error) {
	config := parsers.DefaultInvoiceParserConfig()

	config.ColumnAliases = map[string]string{
		"invoice_id":       "invoice_id",
		"customer_name":    "customer_name",
		"amount":           "amount",
		"amount_remaining": "amount_remaining",
		"currency":         "currency",
		"status":           "status",
		"due_date":         "due_date",
		"esg_rating":       "esg_rating",
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid invoice parser configuration: %w", err)
	}

	return config, nil
}

// CreatePaymentParserConfig creates a parser configuration for an incoming
// payment file in the named bank export format
func CreatePaymentParserConfig(format string) (*parsers.PaymentParserConfig, error) {
	config := parsers.GetPaymentConfig(format)
	if config == nil {
		return nil, fmt.Errorf("unknown payment format '%s' (supported: standard, swift)", format)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid payment parser configuration: %w", err)
	}

	return config, nil
}

// EngineOverrides holds the scoring thresholds a caller may override from the
// command line. Zero values mean "keep the production calibration".
type EngineOverrides struct {
	STPThreshold            float64
	HighConfidenceThreshold float64
	NoiseFloor              float64
	FlatToleranceUnits      float64
	DisableReferenceMatch   bool
}

// CreateEngineConfig creates a matching engine configuration from the
// production defaults plus any explicit overrides
func CreateEngineConfig(overrides EngineOverrides) (*matcher.EngineConfig, error) {
	config := matcher.DefaultEngineConfig()

	if overrides.STPThreshold > 0 {
		config.STPThreshold = overrides.STPThreshold
	}
	if overrides.HighConfidenceThreshold > 0 {
		config.HighConfidenceThreshold = overrides.HighConfidenceThreshold
	}
	if overrides.NoiseFloor > 0 {
		config.NoiseFloor = overrides.NoiseFloor
	}
	if overrides.FlatToleranceUnits > 0 {
		config.FlatToleranceUnits = overrides.FlatToleranceUnits
	}
	if overrides.DisableReferenceMatch {
		config.EnableReferenceMatch = false
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	return config, nil
}

// CreateReportConfig creates a report configuration for the given output format
func CreateReportConfig(format string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		config.Format = reporter.FormatJSON
		config.IncludeDrafts = true
	case "csv":
		config.Format = reporter.FormatCSV
	default:
		config.Format = reporter.FormatConsole
		config.IncludeDrafts = true
	}

	return config
}
