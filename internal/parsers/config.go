package parsers

import (
	"fmt"
	"strings"
)

// InvoiceParserConfig holds configuration for parsing invoice ledger CSV files
type InvoiceParserConfig struct {
	IDColumn        string            `json:"id_column"`
	CustomerColumn  string            `json:"customer_column"`
	AmountColumn    string            `json:"amount_column"`
	RemainingColumn string            `json:"remaining_column"`
	CurrencyColumn  string            `json:"currency_column"`
	StatusColumn    string            `json:"status_column"`
	DueDateColumn   string            `json:"due_date_column"`
	ESGColumn       string            `json:"esg_column"`
	HasHeader       bool              `json:"has_header"`
	Delimiter       rune              `json:"delimiter"`
	ColumnAliases   map[string]string `json:"column_aliases,omitempty"`
}

// Validate checks if the invoice parser configuration is valid
func (ipc *InvoiceParserConfig) Validate() error {
	required := map[string]string{
		"invoice ID column": ipc.IDColumn,
		"customer column":   ipc.CustomerColumn,
		"amount column":     ipc.AmountColumn,
		"currency column":   ipc.CurrencyColumn,
		"status column":     ipc.StatusColumn,
		"due date column":   ipc.DueDateColumn,
	}

	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}

	return nil
}

// GetColumnName returns the actual column name, checking aliases first
func (ipc *InvoiceParserConfig) GetColumnName(standardName string) string {
	if alias, exists := ipc.ColumnAliases[standardName]; exists {
		return alias
	}

	switch standardName {
	case "invoice_id":
		return ipc.IDColumn
	case "customer_name":
		return ipc.CustomerColumn
	case "amount":
		return ipc.AmountColumn
	case "amount_remaining":
		return ipc.RemainingColumn
	case "currency":
		return ipc.CurrencyColumn
	case "status":
		return ipc.StatusColumn
	case "due_date":
		return ipc.DueDateColumn
	case "esg_rating":
		return ipc.ESGColumn
	default:
		return standardName
	}
}

// DefaultInvoiceParserConfig returns a configuration matching the standard
// ledger export format
func DefaultInvoiceParserConfig() *InvoiceParserConfig {
	return &InvoiceParserConfig{
		IDColumn:        "invoice_id",
		CustomerColumn:  "customer_name",
		AmountColumn:    "amount",
		RemainingColumn: "amount_remaining",
		CurrencyColumn:  "currency",
		StatusColumn:    "status",
		DueDateColumn:   "due_date",
		ESGColumn:       "esg_rating",
		HasHeader:       true,
		Delimiter:       ',',
		ColumnAliases:   make(map[string]string),
	}
}

// PaymentParserConfig holds configuration for parsing incoming payment CSV files
type PaymentParserConfig struct {
	AmountColumn    string            `json:"amount_column"`
	CurrencyColumn  string            `json:"currency_column"`
	PayerColumn     string            `json:"payer_column"`
	ReferenceColumn string            `json:"reference_column"`
	HasHeader       bool              `json:"has_header"`
	Delimiter       rune              `json:"delimiter"`
	ColumnAliases   map[string]string `json:"column_aliases,omitempty"`
}

// Validate checks if the payment parser configuration is valid
func (ppc *PaymentParserConfig) Validate() error {
	if strings.TrimSpace(ppc.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}

	if strings.TrimSpace(ppc.CurrencyColumn) == "" {
		return fmt.Errorf("currency column cannot be empty")
	}

	if strings.TrimSpace(ppc.PayerColumn) == "" {
		return fmt.Errorf("payer column cannot be empty")
	}

	return nil
}

// GetColumnName returns the actual column name, checking aliases first
func (ppc *PaymentParserConfig) GetColumnName(standardName string) string {
	if alias, exists := ppc.ColumnAliases[standardName]; exists {
		return alias
	}

	switch standardName {
	case "amount":
		return ppc.AmountColumn
	case "currency":
		return ppc.CurrencyColumn
	case "payer_name":
		return ppc.PayerColumn
	case "reference":
		return ppc.ReferenceColumn
	default:
		return standardName
	}
}

// DefaultPaymentParserConfig returns a configuration matching the standard
// bank export format
func DefaultPaymentParserConfig() *PaymentParserConfig {
	return &PaymentParserConfig{
		AmountColumn:    "amount",
		CurrencyColumn:  "currency",
		PayerColumn:     "payer_name",
		ReferenceColumn: "reference",
		HasHeader:       true,
		Delimiter:       ',',
		ColumnAliases:   make(map[string]string),
	}
}

// Predefined payment configurations for common bank export formats
var (
	// StandardPaymentConfig represents the in-house payment batch format
	StandardPaymentConfig = DefaultPaymentParserConfig()

	// SwiftAdvicePaymentConfig represents MT-style credit advice exports
	SwiftAdvicePaymentConfig = &PaymentParserConfig{
		AmountColumn:    "credit_amount",
		CurrencyColumn:  "ccy",
		PayerColumn:     "ordering_customer",
		ReferenceColumn: "remittance_information",
		HasHeader:       true,
		Delimiter:       ',',
		ColumnAliases:   make(map[string]string),
	}
)

// GetPaymentConfig returns a predefined payment configuration by name
func GetPaymentConfig(name string) *PaymentParserConfig {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard":
		return StandardPaymentConfig
	case "swift":
		return SwiftAdvicePaymentConfig
	default:
		return nil
	}
}
