package config

import (
	"testing"

	"treasury-reconciliation-service/internal/reporter"
)

func TestCreateInvoiceParserConfig(t *testing.T) {
	config, err := CreateInvoiceParserConfig()
	if err != nil {
		t.Fatalf("failed to create invoice parser config: %v", err)
	}

	if config.IDColumn != "invoice_id" {
		t.Errorf("expected IDColumn 'invoice_id', got '%s'", config.IDColumn)
	}
	if config.CustomerColumn != "customer_name" {
		t.Errorf("expected CustomerColumn 'customer_name', got '%s'", config.CustomerColumn)
	}
	if config.AmountColumn != "amount" {
		t.Errorf("expected AmountColumn 'amount', got '%s'", config.AmountColumn)
	}
	if !config.HasHeader {
		t.Error("expected HasHeader to be true")
	}
	if config.Delimiter != ',' {
		t.Errorf("expected Delimiter ',', got '%c'", config.Delimiter)
	}

	if len(config.ColumnAliases) == 0 {
		t.Error("expected column aliases to be set")
	}

	if err := config.Validate(); err != nil {
		t.Errorf("invoice parser config should be valid: %v", err)
	}
}

func TestCreatePaymentParserConfig(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		payerColumn string
		expectError bool
	}{
		{"standard format", "standard", "payer_name", false},
		{"swift format", "swift", "ordering_customer", false},
		{"unknown format", "mt940", "", true},
		{"empty format", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := CreatePaymentParserConfig(tt.format)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for format '%s'", tt.format)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.PayerColumn != tt.payerColumn {
				t.Errorf("expected PayerColumn '%s', got '%s'", tt.payerColumn, config.PayerColumn)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("payment parser config should be valid: %v", err)
			}
		})
	}
}

func TestCreateEngineConfig(t *testing.T) {
	tests := []struct {
		name        string
		overrides   EngineOverrides
		expectError bool
		check       func(t *testing.T, stp, high, noise, flat float64, refMatch bool)
	}{
		{
			name:      "defaults preserved",
			overrides: EngineOverrides{},
			check: func(t *testing.T, stp, high, noise, flat float64, refMatch bool) {
				if stp != 0.95 || high != 0.70 || noise != 0.40 || flat != 5.0 {
					t.Errorf("expected production defaults, got stp=%f high=%f noise=%f flat=%f", stp, high, noise, flat)
				}
				if !refMatch {
					t.Error("expected reference matching enabled by default")
				}
			},
		},
		{
			name:      "stp override",
			overrides: EngineOverrides{STPThreshold: 0.99},
			check: func(t *testing.T, stp, high, noise, flat float64, refMatch bool) {
				if stp != 0.99 {
					t.Errorf("expected STP threshold 0.99, got %f", stp)
				}
				if high != 0.70 {
					t.Errorf("expected untouched high threshold 0.70, got %f", high)
				}
			},
		},
		{
			name:      "reference match disabled",
			overrides: EngineOverrides{DisableReferenceMatch: true},
			check: func(t *testing.T, stp, high, noise, flat float64, refMatch bool) {
				if refMatch {
					t.Error("expected reference matching disabled")
				}
			},
		},
		{
			name:        "inconsistent thresholds rejected",
			overrides:   EngineOverrides{NoiseFloor: 0.80},
			expectError: true,
		},
		{
			name:        "high threshold above stp rejected",
			overrides:   EngineOverrides{HighConfidenceThreshold: 0.96},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := CreateEngineConfig(tt.overrides)

			if tt.expectError {
				if err == nil {
					t.Error("expected validation error")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, config.STPThreshold, config.HighConfidenceThreshold,
					config.NoiseFloor, config.FlatToleranceUnits, config.EnableReferenceMatch)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("engine config should be valid: %v", err)
			}
		})
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		name         string
		format       string
		expectedType reporter.OutputFormat
	}{
		{"console format", "console", reporter.FormatConsole},
		{"json format", "json", reporter.FormatJSON},
		{"csv format", "csv", reporter.FormatCSV},
		{"unknown falls back to console", "xml", reporter.FormatConsole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := CreateReportConfig(tt.format)

			if config.Format != tt.expectedType {
				t.Errorf("expected Format %s, got %s", tt.expectedType, config.Format)
			}

			switch tt.expectedType {
			case reporter.FormatConsole, reporter.FormatJSON:
				if !config.IncludeDrafts {
					t.Errorf("%s format should include clarification drafts", tt.expectedType)
				}
			case reporter.FormatCSV:
				if !config.CSVHeaders {
					t.Error("CSV format should include headers")
				}
				if config.CSVDelimiter != ',' {
					t.Error("CSV format should use comma delimiter")
				}
			}

			if err := config.Validate(); err != nil {
				t.Errorf("report config should be valid: %v", err)
			}
		})
	}
}
