package parsers

import (
	"context"
	"io"

	"treasury-reconciliation-service/internal/models"
	"treasury-reconciliation-service/pkg/errors"
	"treasury-reconciliation-service/pkg/logger"
)

// InvoiceParser handles parsing of accounts-receivable ledger CSV files
type InvoiceParser struct {
	*BaseParser
	config *InvoiceParserConfig
	logger logger.Logger
}

// NewInvoiceParser creates a new InvoiceParser with the given configuration
func NewInvoiceParser(config *InvoiceParserConfig) (*InvoiceParser, error) {
	if config == nil {
		config = DefaultInvoiceParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"invoice_parser_config",
			config,
			err,
		)
	}

	parseConfig := &ParseConfig{
		HasHeader:        config.HasHeader,
		Delimiter:        config.Delimiter,
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
	}

	return &InvoiceParser{
		BaseParser: NewBaseParser(parseConfig),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("invoice_parser"),
	}, nil
}

// ParseInvoices parses a CSV file containing the invoice ledger
func (ip *InvoiceParser) ParseInvoices(filePath string) ([]*models.Invoice, *ParseStats, error) {
	return ip.ParseInvoicesWithContext(context.Background(), filePath)
}

// ParseInvoicesWithContext parses invoices with cancellation support.
// Unusable rows are recorded in the stats and skipped; a malformed file or
// missing required headers is a hard error.
func (ip *InvoiceParser) ParseInvoicesWithContext(ctx context.Context, filePath string) ([]*models.Invoice, *ParseStats, error) {
	ip.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"operation": "parse_invoices",
	}).Info("Starting invoice ledger parsing")

	file, reader, err := ip.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	requiredHeaders := []string{
		ip.config.GetColumnName("invoice_id"),
		ip.config.GetColumnName("customer_name"),
		ip.config.GetColumnName("amount"),
		ip.config.GetColumnName("currency"),
		ip.config.GetColumnName("status"),
		ip.config.GetColumnName("due_date"),
	}
	if err := ip.ReadHeaders(reader, parseCtx, requiredHeaders); err != nil {
		ip.logger.WithError(err).WithField("file_path", filePath).Error("Failed to read or validate headers")
		return nil, stats, err
	}

	var invoices []*models.Invoice

	for {
		record, err := ip.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if rerr, ok := errors.AsReconcilerError(err); ok && rerr.Category == errors.CategoryInternal {
				return invoices, stats, err // cancelled
			}

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: "malformed CSV record",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++

		invoice, parseErr := ip.parseInvoiceFromRecord(record, parseCtx)
		if parseErr != nil {
			ip.logger.WithFields(logger.Fields{
				"line_number": parseErr.Line,
				"field":       parseErr.Field,
			}).Warn("Skipping unusable invoice row")
			stats.AddError(parseErr)
			continue
		}

		invoices = append(invoices, invoice)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	ip.logger.WithFields(logger.Fields{
		"file_path":      filePath,
		"total_lines":    stats.TotalLines,
		"records_parsed": stats.RecordsParsed,
		"records_valid":  stats.RecordsValid,
		"error_count":    stats.ErrorCount,
	}).Info("Invoice ledger parsing completed")

	if stats.HasErrors() {
		ip.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Encountered errors during parsing")
	}

	return invoices, stats, nil
}

// parseInvoiceFromRecord creates an Invoice from a CSV record
func (ip *InvoiceParser) parseInvoiceFromRecord(record []string, parseCtx *ParseContext) (*models.Invoice, *ParseError) {
	fields := make(map[string]string, 6)
	for _, name := range []string{"invoice_id", "customer_name", "amount", "currency", "status", "due_date"} {
		value, err := ip.GetFieldValue(record, parseCtx, ip.config.GetColumnName(name))
		if err != nil {
			return nil, &ParseError{
				Line:    parseCtx.LineNumber,
				Field:   name,
				Message: "missing required field",
				Err:     err,
			}
		}
		fields[name] = value
	}

	// amount_remaining and esg_rating are optional columns; absent means
	// fully outstanding and unrated respectively
	remaining := ip.GetOptionalFieldValue(record, parseCtx, ip.config.GetColumnName("amount_remaining"))
	esg := ip.GetOptionalFieldValue(record, parseCtx, ip.config.GetColumnName("esg_rating"))

	invoice, err := models.CreateInvoiceFromCSV(
		fields["invoice_id"],
		fields["customer_name"],
		fields["amount"],
		remaining,
		fields["currency"],
		fields["status"],
		fields["due_date"],
		esg,
	)
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   "invoice",
			Value:   fields["invoice_id"],
			Message: "invalid invoice data",
			Err:     err,
		}
	}

	return invoice, nil
}
