package parsers

import (
	"context"
	"io"

	"treasury-reconciliation-service/internal/models"
	"treasury-reconciliation-service/pkg/errors"
	"treasury-reconciliation-service/pkg/logger"
)

// PaymentParser handles parsing of incoming payment batch CSV files
type PaymentParser struct {
	*BaseParser
	config *PaymentParserConfig
	logger logger.Logger
}

// NewPaymentParser creates a new PaymentParser with the given configuration
func NewPaymentParser(config *PaymentParserConfig) (*PaymentParser, error) {
	if config == nil {
		config = DefaultPaymentParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"payment_parser_config",
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

	return &PaymentParser{
		BaseParser: NewBaseParser(parseConfig),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("payment_parser"),
	}, nil
}

// ParsePayments parses a CSV file containing an incoming payment batch
func (pp *PaymentParser) ParsePayments(filePath string) ([]*models.IncomingPayment, *ParseStats, error) {
	return pp.ParsePaymentsWithContext(context.Background(), filePath)
}

// ParsePaymentsWithContext parses payments with cancellation support.
// Rows that fail validation are recorded and skipped; the engine's own
// fail-fast input check still guards anything that slips through.
func (pp *PaymentParser) ParsePaymentsWithContext(ctx context.Context, filePath string) ([]*models.IncomingPayment, *ParseStats, error) {
	pp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"operation": "parse_payments",
	}).Info("Starting payment batch parsing")

	file, reader, err := pp.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	requiredHeaders := []string{
		pp.config.GetColumnName("amount"),
		pp.config.GetColumnName("currency"),
		pp.config.GetColumnName("payer_name"),
	}
	if err := pp.ReadHeaders(reader, parseCtx, requiredHeaders); err != nil {
		pp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to read or validate headers")
		return nil, stats, err
	}

	var payments []*models.IncomingPayment

	for {
		record, err := pp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if rerr, ok := errors.AsReconcilerError(err); ok && rerr.Category == errors.CategoryInternal {
				return payments, stats, err // cancelled
			}

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: "malformed CSV record",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++

		payment, parseErr := pp.parsePaymentFromRecord(record, parseCtx)
		if parseErr != nil {
			pp.logger.WithFields(logger.Fields{
				"line_number": parseErr.Line,
				"field":       parseErr.Field,
			}).Warn("Skipping unusable payment row")
			stats.AddError(parseErr)
			continue
		}

		payments = append(payments, payment)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	pp.logger.WithFields(logger.Fields{
		"file_path":      filePath,
		"total_lines":    stats.TotalLines,
		"records_parsed": stats.RecordsParsed,
		"records_valid":  stats.RecordsValid,
		"error_count":    stats.ErrorCount,
	}).Info("Payment batch parsing completed")

	if stats.HasErrors() {
		pp.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Encountered errors during parsing")
	}

	return payments, stats, nil
}

// parsePaymentFromRecord creates an IncomingPayment from a CSV record
func (pp *PaymentParser) parsePaymentFromRecord(record []string, parseCtx *ParseContext) (*models.IncomingPayment, *ParseError) {
	amount, err := pp.GetFieldValue(record, parseCtx, pp.config.GetColumnName("amount"))
	if err != nil {
		return nil, &ParseError{Line: parseCtx.LineNumber, Field: "amount", Message: "missing required field", Err: err}
	}

	currency, err := pp.GetFieldValue(record, parseCtx, pp.config.GetColumnName("currency"))
	if err != nil {
		return nil, &ParseError{Line: parseCtx.LineNumber, Field: "currency", Message: "missing required field", Err: err}
	}

	payer, err := pp.GetFieldValue(record, parseCtx, pp.config.GetColumnName("payer_name"))
	if err != nil {
		return nil, &ParseError{Line: parseCtx.LineNumber, Field: "payer_name", Message: "missing required field", Err: err}
	}

	// The remittance reference is routinely blank on wire payments
	reference := pp.GetOptionalFieldValue(record, parseCtx, pp.config.GetColumnName("reference"))

	payment, err := models.CreateIncomingPaymentFromCSV(amount, currency, payer, reference)
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   "payment",
			Value:   payer,
			Message: "invalid payment data",
			Err:     err,
		}
	}

	return payment, nil
}
