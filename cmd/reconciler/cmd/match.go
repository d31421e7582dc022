package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"treasury-reconciliation-service/cmd/reconciler/config"
	"treasury-reconciliation-service/internal/compliance"
	"treasury-reconciliation-service/internal/ledger"
	"treasury-reconciliation-service/internal/matcher"
	"treasury-reconciliation-service/internal/models"
	"treasury-reconciliation-service/internal/parsers"
	"treasury-reconciliation-service/internal/reconciler"
	"treasury-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the match command
var (
	ledgerFile    string
	paymentsFile  string
	aliasFile     string
	paymentFormat string
	auditDB       string
	outputFormat  string
	outputFile    string

	// Scoring threshold overrides
	stpThreshold     float64
	highThreshold    float64
	noiseFloor       float64
	flatTolerance    float64
	noReferenceMatch bool
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match incoming payments against the AR ledger",
	Long: `Match scores each incoming bank payment against the open invoices in the
accounts-receivable ledger and routes every payment to a disposition:
straight-through processing, one-click confirmation, or investigation.

Payments that clear the STP threshold are applied to the ledger and recorded
in the audit trail. Payments with no viable candidate produce a clarification
draft for the customer's finance team.

This command requires:
- An AR ledger file (CSV format)
- An incoming payments file (CSV format)

Examples:
  # Basic reconciliation run
  reconciler match --ledger ledger.csv --payments payments.csv

  # SWIFT credit advice input with a payer alias table
  reconciler match --ledger ledger.csv --payments advice.csv \
    --payment-format swift --aliases aliases.csv

  # Persist the audit trail and emit a JSON report
  reconciler match --ledger ledger.csv --payments payments.csv \
    --audit-db audit.db --output-format json --output-file report.json

  # Tighten the STP gate for a conservative run
  reconciler match --ledger ledger.csv --payments payments.csv \
    --stp-threshold 0.99`,

	PreRunE: validateMatchFlags,
	RunE:    runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	// Required flags
	matchCmd.Flags().StringVarP(&ledgerFile, "ledger", "l", "", "path to AR ledger CSV file (required)")
	matchCmd.Flags().StringVarP(&paymentsFile, "payments", "p", "", "path to incoming payments CSV file (required)")

	// Input flags
	matchCmd.Flags().StringVar(&aliasFile, "aliases", "", "path to payer alias CSV file (optional)")
	matchCmd.Flags().StringVar(&paymentFormat, "payment-format", "standard", "payment file format: standard, swift")
	matchCmd.Flags().StringVar(&auditDB, "audit-db", "", "path to SQLite audit database (default: in-memory)")

	// Output flags
	matchCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	matchCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Scoring flags
	matchCmd.Flags().Float64Var(&stpThreshold, "stp-threshold", 0, "confidence required for straight-through processing (default 0.95)")
	matchCmd.Flags().Float64Var(&highThreshold, "high-confidence-threshold", 0, "confidence required for one-click confirmation (default 0.70)")
	matchCmd.Flags().Float64Var(&noiseFloor, "noise-floor", 0, "confidence at or below which candidates are dropped (default 0.40)")
	matchCmd.Flags().Float64Var(&flatTolerance, "flat-tolerance", 0, "flat amount tolerance in currency units (default 5.00)")
	matchCmd.Flags().BoolVar(&noReferenceMatch, "no-reference-match", false, "disable exact remittance-reference matching")

	// Mark required flags
	matchCmd.MarkFlagRequired("ledger")
	matchCmd.MarkFlagRequired("payments")

	// Bind flags to viper
	viper.BindPFlag("ledger", matchCmd.Flags().Lookup("ledger"))
	viper.BindPFlag("payments", matchCmd.Flags().Lookup("payments"))
	viper.BindPFlag("aliases", matchCmd.Flags().Lookup("aliases"))
	viper.BindPFlag("payment-format", matchCmd.Flags().Lookup("payment-format"))
	viper.BindPFlag("audit-db", matchCmd.Flags().Lookup("audit-db"))
	viper.BindPFlag("output-format", matchCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", matchCmd.Flags().Lookup("output-file"))
}

func validateMatchFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	ledgerFile = viper.GetString("ledger")
	paymentsFile = viper.GetString("payments")
	aliasFile = viper.GetString("aliases")
	paymentFormat = viper.GetString("payment-format")
	auditDB = viper.GetString("audit-db")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")

	// Validate required flags
	if ledgerFile == "" {
		return fmt.Errorf("ledger file is required")
	}
	if paymentsFile == "" {
		return fmt.Errorf("payments file is required")
	}

	// Validate file existence
	if err := validateFileExists(ledgerFile, "ledger file"); err != nil {
		return err
	}
	if err := validateFileExists(paymentsFile, "payments file"); err != nil {
		return err
	}
	if aliasFile != "" {
		if err := validateFileExists(aliasFile, "alias file"); err != nil {
			return err
		}
	}

	// Validate payment format
	validFormats := map[string]bool{"standard": true, "swift": true}
	if !validFormats[paymentFormat] {
		return fmt.Errorf("invalid payment format '%s'. Valid formats: standard, swift", paymentFormat)
	}

	// Validate output format
	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	// Validate threshold overrides
	for name, value := range map[string]float64{
		"stp-threshold":             stpThreshold,
		"high-confidence-threshold": highThreshold,
		"noise-floor":               noiseFloor,
		"flat-tolerance":            flatTolerance,
	} {
		if value < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	errorHandler := NewCLIErrorHandler(viper.GetBool("verbose"))

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Ledger file: %s\n", ledgerFile)
		fmt.Fprintf(os.Stderr, "Payments file: %s (%s format)\n", paymentsFile, paymentFormat)
		if aliasFile != "" {
			fmt.Fprintf(os.Stderr, "Alias file: %s\n", aliasFile)
		}
		if auditDB != "" {
			fmt.Fprintf(os.Stderr, "Audit database: %s\n", auditDB)
		}
	}

	invoices, err := loadLedgerFile(ctx, ledgerFile)
	if err != nil {
		os.Exit(errorHandler.HandleError(err))
	}

	payments, err := loadPaymentsFile(ctx, paymentsFile, paymentFormat)
	if err != nil {
		os.Exit(errorHandler.HandleError(err))
	}

	service, err := buildService(invoices, auditDB, aliasFile)
	if err != nil {
		os.Exit(errorHandler.HandleError(err))
	}
	defer service.Audit().Close()

	// Run the batch
	report, err := service.ProcessBatch(ctx, payments)
	if err != nil {
		os.Exit(failWithService(service, errorHandler, err))
	}

	// Generate report
	reportConfig := config.CreateReportConfig(outputFormat)
	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	// Determine output destination
	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := reportGenerator.GenerateReport(report, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	// Show completion message
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d payments: %d auto-applied, %d high-confidence, %d investigation, %d unmatched.\n",
			report.Summary.TotalPayments, report.Summary.AutoApplied,
			report.Summary.HighConfidence, report.Summary.Investigation, report.Summary.Unmatched)
		if report.Summary.InvalidPayments > 0 {
			fmt.Fprintf(os.Stderr, "Rejected %d invalid payments.\n", report.Summary.InvalidPayments)
		}
		fmt.Fprintf(os.Stderr, "Processing time: %v\n", report.Summary.ProcessingTime)
	}

	return nil
}

// loadLedgerFile parses the AR ledger export into invoice records
func loadLedgerFile(ctx context.Context, path string) ([]*models.Invoice, error) {
	invoiceConfig, err := config.CreateInvoiceParserConfig()
	if err != nil {
		return nil, err
	}

	parser, err := parsers.NewInvoiceParser(invoiceConfig)
	if err != nil {
		return nil, err
	}

	invoices, stats, err := parser.ParseInvoicesWithContext(ctx, path)
	if err != nil {
		return nil, err
	}
	if stats.HasErrors() && viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Ledger parse warnings: %s\n", stats.String())
	}

	return invoices, nil
}

// loadPaymentsFile parses the incoming payment batch in the named format
func loadPaymentsFile(ctx context.Context, path, format string) ([]*models.IncomingPayment, error) {
	paymentConfig, err := config.CreatePaymentParserConfig(format)
	if err != nil {
		return nil, err
	}

	parser, err := parsers.NewPaymentParser(paymentConfig)
	if err != nil {
		return nil, err
	}

	payments, stats, err := parser.ParsePaymentsWithContext(ctx, path)
	if err != nil {
		return nil, err
	}
	if stats.HasErrors() && viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Payment parse warnings: %s\n", stats.String())
	}

	return payments, nil
}

// failWithService closes the audit store before mapping a failure to an exit
// code. os.Exit skips deferred closes, and the SQLite audit store needs an
// explicit close to flush its WAL state.
func failWithService(service *reconciler.Service, handler *CLIErrorHandler, err error) int {
	if closeErr := service.Audit().Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close audit store: %v\n", closeErr)
	}
	return handler.HandleError(err)
}

// buildService assembles the reconciliation service shared by the match and
// serve commands
func buildService(invoices []*models.Invoice, auditPath, aliasPath string) (*reconciler.Service, error) {
	var aliases *matcher.AliasRegistry
	if aliasPath != "" {
		registry, stats, err := parsers.LoadAliasRegistry(aliasPath)
		if err != nil {
			return nil, err
		}
		if stats.HasErrors() && viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Alias parse warnings: %s\n", stats.String())
		}
		aliases = registry
	}

	engineConfig, err := config.CreateEngineConfig(config.EngineOverrides{
		STPThreshold:            stpThreshold,
		HighConfidenceThreshold: highThreshold,
		NoiseFloor:              noiseFloor,
		FlatToleranceUnits:      flatTolerance,
		DisableReferenceMatch:   noReferenceMatch,
	})
	if err != nil {
		return nil, err
	}

	var audit compliance.Recorder
	if auditPath != "" {
		audit, err = compliance.NewSQLiteRecorder(auditPath)
		if err != nil {
			return nil, err
		}
	} else {
		audit = compliance.NewMemoryRecorder()
	}

	engine := matcher.NewEngine(engineConfig, aliases)
	return reconciler.NewService(engine, ledger.NewLedger(invoices), audit), nil
}
