package cmd

import (
	"context"
	"fmt"
	"os"

	"treasury-reconciliation-service/internal/analytics"
	"treasury-reconciliation-service/internal/server"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the serve command
var (
	listenAddr     string
	openingBalance float64
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reconciliation engine over HTTP",
	Long: `Serve loads the AR ledger and exposes the matching engine, disposition
workflow, treasury metrics, and audit trail over an HTTP API.

Endpoints:
  GET  /health                  liveness probe
  POST /api/v1/match            score one payment against the ledger
  POST /api/v1/dispositions     apply a confirmed payment or dispute
  GET  /api/v1/metrics/dso      DSO and liquidity metrics
  GET  /api/v1/metrics/aging    receivables aging report
  GET  /api/v1/metrics/esg      ESG-weighted exposure profile
  GET  /api/v1/audit            audit trail query

Examples:
  reconciler serve --ledger ledger.csv
  reconciler serve --ledger ledger.csv --listen :9090 --audit-db audit.db
  reconciler serve --ledger ledger.csv --aliases aliases.csv --opening-balance 125000000`,

	PreRunE: validateServeFlags,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&ledgerFile, "ledger", "l", "", "path to AR ledger CSV file (required)")
	serveCmd.Flags().StringVar(&aliasFile, "aliases", "", "path to payer alias CSV file (optional)")
	serveCmd.Flags().StringVar(&auditDB, "audit-db", "", "path to SQLite audit database (default: in-memory)")
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "listen address for the HTTP server")
	serveCmd.Flags().Float64Var(&openingBalance, "opening-balance", 0, "opening cash balance for liquidity simulation")

	serveCmd.MarkFlagRequired("ledger")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("opening-balance", serveCmd.Flags().Lookup("opening-balance"))
}

func validateServeFlags(cmd *cobra.Command, args []string) error {
	listenAddr = viper.GetString("listen")
	openingBalance = viper.GetFloat64("opening-balance")

	if ledgerFile == "" {
		return fmt.Errorf("ledger file is required")
	}
	if err := validateFileExists(ledgerFile, "ledger file"); err != nil {
		return err
	}
	if aliasFile != "" {
		if err := validateFileExists(aliasFile, "alias file"); err != nil {
			return err
		}
	}

	if listenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if openingBalance < 0 {
		return fmt.Errorf("opening balance cannot be negative")
	}

	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	errorHandler := NewCLIErrorHandler(viper.GetBool("verbose"))

	invoices, err := loadLedgerFile(ctx, ledgerFile)
	if err != nil {
		os.Exit(errorHandler.HandleError(err))
	}

	service, err := buildService(invoices, auditDB, aliasFile)
	if err != nil {
		os.Exit(errorHandler.HandleError(err))
	}
	defer service.Audit().Close()

	metrics := analytics.New(analytics.WithOpeningBalance(decimal.NewFromFloat(openingBalance)))

	if viper.GetBool("verbose") {
		stats := service.Ledger().Stats()
		fmt.Fprintf(os.Stderr, "Loaded %d invoices (%d open) from %s\n",
			stats.TotalInvoices, stats.OpenInvoices, ledgerFile)
	}

	srv := server.New(service, metrics)
	if err := srv.Run(listenAddr); err != nil {
		os.Exit(failWithService(service, errorHandler, err))
	}

	return nil
}
