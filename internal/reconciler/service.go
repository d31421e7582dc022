// Package reconciler orchestrates the reconciliation workflow: it feeds
// payment batches through the matching engine, applies straight-through
// dispositions against the ledger, records the audit trail, and drafts
// clarification correspondence for payments nothing matched.
//
// Example usage:
//
//	service := reconciler.NewService(engine, ledger, audit)
//	report, err := service.ProcessBatch(ctx, payments)
package reconciler

import (
	"context"
	"time"

	"treasury-reconciliation-service/internal/compliance"
	"treasury-reconciliation-service/internal/correspond"
	"treasury-reconciliation-service/internal/ledger"
	"treasury-reconciliation-service/internal/matcher"
	"treasury-reconciliation-service/internal/models"
	"treasury-reconciliation-service/pkg/errors"
	"treasury-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Audit actions recorded for clearing dispositions
const (
	ActionSTPCleared     = "STP_CLEARED"
	ActionPaymentApplied = "PAYMENT_APPLIED"
	ActionDisputed       = "DISPUTED"
)

// Service coordinates matching, ledger mutation, audit, and correspondence
type Service struct {
	engine  *matcher.Engine
	ledger  *ledger.Ledger
	audit   compliance.Recorder
	drafter *correspond.Drafter
	log     logger.Logger
}

// NewService creates a reconciliation service. A nil recorder gets an
// in-memory audit trail; production wiring passes the SQLite recorder.
func NewService(engine *matcher.Engine, ldg *ledger.Ledger, audit compliance.Recorder) *Service {
	if audit == nil {
		audit = compliance.NewMemoryRecorder()
	}

	return &Service{
		engine:  engine,
		ledger:  ldg,
		audit:   audit,
		drafter: correspond.NewDrafter(),
		log:     logger.GetGlobalLogger().WithComponent("reconciler"),
	}
}

// Ledger exposes the underlying invoice store
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// Audit exposes the audit recorder
func (s *Service) Audit() compliance.Recorder {
	return s.audit
}

// MatchPayment scores one payment against the current ledger state without
// applying anything
func (s *Service) MatchPayment(payment *models.IncomingPayment) (*matcher.MatchResult, error) {
	return s.engine.Match(payment, s.ledger.Snapshot())
}

// PaymentOutcome is the batch result for one payment
type PaymentOutcome struct {
	Payment    *models.IncomingPayment  `json:"payment"`
	Candidates []*models.MatchCandidate `json:"candidates"`
	Skipped    []matcher.SkippedInvoice `json:"skipped,omitempty"`

	// AutoApplied is set when the best candidate cleared straight through
	// and the payment was applied to the ledger
	AutoApplied *models.MatchCandidate `json:"auto_applied,omitempty"`

	// Draft is set when no candidate survived the noise floor
	Draft *correspond.Draft `json:"draft,omitempty"`

	// Error is set when the payment itself was rejected as malformed
	Error string `json:"error,omitempty"`
}

// BatchSummary aggregates counts over a processed batch
type BatchSummary struct {
	TotalPayments   int           `json:"total_payments"`
	AutoApplied     int           `json:"auto_applied"`
	HighConfidence  int           `json:"high_confidence"`
	Investigation   int           `json:"investigation"`
	Unmatched       int           `json:"unmatched"`
	InvalidPayments int           `json:"invalid_payments"`
	SkippedInvoices int           `json:"skipped_invoices"`
	ProcessingTime  time.Duration `json:"processing_time"`
}

// BatchReport is the full output of a batch run
type BatchReport struct {
	Outcomes []*PaymentOutcome `json:"outcomes"`
	Summary  BatchSummary      `json:"summary"`
}

// ProcessBatch runs a payment batch through matching and disposition.
//
// Each payment is scored against a fresh ledger snapshot, so a straight-
// through application earlier in the batch is visible to later payments.
// A malformed payment is recorded in its outcome and the batch continues;
// only context cancellation aborts the run.
func (s *Service) ProcessBatch(ctx context.Context, payments []*models.IncomingPayment) (*BatchReport, error) {
	start := time.Now()

	s.log.WithField("payment_count", len(payments)).Info("Starting batch reconciliation")

	tracker := logger.NewProgressTracker(logger.ProgressConfig{
		Operation: "batch_reconciliation",
		Total:     int64(len(payments)),
	})

	report := &BatchReport{
		Outcomes: make([]*PaymentOutcome, 0, len(payments)),
	}

	for _, payment := range payments {
		select {
		case <-ctx.Done():
			tracker.Fail(ctx.Err())
			return report, errors.InternalError("batch_reconciliation", ctx.Err())
		default:
		}

		outcome := s.processPayment(ctx, payment)
		report.Outcomes = append(report.Outcomes, outcome)
		s.tally(&report.Summary, outcome)
		tracker.Increment()
	}

	report.Summary.TotalPayments = len(payments)
	report.Summary.ProcessingTime = time.Since(start)
	tracker.Complete()

	s.log.WithFields(logger.Fields{
		"total_payments":  report.Summary.TotalPayments,
		"auto_applied":    report.Summary.AutoApplied,
		"high_confidence": report.Summary.HighConfidence,
		"investigation":   report.Summary.Investigation,
		"unmatched":       report.Summary.Unmatched,
		"invalid":         report.Summary.InvalidPayments,
		"elapsed":         report.Summary.ProcessingTime.Round(time.Millisecond).String(),
	}).Info("Batch reconciliation completed")

	return report, nil
}

// processPayment scores one payment and applies the straight-through
// disposition when the best candidate clears the STP bar
func (s *Service) processPayment(ctx context.Context, payment *models.IncomingPayment) *PaymentOutcome {
	outcome := &PaymentOutcome{Payment: payment}

	result, err := s.engine.Match(payment, s.ledger.Snapshot())
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Candidates = result.Candidates
	outcome.Skipped = result.Skipped

	best := result.Best()
	if best == nil {
		draft, draftErr := s.drafter.DraftClarification(payment)
		if draftErr != nil {
			s.log.WithError(draftErr).Warn("Failed to draft clarification")
		} else {
			outcome.Draft = draft
		}
		return outcome
	}

	if best.Classification == models.STPAutomated {
		if err := s.applySTP(ctx, payment, best); err != nil {
			// The match stands; only the automatic application failed.
			// Leave the candidate for manual disposition.
			s.log.WithError(err).WithField("invoice_id", best.InvoiceID).
				Error("Straight-through application failed")
		} else {
			outcome.AutoApplied = best
		}
	}

	return outcome
}

// applySTP applies a straight-through payment and records the audit event.
// The ledger mutation and the audit write succeed or fail together from the
// caller's point of view: a failed audit write fails the disposition.
func (s *Service) applySTP(ctx context.Context, payment *models.IncomingPayment, candidate *models.MatchCandidate) error {
	if _, err := s.ledger.ApplyPayment(candidate.InvoiceID, payment.Amount); err != nil {
		return err
	}

	_, err := s.audit.Record(ctx, compliance.NewAuditEvent(candidate.InvoiceID, ActionSTPCleared, ""))
	return err
}

// ApplyDisposition applies a human-confirmed payment against an invoice and
// records who confirmed it
func (s *Service) ApplyDisposition(ctx context.Context, invoiceID string, amount decimal.Decimal, principal string) (*models.Invoice, error) {
	inv, err := s.ledger.ApplyPayment(invoiceID, amount)
	if err != nil {
		return nil, err
	}

	if _, err := s.audit.Record(ctx, compliance.NewAuditEvent(invoiceID, ActionPaymentApplied, principal)); err != nil {
		return nil, err
	}

	return inv, nil
}

// DisputeInvoice moves an invoice into dispute and records the action
func (s *Service) DisputeInvoice(ctx context.Context, invoiceID, principal string) (*models.Invoice, error) {
	inv, err := s.ledger.MarkDisputed(invoiceID)
	if err != nil {
		return nil, err
	}

	if _, err := s.audit.Record(ctx, compliance.NewAuditEvent(invoiceID, ActionDisputed, principal)); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) tally(summary *BatchSummary, outcome *PaymentOutcome) {
	summary.SkippedInvoices += len(outcome.Skipped)

	if outcome.Error != "" {
		summary.InvalidPayments++
		return
	}

	if len(outcome.Candidates) == 0 {
		summary.Unmatched++
		return
	}

	if outcome.AutoApplied != nil {
		summary.AutoApplied++
		return
	}

	switch outcome.Candidates[0].Classification {
	case models.STPAutomated, models.ExceptionHighConfidence:
		summary.HighConfidence++
	default:
		summary.Investigation++
	}
}
