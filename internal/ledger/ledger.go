// Package ledger maintains the in-memory accounts-receivable ledger the
// matching engine scores against.
//
// The store is the single writer for invoice state. The engine never sees the
// live store; it works on frozen snapshots, so a disposition applied mid-batch
// cannot shift scores under an in-flight match. Amount remaining only ever
// decreases, and an invoice whose remaining hits zero flips to Paid in the
// same operation.
package ledger

import (
	"sort"
	"sync"

	"treasury-reconciliation-service/internal/models"
	"treasury-reconciliation-service/pkg/errors"
	"treasury-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Ledger is a thread-safe invoice store
type Ledger struct {
	mu       sync.RWMutex
	invoices map[string]*models.Invoice
	log      logger.Logger
}

// NewLedger creates a ledger seeded with the given invoices. Nil entries and
// duplicate ids are dropped; the last duplicate wins, matching how ledger
// re-exports overwrite earlier rows.
func NewLedger(invoices []*models.Invoice) *Ledger {
	l := &Ledger{
		invoices: make(map[string]*models.Invoice, len(invoices)),
		log:      logger.GetGlobalLogger().WithComponent("ledger"),
	}

	for _, inv := range invoices {
		if inv == nil || inv.ID == "" {
			continue
		}
		copied := *inv
		l.invoices[inv.ID] = &copied
	}

	return l
}

// Get returns a copy of the invoice with the given id
func (l *Ledger) Get(invoiceID string) (*models.Invoice, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	inv, ok := l.invoices[invoiceID]
	if !ok {
		return nil, errors.LedgerError(errors.CodeUnknownInvoice, invoiceID, nil)
	}

	copied := *inv
	return &copied, nil
}

// Len returns the number of invoices in the ledger
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.invoices)
}

// Snapshot returns a frozen copy of the ledger ordered by invoice id. The
// copy is deep: callers may hold it across subsequent mutations and the
// matching engine may scan it without locking.
func (l *Ledger) Snapshot() []*models.Invoice {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make([]*models.Invoice, 0, len(l.invoices))
	for _, inv := range l.invoices {
		copied := *inv
		snapshot = append(snapshot, &copied)
	}

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].ID < snapshot[j].ID
	})

	return snapshot
}

// Append adds a new invoice to the ledger. The invoice must validate and its
// id must not already exist.
func (l *Ledger) Append(inv *models.Invoice) error {
	if inv == nil {
		return errors.LedgerError(errors.CodeUnknownInvoice, "", nil)
	}
	if err := inv.Validate(); err != nil {
		return errors.WrapIfNeeded(err, errors.CategoryLedger, errors.CodeInvalidData, "invalid invoice")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.invoices[inv.ID]; exists {
		return errors.LedgerError(errors.CodeDuplicateInvoice, inv.ID, nil)
	}

	copied := *inv
	l.invoices[inv.ID] = &copied

	l.log.WithFields(logger.Fields{
		"invoice_id": inv.ID,
		"amount":     inv.Amount.String(),
		"currency":   inv.Currency,
	}).Info("Invoice appended to ledger")

	return nil
}

// ApplyPayment applies a confirmed payment amount against an open invoice.
//
// Amount remaining decreases monotonically: an application larger than the
// remaining balance is rejected, never clamped. When the remaining balance
// reaches zero the invoice flips to Paid in the same operation, so no
// observer ever sees an Open invoice with nothing outstanding.
func (l *Ledger) ApplyPayment(invoiceID string, amount decimal.Decimal) (*models.Invoice, error) {
	if !amount.IsPositive() {
		return nil, errors.LedgerError(errors.CodeOverApplication, invoiceID, nil).
			WithSuggestion("applied amounts must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.invoices[invoiceID]
	if !ok {
		return nil, errors.LedgerError(errors.CodeUnknownInvoice, invoiceID, nil)
	}

	if !inv.IsOpen() {
		return nil, errors.LedgerError(errors.CodeInvoiceNotOpen, invoiceID, nil)
	}

	if amount.GreaterThan(inv.AmountRemaining) {
		return nil, errors.LedgerError(errors.CodeOverApplication, invoiceID, nil).
			WithContext("amount_remaining", inv.AmountRemaining.String()).
			WithContext("applied", amount.String())
	}

	inv.AmountRemaining = inv.AmountRemaining.Sub(amount)
	if inv.AmountRemaining.IsZero() {
		inv.Status = models.StatusPaid
	}

	l.log.WithFields(logger.Fields{
		"invoice_id": invoiceID,
		"applied":    amount.String(),
		"remaining":  inv.AmountRemaining.String(),
		"status":     string(inv.Status),
	}).Info("Payment applied to invoice")

	copied := *inv
	return &copied, nil
}

// MarkDisputed moves an open invoice into dispute, freezing it out of
// matching and payment application until resolved.
func (l *Ledger) MarkDisputed(invoiceID string) (*models.Invoice, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.invoices[invoiceID]
	if !ok {
		return nil, errors.LedgerError(errors.CodeUnknownInvoice, invoiceID, nil)
	}

	if !inv.IsOpen() {
		return nil, errors.LedgerError(errors.CodeInvoiceNotOpen, invoiceID, nil)
	}

	inv.Status = models.StatusDisputed

	l.log.WithField("invoice_id", invoiceID).Warn("Invoice marked disputed")

	copied := *inv
	return &copied, nil
}

// Stats summarizes the ledger composition
type Stats struct {
	TotalInvoices int             `json:"total_invoices"`
	OpenInvoices  int             `json:"open_invoices"`
	OpenRemaining decimal.Decimal `json:"open_remaining"`
	TotalBilled   decimal.Decimal `json:"total_billed"`
}

// Stats returns aggregate figures over the current ledger state
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{
		TotalInvoices: len(l.invoices),
		OpenRemaining: decimal.Zero,
		TotalBilled:   decimal.Zero,
	}

	for _, inv := range l.invoices {
		stats.TotalBilled = stats.TotalBilled.Add(inv.Amount)
		if inv.IsOpen() {
			stats.OpenInvoices++
			stats.OpenRemaining = stats.OpenRemaining.Add(inv.AmountRemaining)
		}
	}

	return stats
}
