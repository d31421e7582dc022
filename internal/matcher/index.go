package matcher

import (
	"treasury-reconciliation-service/internal/models"
	"treasury-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

// LedgerIndex organizes a ledger snapshot for candidate selection. Only Open
// invoices enter the index; Paid and Disputed rows are excluded before any
// scoring happens. Open rows whose scoring fields are unusable (missing id,
// non-positive amount, malformed currency) are quarantined as skip records at
// construction, so the skip report covers the whole snapshot and not just the
// payment's currency bucket.
//
// Usable invoices are bucketed by currency. This is a pure pre-filter: with
// the amount weight at 0.50 and identity at 0.40, a cross-currency invoice
// can score at most 0.40, which never clears the noise floor, so skipping
// those buckets changes nothing about the output.
type LedgerIndex struct {
	byCurrency map[string][]*models.Invoice
	open       []*models.Invoice
	skipped    []SkippedInvoice

	totalInvoices    int
	excludedByStatus int
}

// NewLedgerIndex builds an index over a frozen ledger snapshot. The snapshot
// is not copied; the caller guarantees it stays immutable for the index's
// lifetime.
func NewLedgerIndex(invoices []*models.Invoice) *LedgerIndex {
	idx := &LedgerIndex{
		byCurrency:    make(map[string][]*models.Invoice),
		totalInvoices: len(invoices),
	}

	for _, inv := range invoices {
		if inv == nil {
			continue
		}
		if !inv.IsOpen() {
			idx.excludedByStatus++
			continue
		}
		if reason := checkInvoiceFields(inv); reason != "" {
			idx.skipped = append(idx.skipped, SkippedInvoice{InvoiceID: inv.ID, Reason: reason})
			continue
		}

		idx.open = append(idx.open, inv)
		currency := models.NormalizeCurrency(inv.Currency)
		idx.byCurrency[currency] = append(idx.byCurrency[currency], inv)
	}

	return idx
}

// checkInvoiceFields validates the fields scoring depends on. Returns an
// empty string when the row is usable, otherwise the skip reason.
func checkInvoiceFields(inv *models.Invoice) string {
	if inv.ID == "" {
		return errors.InvoiceFieldError("(unknown)", "id", inv.ID, nil).Message
	}

	if !inv.Amount.IsPositive() {
		return errors.InvoiceFieldError(inv.ID, "amount", inv.Amount.String(), nil).Message
	}

	if inv.AmountRemaining.IsNegative() || inv.AmountRemaining.GreaterThan(inv.Amount) {
		return errors.InvoiceFieldError(inv.ID, "amount_remaining", inv.AmountRemaining.String(), nil).Message
	}

	if !models.ValidCurrency(models.NormalizeCurrency(inv.Currency)) {
		return errors.InvoiceFieldError(inv.ID, "currency", inv.Currency, nil).Message
	}

	return ""
}

// Candidates returns the open invoices denominated in the given currency
func (idx *LedgerIndex) Candidates(currency string) []*models.Invoice {
	return idx.byCurrency[models.NormalizeCurrency(currency)]
}

// Open returns all usable open invoices in the index
func (idx *LedgerIndex) Open() []*models.Invoice {
	return idx.open
}

// Skipped returns the open rows quarantined during construction
func (idx *LedgerIndex) Skipped() []SkippedInvoice {
	return idx.skipped
}

// IndexStats describes the composition of an index
type IndexStats struct {
	TotalInvoices    int `json:"total_invoices"`
	OpenInvoices     int `json:"open_invoices"`
	ExcludedByStatus int `json:"excluded_by_status"`
	UnusableRows     int `json:"unusable_rows"`
	Currencies       int `json:"currencies"`
}

// Stats returns statistics about the indexed ledger snapshot
func (idx *LedgerIndex) Stats() IndexStats {
	return IndexStats{
		TotalInvoices:    idx.totalInvoices,
		OpenInvoices:     len(idx.open),
		ExcludedByStatus: idx.excludedByStatus,
		UnusableRows:     len(idx.skipped),
		Currencies:       len(idx.byCurrency),
	}
}

// DaysSalesOutstanding computes the DSO liquidity metric over a ledger
// snapshot: open receivables as a fraction of total billed, annualized.
// Returns zero when nothing has been billed.
func DaysSalesOutstanding(invoices []*models.Invoice) decimal.Decimal {
	openRemaining := decimal.Zero
	totalBilled := decimal.Zero

	for _, inv := range invoices {
		if inv == nil {
			continue
		}
		totalBilled = totalBilled.Add(inv.Amount)
		if inv.IsOpen() {
			openRemaining = openRemaining.Add(inv.AmountRemaining)
		}
	}

	if totalBilled.IsZero() {
		return decimal.Zero
	}

	return openRemaining.Div(totalBilled).Mul(decimal.NewFromInt(365))
}
