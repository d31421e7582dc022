package matcher

import (
	"testing"
	"time"

	"treasury-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func indexInvoice(id, currency string, status models.InvoiceStatus) *models.Invoice {
	return &models.Invoice{
		ID:              id,
		CustomerName:    "Customer " + id,
		Amount:          decimal.NewFromInt(1000),
		AmountRemaining: decimal.NewFromInt(1000),
		Currency:        currency,
		Status:          status,
		DueDate:         time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewLedgerIndex(t *testing.T) {
	invoices := []*models.Invoice{
		indexInvoice("A", "USD", models.StatusOpen),
		indexInvoice("B", "USD", models.StatusPaid),
		indexInvoice("C", "EUR", models.StatusOpen),
		indexInvoice("D", "usd", models.StatusOpen),
		nil,
		indexInvoice("E", "USD", models.StatusDisputed),
	}

	idx := NewLedgerIndex(invoices)
	stats := idx.Stats()

	if stats.TotalInvoices != 6 {
		t.Errorf("Expected total 6, got %d", stats.TotalInvoices)
	}
	if stats.OpenInvoices != 3 {
		t.Errorf("Expected 3 open, got %d", stats.OpenInvoices)
	}
	if stats.ExcludedByStatus != 2 {
		t.Errorf("Expected 2 excluded by status, got %d", stats.ExcludedByStatus)
	}
	if stats.Currencies != 2 {
		t.Errorf("Expected 2 currency buckets, got %d", stats.Currencies)
	}
}

func TestLedgerIndex_QuarantinesUnusableRows(t *testing.T) {
	badCurrency := indexInvoice("BAD-1", "DOLLAR", models.StatusOpen)
	badAmount := indexInvoice("BAD-2", "EUR", models.StatusOpen)
	badAmount.Amount = decimal.Zero
	badAmount.AmountRemaining = decimal.Zero

	idx := NewLedgerIndex([]*models.Invoice{
		indexInvoice("A", "USD", models.StatusOpen),
		badCurrency,
		badAmount,
	})

	skipped := idx.Skipped()
	if len(skipped) != 2 {
		t.Fatalf("Expected 2 quarantined rows, got %d", len(skipped))
	}
	for _, skip := range skipped {
		if skip.Reason == "" {
			t.Errorf("Quarantined row %s must carry a reason", skip.InvoiceID)
		}
	}

	stats := idx.Stats()
	if stats.UnusableRows != 2 {
		t.Errorf("Expected 2 unusable rows in stats, got %d", stats.UnusableRows)
	}
	if stats.OpenInvoices != 1 {
		t.Errorf("Expected only the healthy row open, got %d", stats.OpenInvoices)
	}

	// A quarantined row never enters a bucket, not even its own raw currency
	if len(idx.Candidates("DOLLAR")) != 0 {
		t.Error("Expected no bucket for a malformed currency")
	}
}

func TestLedgerIndex_Candidates(t *testing.T) {
	idx := NewLedgerIndex([]*models.Invoice{
		indexInvoice("A", "USD", models.StatusOpen),
		indexInvoice("B", "usd", models.StatusOpen),
		indexInvoice("C", "EUR", models.StatusOpen),
	})

	usd := idx.Candidates("USD")
	if len(usd) != 2 {
		t.Fatalf("Expected 2 USD candidates, got %d", len(usd))
	}

	// Currency lookup normalizes too
	if len(idx.Candidates("usd")) != 2 {
		t.Error("Expected lowercase currency lookup to hit the USD bucket")
	}

	if len(idx.Candidates("GBP")) != 0 {
		t.Error("Expected no candidates for an absent currency")
	}
}
