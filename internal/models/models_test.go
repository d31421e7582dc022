package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestInvoiceStatus_IsValid(t *testing.T) {
	tests := []struct {
		status InvoiceStatus
		valid  bool
	}{
		{StatusOpen, true},
		{StatusPaid, true},
		{StatusDisputed, true},
		{"CANCELLED", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.valid {
				t.Errorf("InvoiceStatus.IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestESGRating_IsValid(t *testing.T) {
	tests := []struct {
		rating ESGRating
		valid  bool
	}{
		{ESGTierAA, true},
		{ESGTierA, true},
		{ESGTierB, true},
		{ESGTierC, true},
		{ESGUnrated, true},
		{"AAA", false},
		{"D", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.rating), func(t *testing.T) {
			if got := tt.rating.IsValid(); got != tt.valid {
				t.Errorf("ESGRating.IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestValidCurrency(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"USD", true},
		{"EUR", true},
		{"usd", false},
		{"US", false},
		{"USDT", false},
		{"U$D", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ValidCurrency(tt.code); got != tt.valid {
				t.Errorf("ValidCurrency(%q) = %v, want %v", tt.code, got, tt.valid)
			}
		})
	}
}

func TestIncomingPayment_Validate(t *testing.T) {
	tests := []struct {
		name      string
		payment   IncomingPayment
		wantError bool
	}{
		{
			name: "Valid payment",
			payment: IncomingPayment{
				Amount:    decimal.NewFromFloat(49000.50),
				Currency:  "USD",
				PayerName: "Tesla Inc",
				Reference: "INV-1001",
			},
			wantError: false,
		},
		{
			name: "Valid payment without reference",
			payment: IncomingPayment{
				Amount:    decimal.NewFromInt(100),
				Currency:  "EUR",
				PayerName: "SpaceX",
			},
			wantError: false,
		},
		{
			name: "Zero amount",
			payment: IncomingPayment{
				Amount:    decimal.Zero,
				Currency:  "USD",
				PayerName: "Tesla Inc",
			},
			wantError: true,
		},
		{
			name: "Negative amount",
			payment: IncomingPayment{
				Amount:    decimal.NewFromInt(-100),
				Currency:  "USD",
				PayerName: "Tesla Inc",
			},
			wantError: true,
		},
		{
			name: "Lowercase currency",
			payment: IncomingPayment{
				Amount:    decimal.NewFromInt(100),
				Currency:  "usd",
				PayerName: "Tesla Inc",
			},
			wantError: true,
		},
		{
			name: "Empty payer name",
			payment: IncomingPayment{
				Amount:    decimal.NewFromInt(100),
				Currency:  "USD",
				PayerName: "   ",
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payment.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("IncomingPayment.Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestInvoice_Validate(t *testing.T) {
	validDue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	valid := Invoice{
		ID:              "INV-1001",
		CustomerName:    "Tesla Inc",
		Amount:          decimal.NewFromInt(50000),
		AmountRemaining: decimal.NewFromInt(25000),
		Currency:        "USD",
		Status:          StatusOpen,
		DueDate:         validDue,
		ESGRating:       ESGTierAA,
	}

	tests := []struct {
		name      string
		mutate    func(inv *Invoice)
		wantError bool
	}{
		{"Valid invoice", func(inv *Invoice) {}, false},
		{"Empty ID", func(inv *Invoice) { inv.ID = " " }, true},
		{"Empty customer", func(inv *Invoice) { inv.CustomerName = "" }, true},
		{"Zero amount", func(inv *Invoice) { inv.Amount = decimal.Zero }, true},
		{"Negative remaining", func(inv *Invoice) { inv.AmountRemaining = decimal.NewFromInt(-1) }, true},
		{"Remaining exceeds billed", func(inv *Invoice) { inv.AmountRemaining = decimal.NewFromInt(60000) }, true},
		{"Malformed currency", func(inv *Invoice) { inv.Currency = "usd" }, true},
		{"Invalid status", func(inv *Invoice) { inv.Status = "CANCELLED" }, true},
		{"Invalid ESG rating", func(inv *Invoice) { inv.ESGRating = "AAA" }, true},
		{"Unrated ESG is allowed", func(inv *Invoice) { inv.ESGRating = ESGUnrated }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := valid
			tt.mutate(&inv)

			err := inv.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Invoice.Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestNewInvoice(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := NewInvoice("INV-1001", "Tesla Inc", decimal.NewFromInt(50000), "USD", due)

	if inv.Status != StatusOpen {
		t.Errorf("expected new invoice to be open, got %s", inv.Status)
	}
	if !inv.AmountRemaining.Equal(inv.Amount) {
		t.Errorf("expected remaining %s to equal billed %s", inv.AmountRemaining, inv.Amount)
	}
	if !inv.IsOpen() {
		t.Error("expected IsOpen to be true")
	}
}

func TestInvoice_IsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  InvoiceStatus
		dueDate time.Time
		overdue bool
	}{
		{"open past due", StatusOpen, now.Add(-24 * time.Hour), true},
		{"open not yet due", StatusOpen, now.Add(24 * time.Hour), false},
		{"paid past due", StatusPaid, now.Add(-24 * time.Hour), false},
		{"disputed past due", StatusDisputed, now.Add(-24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Invoice{Status: tt.status, DueDate: tt.dueDate}
			if got := inv.IsOverdue(now); got != tt.overdue {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.overdue)
			}
		})
	}
}

func TestInvoice_JSONRoundTrip(t *testing.T) {
	due, _ := time.Parse("2006-01-02", "2026-03-01")
	inv := &Invoice{
		ID:              "INV-1001",
		CustomerName:    "Tesla Inc",
		Amount:          decimal.NewFromFloat(50000.25),
		AmountRemaining: decimal.NewFromInt(25000),
		Currency:        "USD",
		Status:          StatusOpen,
		DueDate:         due,
		ESGRating:       ESGTierA,
	}

	data, err := json.Marshal(inv)
	if err != nil {
		t.Fatalf("Failed to marshal invoice: %v", err)
	}

	var decoded Invoice
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal invoice: %v", err)
	}

	if !inv.Equals(&decoded) {
		t.Errorf("Round-tripped invoice differs:\n  original: %s\n  decoded:  %s", inv, &decoded)
	}
}

func TestInvoice_UnmarshalJSON_DefaultsRemaining(t *testing.T) {
	// Exports without amount_remaining imply a fully-open invoice
	raw := `{"id":"INV-1","customer_name":"Tesla Inc","amount":"100.00","currency":"USD","status":"OPEN","due_date":"2026-03-01"}`

	var inv Invoice
	if err := json.Unmarshal([]byte(raw), &inv); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if !inv.AmountRemaining.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected remaining to default to billed amount, got %s", inv.AmountRemaining)
	}
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  string
		wantError bool
	}{
		{"plain decimal", "100.50", "100.5", false},
		{"integer", "50000", "50000", false},
		{"dollar sign", "$49,997.00", "49997", false},
		{"thousands separators", "1,250,000.75", "1250000.75", false},
		{"negative", "-100", "-100", false},
		{"surrounding whitespace", "  42.00  ", "42", false},
		{"empty string", "", "", true},
		{"not a number", "abc", "", true},
		{"double decimal point", "12.3.4", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalFromString(tt.input)

			if tt.wantError {
				if err == nil {
					t.Errorf("expected error for input %q", tt.input)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.expected {
				t.Errorf("ParseDecimalFromString(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseInvoiceStatus(t *testing.T) {
	tests := []struct {
		input     string
		expected  InvoiceStatus
		wantError bool
	}{
		{"OPEN", StatusOpen, false},
		{"open", StatusOpen, false},
		{" o ", StatusOpen, false},
		{"Paid", StatusPaid, false},
		{"SETTLED", StatusPaid, false},
		{"cleared", StatusPaid, false},
		{"disputed", StatusDisputed, false},
		{"HOLD", StatusDisputed, false},
		{"cancelled", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInvoiceStatus(tt.input)

			if tt.wantError {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ParseInvoiceStatus(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseESGRating(t *testing.T) {
	tests := []struct {
		input     string
		expected  ESGRating
		wantError bool
	}{
		{"AA", ESGTierAA, false},
		{"aa", ESGTierAA, false},
		{" b ", ESGTierB, false},
		{"C", ESGTierC, false},
		{"", ESGUnrated, false},
		{"AAA", ESGUnrated, true},
		{"unrated", ESGUnrated, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseESGRating(tt.input)

			if tt.wantError {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ParseESGRating(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseDateWithFormats(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{"ISO date", "2026-03-01", false},
		{"RFC3339", "2026-03-01T10:30:00Z", false},
		{"datetime", "2026-03-01 10:30:00", false},
		{"US format", "03/01/2026", false},
		{"slash date", "2026/03/01", false},
		{"month name", "Mar 1, 2026", false},
		{"empty", "", true},
		{"garbage", "not-a-date", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDateWithFormats(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ParseDateWithFormats(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
		})
	}
}

func TestNormalizeReference(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"inv-1001", "INV-1001"},
		{"  INV-1001  ", "INV-1001"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeReference(tt.input); got != tt.expected {
			t.Errorf("NormalizeReference(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCreateInvoiceFromCSV(t *testing.T) {
	t.Run("full row", func(t *testing.T) {
		inv, err := CreateInvoiceFromCSV(
			" INV-1001 ", " Tesla Inc ", "$50,000.00", "25000", "usd", "open", "2026-03-01", "aa")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if inv.ID != "INV-1001" {
			t.Errorf("expected trimmed ID 'INV-1001', got %q", inv.ID)
		}
		if inv.CustomerName != "Tesla Inc" {
			t.Errorf("expected trimmed customer, got %q", inv.CustomerName)
		}
		if !inv.Amount.Equal(decimal.NewFromInt(50000)) {
			t.Errorf("expected amount 50000, got %s", inv.Amount)
		}
		if !inv.AmountRemaining.Equal(decimal.NewFromInt(25000)) {
			t.Errorf("expected remaining 25000, got %s", inv.AmountRemaining)
		}
		if inv.Currency != "USD" {
			t.Errorf("expected normalized currency USD, got %q", inv.Currency)
		}
		if inv.Status != StatusOpen {
			t.Errorf("expected open status, got %s", inv.Status)
		}
		if inv.ESGRating != ESGTierAA {
			t.Errorf("expected ESG tier AA, got %q", inv.ESGRating)
		}
	})

	t.Run("remaining defaults to amount", func(t *testing.T) {
		inv, err := CreateInvoiceFromCSV(
			"INV-1", "Tesla Inc", "100.00", "", "USD", "OPEN", "2026-03-01", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !inv.AmountRemaining.Equal(inv.Amount) {
			t.Errorf("expected remaining to default to amount, got %s", inv.AmountRemaining)
		}
	})

	t.Run("invalid rows", func(t *testing.T) {
		tests := []struct {
			name string
			args [8]string
		}{
			{"bad amount", [8]string{"INV-1", "Tesla", "abc", "", "USD", "OPEN", "2026-03-01", ""}},
			{"bad status", [8]string{"INV-1", "Tesla", "100", "", "USD", "CANCELLED", "2026-03-01", ""}},
			{"bad date", [8]string{"INV-1", "Tesla", "100", "", "USD", "OPEN", "soon", ""}},
			{"bad esg", [8]string{"INV-1", "Tesla", "100", "", "USD", "OPEN", "2026-03-01", "AAA"}},
			{"remaining exceeds amount", [8]string{"INV-1", "Tesla", "100", "200", "USD", "OPEN", "2026-03-01", ""}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := CreateInvoiceFromCSV(
					tt.args[0], tt.args[1], tt.args[2], tt.args[3],
					tt.args[4], tt.args[5], tt.args[6], tt.args[7])
				if err == nil {
					t.Error("expected error")
				}
			})
		}
	})
}

func TestCreateIncomingPaymentFromCSV(t *testing.T) {
	payment, err := CreateIncomingPaymentFromCSV("$49,997.00", "usd", " Tesla Inc ", " inv-1001 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !payment.Amount.Equal(decimal.NewFromInt(49997)) {
		t.Errorf("expected amount 49997, got %s", payment.Amount)
	}
	if payment.Currency != "USD" {
		t.Errorf("expected normalized currency USD, got %q", payment.Currency)
	}
	if payment.PayerName != "Tesla Inc" {
		t.Errorf("expected trimmed payer, got %q", payment.PayerName)
	}
	if payment.Reference != "inv-1001" {
		t.Errorf("expected trimmed reference, got %q", payment.Reference)
	}

	if _, err := CreateIncomingPaymentFromCSV("-10", "USD", "Tesla Inc", ""); err == nil {
		t.Error("expected error for negative amount")
	}
}

func TestClassification_IsValid(t *testing.T) {
	tests := []struct {
		classification Classification
		valid          bool
	}{
		{STPAutomated, true},
		{ExceptionHighConfidence, true},
		{ExceptionInvestigation, true},
		{"AUTO", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.classification), func(t *testing.T) {
			if got := tt.classification.IsValid(); got != tt.valid {
				t.Errorf("Classification.IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}
