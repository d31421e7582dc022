package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	// StatusOpen represents an invoice awaiting payment
	StatusOpen InvoiceStatus = "OPEN"
	// StatusPaid represents a fully settled invoice
	StatusPaid InvoiceStatus = "PAID"
	// StatusDisputed represents an invoice under dispute, excluded from matching
	StatusDisputed InvoiceStatus = "DISPUTED"
)

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsValid checks if the invoice status is valid
func (s InvoiceStatus) IsValid() bool {
	return s == StatusOpen || s == StatusPaid || s == StatusDisputed
}

// ESGRating is an ordinal sustainability tier carried on invoices for downstream
// reporting. It never participates in match scoring.
type ESGRating string

const (
	ESGTierAA ESGRating = "AA"
	ESGTierA  ESGRating = "A"
	ESGTierB  ESGRating = "B"
	ESGTierC  ESGRating = "C"
	// ESGUnrated marks invoices without a sustainability assessment
	ESGUnrated ESGRating = ""
)

// IsValid checks if the ESG rating is a known tier (unrated is allowed)
func (r ESGRating) IsValid() bool {
	switch r {
	case ESGTierAA, ESGTierA, ESGTierB, ESGTierC, ESGUnrated:
		return true
	default:
		return false
	}
}

// currencyPattern matches ISO-4217-like codes: exactly three uppercase letters
var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidCurrency reports whether code is a well-formed three-letter currency code
func ValidCurrency(code string) bool {
	return currencyPattern.MatchString(code)
}

// IncomingPayment represents one bank credit awaiting application to the ledger
type IncomingPayment struct {
	Amount    decimal.Decimal `json:"amount" csv:"amount"`
	Currency  string          `json:"currency" csv:"currency"`
	PayerName string          `json:"payer_name" csv:"payer_name"`
	// Reference is the optional free-text remittance reference. It may contain
	// an invoice identifier, but nothing guarantees it does.
	Reference string `json:"reference,omitempty" csv:"reference"`
}

// NewIncomingPayment creates a new IncomingPayment instance
func NewIncomingPayment(amount decimal.Decimal, currency, payerName, reference string) *IncomingPayment {
	return &IncomingPayment{
		Amount:    amount,
		Currency:  currency,
		PayerName: payerName,
		Reference: reference,
	}
}

// Validate performs basic validation on the IncomingPayment
func (p *IncomingPayment) Validate() error {
	if !p.Amount.IsPositive() {
		return fmt.Errorf("payment amount must be positive, got %s", p.Amount.String())
	}

	if !ValidCurrency(p.Currency) {
		return fmt.Errorf("malformed currency code: %q", p.Currency)
	}

	if strings.TrimSpace(p.PayerName) == "" {
		return fmt.Errorf("payer name cannot be empty")
	}

	return nil
}

// String returns a string representation of the IncomingPayment
func (p *IncomingPayment) String() string {
	return fmt.Sprintf("IncomingPayment{Payer: %s, Amount: %s %s, Ref: %s}",
		p.PayerName, p.Amount.String(), p.Currency, p.Reference)
}

// MarshalJSON implements custom JSON marshaling for IncomingPayment
func (p *IncomingPayment) MarshalJSON() ([]byte, error) {
	type Alias IncomingPayment
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		*Alias
	}{
		Amount: p.Amount.String(),
		Alias:  (*Alias)(p),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for IncomingPayment
func (p *IncomingPayment) UnmarshalJSON(data []byte) error {
	type Alias IncomingPayment
	aux := &struct {
		Amount string `json:"amount"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	p.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	return nil
}

// Invoice represents one accounts-receivable record in the ledger.
// The engine treats invoices as immutable; AmountRemaining is updated only by
// the ledger when the caller applies a disposition.
type Invoice struct {
	ID              string          `json:"id" csv:"id"`
	CustomerName    string          `json:"customer_name" csv:"customer_name"`
	Amount          decimal.Decimal `json:"amount" csv:"amount"`
	AmountRemaining decimal.Decimal `json:"amount_remaining" csv:"amount_remaining"`
	Currency        string          `json:"currency" csv:"currency"`
	Status          InvoiceStatus   `json:"status" csv:"status"`
	DueDate         time.Time       `json:"due_date" csv:"due_date"`
	ESGRating       ESGRating       `json:"esg_rating,omitempty" csv:"esg_rating"`
}

// NewInvoice creates a new fully-open Invoice instance
func NewInvoice(id, customer string, amount decimal.Decimal, currency string, dueDate time.Time) *Invoice {
	return &Invoice{
		ID:              id,
		CustomerName:    customer,
		Amount:          amount,
		AmountRemaining: amount,
		Currency:        currency,
		Status:          StatusOpen,
		DueDate:         dueDate,
	}
}

// Validate performs basic validation on the Invoice
func (inv *Invoice) Validate() error {
	if strings.TrimSpace(inv.ID) == "" {
		return fmt.Errorf("invoice id cannot be empty")
	}

	if strings.TrimSpace(inv.CustomerName) == "" {
		return fmt.Errorf("customer name cannot be empty")
	}

	if !inv.Amount.IsPositive() {
		return fmt.Errorf("invoice amount must be positive, got %s", inv.Amount.String())
	}

	if inv.AmountRemaining.IsNegative() {
		return fmt.Errorf("amount remaining cannot be negative, got %s", inv.AmountRemaining.String())
	}

	if inv.AmountRemaining.GreaterThan(inv.Amount) {
		return fmt.Errorf("amount remaining %s exceeds billed amount %s",
			inv.AmountRemaining.String(), inv.Amount.String())
	}

	if !ValidCurrency(inv.Currency) {
		return fmt.Errorf("malformed currency code: %q", inv.Currency)
	}

	if !inv.Status.IsValid() {
		return fmt.Errorf("invalid invoice status: %s", inv.Status)
	}

	if !inv.ESGRating.IsValid() {
		return fmt.Errorf("invalid ESG rating: %s", inv.ESGRating)
	}

	return nil
}

// IsOpen returns true if the invoice is eligible for matching
func (inv *Invoice) IsOpen() bool {
	return inv.Status == StatusOpen
}

// IsOverdue returns true if the invoice is open and past its due date
func (inv *Invoice) IsOverdue(now time.Time) bool {
	return inv.IsOpen() && inv.DueDate.Before(now)
}

// String returns a string representation of the Invoice
func (inv *Invoice) String() string {
	return fmt.Sprintf("Invoice{ID: %s, Customer: %s, Remaining: %s/%s %s, Status: %s}",
		inv.ID, inv.CustomerName, inv.AmountRemaining.String(), inv.Amount.String(),
		inv.Currency, inv.Status)
}

// MarshalJSON implements custom JSON marshaling for Invoice
func (inv *Invoice) MarshalJSON() ([]byte, error) {
	type Alias Invoice
	return json.Marshal(&struct {
		Amount          string `json:"amount"`
		AmountRemaining string `json:"amount_remaining"`
		DueDate         string `json:"due_date"`
		*Alias
	}{
		Amount:          inv.Amount.String(),
		AmountRemaining: inv.AmountRemaining.String(),
		DueDate:         inv.DueDate.Format("2006-01-02"),
		Alias:           (*Alias)(inv),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Invoice
func (inv *Invoice) UnmarshalJSON(data []byte) error {
	type Alias Invoice
	aux := &struct {
		Amount          string `json:"amount"`
		AmountRemaining string `json:"amount_remaining"`
		DueDate         string `json:"due_date"`
		*Alias
	}{
		Alias: (*Alias)(inv),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	inv.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	if aux.AmountRemaining == "" {
		inv.AmountRemaining = inv.Amount
	} else {
		inv.AmountRemaining, err = decimal.NewFromString(aux.AmountRemaining)
		if err != nil {
			return fmt.Errorf("invalid amount_remaining format: %w", err)
		}
	}

	inv.DueDate, err = ParseDateWithFormats(aux.DueDate)
	if err != nil {
		return fmt.Errorf("invalid due date format: %w", err)
	}

	return nil
}

// Equals compares two Invoice instances for equality
func (inv *Invoice) Equals(other *Invoice) bool {
	if other == nil {
		return false
	}

	return inv.ID == other.ID &&
		inv.CustomerName == other.CustomerName &&
		inv.Amount.Equal(other.Amount) &&
		inv.AmountRemaining.Equal(other.AmountRemaining) &&
		inv.Currency == other.Currency &&
		inv.Status == other.Status &&
		inv.DueDate.Format("2006-01-02") == other.DueDate.Format("2006-01-02")
}

// Classification represents the disposition routing for a match candidate
type Classification string

const (
	// STPAutomated routes straight through with no human in the loop
	STPAutomated Classification = "STP_AUTOMATED"
	// ExceptionHighConfidence is surfaced for one-click confirmation
	ExceptionHighConfidence Classification = "EXCEPTION_HIGH_CONFIDENCE"
	// ExceptionInvestigation is surfaced for manual analyst work
	ExceptionInvestigation Classification = "EXCEPTION_INVESTIGATION"
)

// String returns the string representation of Classification
func (c Classification) String() string {
	return string(c)
}

// IsValid checks if the classification is valid
func (c Classification) IsValid() bool {
	switch c {
	case STPAutomated, ExceptionHighConfidence, ExceptionInvestigation:
		return true
	default:
		return false
	}
}

// MatchCandidate is one scored pairing of a payment against an open invoice.
// Candidates are ephemeral engine output; they are never persisted by the engine.
type MatchCandidate struct {
	InvoiceID      string         `json:"invoice_id"`
	CustomerName   string         `json:"customer_name"`
	Currency       string         `json:"currency"`
	Confidence     float64        `json:"confidence"`
	Classification Classification `json:"classification"`
	Annotation     string         `json:"annotation,omitempty"`
}

// String returns a string representation of the MatchCandidate
func (mc *MatchCandidate) String() string {
	return fmt.Sprintf("MatchCandidate{Invoice: %s, Customer: %s, Confidence: %.2f, %s}",
		mc.InvoiceID, mc.CustomerName, mc.Confidence, mc.Classification)
}

// Utility functions for type conversion and validation

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Remove common currency symbols and thousand separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseInvoiceStatus parses and validates an invoice status from string
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	switch s {
	case "OPEN", "O":
		return StatusOpen, nil
	case "PAID", "SETTLED", "CLEARED":
		return StatusPaid, nil
	case "DISPUTED", "DISPUTE", "HOLD":
		return StatusDisputed, nil
	default:
		return "", fmt.Errorf("invalid invoice status '%s': must be Open, Paid or Disputed", s)
	}
}

// ParseESGRating parses an optional ESG tier from string
func ParseESGRating(s string) (ESGRating, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ESGUnrated, nil
	}

	r := ESGRating(s)
	if !r.IsValid() {
		return ESGUnrated, fmt.Errorf("invalid ESG rating '%s': must be AA, A, B or C", s)
	}
	return r, nil
}

// NormalizeCurrency uppercases and trims a currency code without validating it
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ParseDateWithFormats attempts to parse a calendar date using multiple common formats
func ParseDateWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	// Common date formats used in AR exports
	formats := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"01/02/2006",
		"02-01-2006",
		"2006/01/02",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// NormalizeReference cleans a remittance reference for invoice id comparison
func NormalizeReference(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

// CreateInvoiceFromCSV creates an Invoice from CSV field values
func CreateInvoiceFromCSV(id, customer, amountStr, remainingStr, currency, statusStr, dueDateStr, esgStr string) (*Invoice, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in CSV: %w", err)
	}

	remaining := amount
	if strings.TrimSpace(remainingStr) != "" {
		remaining, err = ParseDecimalFromString(remainingStr)
		if err != nil {
			return nil, fmt.Errorf("invalid amount_remaining in CSV: %w", err)
		}
	}

	status, err := ParseInvoiceStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("invalid status in CSV: %w", err)
	}

	dueDate, err := ParseDateWithFormats(dueDateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid due date in CSV: %w", err)
	}

	esg, err := ParseESGRating(esgStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ESG rating in CSV: %w", err)
	}

	invoice := &Invoice{
		ID:              strings.TrimSpace(id),
		CustomerName:    strings.TrimSpace(customer),
		Amount:          amount,
		AmountRemaining: remaining,
		Currency:        NormalizeCurrency(currency),
		Status:          status,
		DueDate:         dueDate,
		ESGRating:       esg,
	}

	if err := invoice.Validate(); err != nil {
		return nil, fmt.Errorf("invalid invoice data: %w", err)
	}

	return invoice, nil
}

// CreateIncomingPaymentFromCSV creates an IncomingPayment from CSV field values
func CreateIncomingPaymentFromCSV(amountStr, currency, payerName, reference string) (*IncomingPayment, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in CSV: %w", err)
	}

	payment := NewIncomingPayment(amount, NormalizeCurrency(currency),
		strings.TrimSpace(payerName), strings.TrimSpace(reference))

	if err := payment.Validate(); err != nil {
		return nil, fmt.Errorf("invalid payment data: %w", err)
	}

	return payment, nil
}
