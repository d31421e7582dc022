package matcher

import (
	"fmt"
	"sort"

	"treasury-reconciliation-service/internal/models"
	"treasury-reconciliation-service/pkg/errors"
	"treasury-reconciliation-service/pkg/logger"
)

// Annotations attached to candidates by the scoring paths
const (
	// AnnotationIdentityCheck marks an exact amount hit under a weak payer
	// name: strong enough to surface, never strong enough to auto-apply
	AnnotationIdentityCheck = "amount matched, identity check required"

	// AnnotationReferenceMatch marks an exact remittance-reference hit
	// combined with an exact amount
	AnnotationReferenceMatch = "remittance reference match"

	// AnnotationToleranceBand marks an amount inside the bank-fee band
	AnnotationToleranceBand = "amount within bank-fee tolerance"
)

// Engine scores incoming payments against open invoices. It is stateless and
// side-effect-free per call: the same instance is safely reused across many
// independent reconciliation requests.
type Engine struct {
	config  *EngineConfig
	aliases *AliasRegistry
	log     logger.Logger
}

// NewEngine creates a reconciliation engine with the given configuration and
// alias registry. A nil config gets the production defaults; a nil registry
// gets an empty one (every payer name falls back to its normalized form).
func NewEngine(config *EngineConfig, aliases *AliasRegistry) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if aliases == nil {
		aliases = EmptyAliasRegistry()
	}

	return &Engine{
		config:  config,
		aliases: aliases,
		log:     logger.GetGlobalLogger().WithComponent("matcher"),
	}
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() *EngineConfig {
	return e.config.Clone()
}

// SkippedInvoice records one ledger row that could not be scored. Per-row
// data faults never abort the batch; they surface here in aggregate.
type SkippedInvoice struct {
	InvoiceID string `json:"invoice_id"`
	Reason    string `json:"reason"`
}

// MatchResult is the engine output for one payment: candidates ranked by
// confidence, plus the skip report for unusable ledger rows.
type MatchResult struct {
	Candidates []*models.MatchCandidate `json:"candidates"`
	Skipped    []SkippedInvoice         `json:"skipped,omitempty"`
}

// SkippedCount returns the number of ledger rows skipped during scoring
func (mr *MatchResult) SkippedCount() int {
	return len(mr.Skipped)
}

// Best returns the highest-confidence candidate, or nil if there is none
func (mr *MatchResult) Best() *models.MatchCandidate {
	if len(mr.Candidates) == 0 {
		return nil
	}
	return mr.Candidates[0]
}

// Match scores one payment against a frozen ledger snapshot.
//
// Candidates are ordered by confidence descending, ties broken by invoice id
// ascending, and only candidates above the noise floor are returned. An empty
// ledger yields an empty candidate list, not an error. A malformed payment
// (non-positive amount, bad currency code) fails fast with InvalidInputError;
// the engine does not coerce bad input.
//
// The snapshot must not be mutated for the duration of the call.
func (e *Engine) Match(payment *models.IncomingPayment, invoices []*models.Invoice) (*MatchResult, error) {
	if payment == nil {
		return nil, errors.InvalidInputError("payment", nil, fmt.Errorf("payment cannot be nil"))
	}

	if !payment.Amount.IsPositive() {
		return nil, errors.InvalidInputError("amount", payment.Amount.String(), nil)
	}

	if !models.ValidCurrency(payment.Currency) {
		return nil, errors.InvalidInputError("currency", payment.Currency, nil)
	}

	result := &MatchResult{Candidates: []*models.MatchCandidate{}}
	if len(invoices) == 0 {
		return result, nil
	}

	index := NewLedgerIndex(invoices)

	// Unusable rows are quarantined across the whole snapshot, not just the
	// payment's currency bucket: a row whose currency itself is malformed has
	// no valid bucket to sit in.
	for _, skip := range index.Skipped() {
		e.log.WithFields(logger.Fields{
			"invoice_id": skip.InvoiceID,
			"reason":     skip.Reason,
		}).Warn("Skipping unusable ledger row")
		result.Skipped = append(result.Skipped, skip)
	}

	reference := models.NormalizeReference(payment.Reference)
	canonicalPayer := e.aliases.Resolve(payment.PayerName)

	for _, inv := range index.Candidates(payment.Currency) {
		if candidate := e.scoreInvoice(payment, inv, reference, canonicalPayer); candidate != nil {
			result.Candidates = append(result.Candidates, candidate)
		}
	}

	sort.Slice(result.Candidates, func(i, j int) bool {
		if result.Candidates[i].Confidence != result.Candidates[j].Confidence {
			return result.Candidates[i].Confidence > result.Candidates[j].Confidence
		}
		return result.Candidates[i].InvoiceID < result.Candidates[j].InvoiceID
	})

	return result, nil
}

// scoreInvoice computes the candidate for one invoice; rows reaching here
// already passed field validation at index construction. A nil return means
// the invoice scored at or below the noise floor and is dropped.
func (e *Engine) scoreInvoice(payment *models.IncomingPayment, inv *models.Invoice, reference, canonicalPayer string) *models.MatchCandidate {
	amountScore, exactAmount, withinTolerance := e.scoreAmount(payment, inv)
	identityScore := TokenSetRatio(canonicalPayer, inv.CustomerName)

	raw := amountScore*e.config.Weights.AmountWeight + identityScore*e.config.Weights.IdentityWeight

	confidence := raw
	annotation := ""

	switch {
	case e.config.EnableReferenceMatch && exactAmount && reference != "" &&
		reference == models.NormalizeReference(inv.ID):
		// The remittance advice named this exact invoice and the money
		// agrees to the cent. The one path to straight-through processing.
		confidence = 1.0
		annotation = AnnotationReferenceMatch

	case exactAmount && identityScore < e.config.OverrideIdentityCeiling:
		// An exact amount hit against a garbled payer name is still a strong
		// signal; it must route to review rather than drown under the weak
		// name score.
		if confidence < e.config.OverrideFloor {
			confidence = e.config.OverrideFloor
		}
		annotation = AnnotationIdentityCheck

	case withinTolerance && !exactAmount:
		annotation = AnnotationToleranceBand
	}

	if confidence <= e.config.NoiseFloor {
		return nil
	}

	return &models.MatchCandidate{
		InvoiceID:      inv.ID,
		CustomerName:   inv.CustomerName,
		Currency:       inv.Currency,
		Confidence:     confidence,
		Classification: e.config.Classify(confidence),
		Annotation:     annotation,
	}
}

// scoreAmount computes the amount/currency sub-score for an invoice. The
// currency is already known to match via the ledger index.
func (e *Engine) scoreAmount(payment *models.IncomingPayment, inv *models.Invoice) (score float64, exact, withinTolerance bool) {
	if payment.Amount.Equal(inv.AmountRemaining) {
		return 1.0, true, true
	}

	difference := payment.Amount.Sub(inv.AmountRemaining).Abs()
	if difference.LessThanOrEqual(e.config.AmountTolerance(inv.AmountRemaining)) {
		return e.config.ToleranceAmountScore, false, true
	}

	return 0.0, false, false
}
