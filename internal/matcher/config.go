// Package matcher implements the reconciliation engine that scores incoming
// bank payments against open accounts-receivable invoices.
//
// The engine is a pure function of its inputs: one payment plus a frozen
// ledger snapshot in, a ranked candidate list out. It holds no state across
// calls and never mutates the invoice collection, so a single engine instance
// can serve concurrent reconciliation requests without locking.
//
// Scoring combines three signals:
//  1. Amount/currency agreement, with a bank-fee tolerance band
//  2. Payer identity, via alias resolution and token-set name similarity
//  3. A conditional floor when an exact amount hit arrives under a garbled
//     payer name (strong signal that must route to review, not to the bin)
//
// Example usage:
//
//	aliases := matcher.NewAliasRegistry(map[string]string{"tsla motors": "Tesla Inc"})
//	engine := matcher.NewEngine(matcher.DefaultEngineConfig(), aliases)
//	result, err := engine.Match(payment, ledger.Snapshot())
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"

	"treasury-reconciliation-service/internal/models"
)

// Weights defines the relative importance of the scoring criteria.
//
// The production calibration sums to 0.90, not 1.0. That is deliberate: every
// classification threshold below was tuned against the 0.90 ceiling, and
// normalizing the weights would silently move every boundary. Validate
// accepts the 0.90 sum for exactly this reason.
type Weights struct {
	AmountWeight   float64 `json:"amount_weight"`
	IdentityWeight float64 `json:"identity_weight"`
}

// Validate checks if the scoring weights are valid
func (w *Weights) Validate() error {
	if w.AmountWeight < 0.0 || w.AmountWeight > 1.0 {
		return fmt.Errorf("amount weight must be between 0.0 and 1.0: %f", w.AmountWeight)
	}

	if w.IdentityWeight < 0.0 || w.IdentityWeight > 1.0 {
		return fmt.Errorf("identity weight must be between 0.0 and 1.0: %f", w.IdentityWeight)
	}

	total := w.AmountWeight + w.IdentityWeight
	if total <= 0.0 || total > 1.0 {
		return fmt.Errorf("weights must sum to a value in (0.0, 1.0], got %f", total)
	}

	return nil
}

// EngineConfig holds configuration parameters for payment matching.
// The defaults reproduce the production calibration; every threshold here is
// load-bearing for the classification boundaries.
type EngineConfig struct {
	// Weights for combining the amount and identity sub-scores
	Weights Weights `json:"weights"`

	// FlatToleranceUnits is the flat tolerance band for amount matching,
	// in currency units (covers fixed bank fees)
	FlatToleranceUnits float64 `json:"flat_tolerance_units"`

	// RelativeTolerance is the proportional tolerance band relative to the
	// amount remaining (covers rounding on large invoices). The effective
	// band is the larger of the flat and relative tolerances.
	RelativeTolerance float64 `json:"relative_tolerance"`

	// ToleranceAmountScore is the amount sub-score awarded inside the
	// tolerance band (an exact match scores 1.0)
	ToleranceAmountScore float64 `json:"tolerance_amount_score"`

	// OverrideFloor is the confidence floor applied when an exact amount
	// match coincides with a weak identity score
	OverrideFloor float64 `json:"override_floor"`

	// OverrideIdentityCeiling is the identity score below which the
	// exact-amount override engages
	OverrideIdentityCeiling float64 `json:"override_identity_ceiling"`

	// NoiseFloor is the confidence at or below which candidates are dropped
	NoiseFloor float64 `json:"noise_floor"`

	// STPThreshold is the confidence at or above which a candidate routes
	// straight through with no human in the loop
	STPThreshold float64 `json:"stp_threshold"`

	// HighConfidenceThreshold is the confidence at or above which a candidate
	// is surfaced for one-click confirmation
	HighConfidenceThreshold float64 `json:"high_confidence_threshold"`

	// EnableReferenceMatch allows an exact remittance-reference hit combined
	// with an exact amount to score 1.0 directly
	EnableReferenceMatch bool `json:"enable_reference_match"`
}

// DefaultEngineConfig returns the production scoring calibration
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Weights: Weights{
			AmountWeight:   0.50,
			IdentityWeight: 0.40,
		},
		FlatToleranceUnits:      5.0,
		RelativeTolerance:       0.001,
		ToleranceAmountScore:    0.8,
		OverrideFloor:           0.70,
		OverrideIdentityCeiling: 0.5,
		NoiseFloor:              0.40,
		STPThreshold:            0.95,
		HighConfidenceThreshold: 0.70,
		EnableReferenceMatch:    true,
	}
}

// Validate checks if the engine configuration is valid
func (c *EngineConfig) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}

	if c.FlatToleranceUnits < 0 {
		return fmt.Errorf("flat tolerance cannot be negative: %f", c.FlatToleranceUnits)
	}

	if c.RelativeTolerance < 0 || c.RelativeTolerance >= 1.0 {
		return fmt.Errorf("relative tolerance must be in [0.0, 1.0): %f", c.RelativeTolerance)
	}

	if c.ToleranceAmountScore < 0 || c.ToleranceAmountScore > 1.0 {
		return fmt.Errorf("tolerance amount score must be between 0.0 and 1.0: %f", c.ToleranceAmountScore)
	}

	if c.NoiseFloor < 0 || c.NoiseFloor >= 1.0 {
		return fmt.Errorf("noise floor must be in [0.0, 1.0): %f", c.NoiseFloor)
	}

	if c.OverrideFloor <= c.NoiseFloor || c.OverrideFloor > 1.0 {
		return fmt.Errorf("override floor must be above the noise floor and at most 1.0: %f", c.OverrideFloor)
	}

	if c.OverrideIdentityCeiling < 0 || c.OverrideIdentityCeiling > 1.0 {
		return fmt.Errorf("override identity ceiling must be between 0.0 and 1.0: %f", c.OverrideIdentityCeiling)
	}

	if c.HighConfidenceThreshold <= c.NoiseFloor || c.HighConfidenceThreshold > c.STPThreshold {
		return fmt.Errorf("high confidence threshold must lie between the noise floor and the STP threshold: %f", c.HighConfidenceThreshold)
	}

	if c.STPThreshold > 1.0 {
		return fmt.Errorf("STP threshold cannot exceed 1.0: %f", c.STPThreshold)
	}

	return nil
}

// Clone creates a deep copy of the engine configuration
func (c *EngineConfig) Clone() *EngineConfig {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}

// AmountTolerance calculates the effective tolerance band for a given amount
// remaining: the larger of the flat band and the relative band.
func (c *EngineConfig) AmountTolerance(remaining decimal.Decimal) decimal.Decimal {
	flat := decimal.NewFromFloat(c.FlatToleranceUnits)
	relative := remaining.Abs().Mul(decimal.NewFromFloat(c.RelativeTolerance))

	if relative.GreaterThan(flat) {
		return relative
	}
	return flat
}

// Classify maps a final confidence score to its disposition routing.
// Confidence at or below the noise floor has already been dropped by the
// engine; callers feeding arbitrary scores get ExceptionInvestigation for
// anything in the residual band.
func (c *EngineConfig) Classify(confidence float64) models.Classification {
	switch {
	case confidence >= c.STPThreshold:
		return models.STPAutomated
	case confidence >= c.HighConfidenceThreshold:
		return models.ExceptionHighConfidence
	default:
		return models.ExceptionInvestigation
	}
}

// String returns a human-readable description of the configuration
func (c *EngineConfig) String() string {
	return fmt.Sprintf("EngineConfig{Weights: %.2f/%.2f, FlatTolerance: %.2f, RelTolerance: %.4f, NoiseFloor: %.2f, STP: %.2f}",
		c.Weights.AmountWeight, c.Weights.IdentityWeight,
		c.FlatToleranceUnits, c.RelativeTolerance, c.NoiseFloor, c.STPThreshold)
}
