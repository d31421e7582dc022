package matcher

import (
	"testing"

	"treasury-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func TestDefaultEngineConfig(t *testing.T) {
	config := DefaultEngineConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}

	if config.Weights.AmountWeight != 0.50 {
		t.Errorf("Expected amount weight 0.50, got %f", config.Weights.AmountWeight)
	}
	if config.Weights.IdentityWeight != 0.40 {
		t.Errorf("Expected identity weight 0.40, got %f", config.Weights.IdentityWeight)
	}
	if config.STPThreshold != 0.95 || config.HighConfidenceThreshold != 0.70 {
		t.Errorf("Expected thresholds 0.95/0.70, got %f/%f",
			config.STPThreshold, config.HighConfidenceThreshold)
	}
}

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name      string
		weights   Weights
		expectErr bool
	}{
		{"production calibration", Weights{0.50, 0.40}, false},
		{"sum to one", Weights{0.60, 0.40}, false},
		{"negative weight", Weights{-0.1, 0.40}, true},
		{"sum above one", Weights{0.70, 0.40}, true},
		{"zero sum", Weights{0.0, 0.0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestEngineConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{"negative flat tolerance", func(c *EngineConfig) { c.FlatToleranceUnits = -1 }},
		{"relative tolerance too large", func(c *EngineConfig) { c.RelativeTolerance = 1.0 }},
		{"override floor below noise floor", func(c *EngineConfig) { c.OverrideFloor = 0.30 }},
		{"high confidence above STP", func(c *EngineConfig) { c.HighConfidenceThreshold = 0.96 }},
		{"STP above one", func(c *EngineConfig) { c.STPThreshold = 1.5; c.HighConfidenceThreshold = 1.2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultEngineConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestEngineConfig_AmountTolerance(t *testing.T) {
	config := DefaultEngineConfig()

	tests := []struct {
		name      string
		remaining int64
		expected  string
	}{
		{"flat band dominates on small invoices", 1000, "5"},
		{"crossover point", 5000, "5"},
		{"relative band dominates on large invoices", 50000, "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expected, _ := decimal.NewFromString(tt.expected)
			got := config.AmountTolerance(decimal.NewFromInt(tt.remaining))
			if !got.Equal(expected) {
				t.Errorf("AmountTolerance(%d) = %s, expected %s", tt.remaining, got.String(), expected.String())
			}
		})
	}
}

func TestEngineConfig_Classify(t *testing.T) {
	config := DefaultEngineConfig()

	tests := []struct {
		confidence float64
		expected   models.Classification
	}{
		{1.0, models.STPAutomated},
		{0.95, models.STPAutomated},
		{0.949, models.ExceptionHighConfidence},
		{0.90, models.ExceptionHighConfidence},
		{0.70, models.ExceptionHighConfidence},
		{0.699, models.ExceptionInvestigation},
		{0.41, models.ExceptionInvestigation},
	}

	for _, tt := range tests {
		if got := config.Classify(tt.confidence); got != tt.expected {
			t.Errorf("Classify(%f) = %s, expected %s", tt.confidence, got, tt.expected)
		}
	}
}

func TestEngineConfig_Clone(t *testing.T) {
	original := DefaultEngineConfig()
	clone := original.Clone()

	clone.NoiseFloor = 0.55
	clone.Weights.AmountWeight = 0.10

	if original.NoiseFloor != 0.40 || original.Weights.AmountWeight != 0.50 {
		t.Error("Mutating the clone must not affect the original")
	}
}
