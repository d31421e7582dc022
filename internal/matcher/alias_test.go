package matcher

import "testing"

func TestAliasRegistry_Resolve(t *testing.T) {
	registry := NewAliasRegistry(map[string]string{
		"TSLA MOTORS PYMT": "Tesla Inc",
		"  msft corp  ":    "Microsoft Corp",
		"":                 "ignored",
	})

	tests := []struct {
		name     string
		payer    string
		expected string
	}{
		{"exact key", "TSLA MOTORS PYMT", "Tesla Inc"},
		{"case insensitive", "tsla motors pymt", "Tesla Inc"},
		{"whitespace trimmed", "  TSLA MOTORS PYMT ", "Tesla Inc"},
		{"key normalized at load", "MSFT CORP", "Microsoft Corp"},
		{"miss falls back to normalized input", "Unknown Payer", "unknown payer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := registry.Resolve(tt.payer); got != tt.expected {
				t.Errorf("Resolve(%q) = %q, expected %q", tt.payer, got, tt.expected)
			}
		})
	}

	if registry.Len() != 2 {
		t.Errorf("Expected empty key to be dropped, got %d entries", registry.Len())
	}
}

func TestAliasRegistry_Contains(t *testing.T) {
	registry := NewAliasRegistry(map[string]string{"ACME PAYMENTS": "ACME Corp"})

	if !registry.Contains("acme payments") {
		t.Error("Expected Contains to match normalized key")
	}
	if registry.Contains("other") {
		t.Error("Expected Contains to miss unknown key")
	}
}

func TestEmptyAliasRegistry(t *testing.T) {
	registry := EmptyAliasRegistry()

	if registry.Len() != 0 {
		t.Errorf("Expected 0 entries, got %d", registry.Len())
	}
	if got := registry.Resolve("Tesla Inc"); got != "tesla inc" {
		t.Errorf("Expected normalized fallback, got %q", got)
	}
}
