package matcher

import (
	"fmt"
	"strings"
)

// AliasRegistry maps noisy observed payer-name strings to canonical customer
// names. It is read-only policy data: the mapping is fixed at construction
// and shared safely across concurrent match calls. Updating aliases means
// constructing a new registry and a new engine.
type AliasRegistry struct {
	aliases map[string]string
}

// NewAliasRegistry creates a registry from a noisy-name to canonical-name
// mapping. Keys are normalized (lowercased, trimmed) on the way in, so
// callers may supply raw observed strings.
func NewAliasRegistry(aliases map[string]string) *AliasRegistry {
	normalized := make(map[string]string, len(aliases))
	for noisy, canonical := range aliases {
		key := NormalizeName(noisy)
		if key == "" {
			continue
		}
		normalized[key] = strings.TrimSpace(canonical)
	}

	return &AliasRegistry{aliases: normalized}
}

// EmptyAliasRegistry returns a registry with no entries; every lookup falls
// back to the normalized input name.
func EmptyAliasRegistry() *AliasRegistry {
	return &AliasRegistry{aliases: map[string]string{}}
}

// Resolve maps a payer name to its canonical customer name. The lookup key is
// the normalized input; a miss is not an error and returns the normalized
// name itself.
func (r *AliasRegistry) Resolve(payerName string) string {
	normalized := NormalizeName(payerName)
	if canonical, ok := r.aliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// Contains reports whether the registry has an entry for the given noisy name
func (r *AliasRegistry) Contains(payerName string) bool {
	_, ok := r.aliases[NormalizeName(payerName)]
	return ok
}

// Len returns the number of alias entries
func (r *AliasRegistry) Len() int {
	return len(r.aliases)
}

// String returns a short description of the registry
func (r *AliasRegistry) String() string {
	return fmt.Sprintf("AliasRegistry{entries: %d}", len(r.aliases))
}
