package matcher

import (
	"sort"
	"strings"
	"unicode"
)

// NormalizeName lowercases and trims a name for identity comparison
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// tokenize splits a normalized name into word tokens, treating any run of
// non-alphanumeric characters as a separator. Duplicate tokens collapse into
// a set; token order carries no meaning for identity comparison.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	var tokens []string
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			tokens = append(tokens, f)
		}
	}

	sort.Strings(tokens)
	return tokens
}

// TokenSetRatio computes the token-set similarity between two strings,
// returning a value in [0, 1].
//
// Both strings are tokenized into word sets. The sorted token intersection is
// compared against the intersection plus each side's leftover tokens, and the
// full sorted token strings are compared against each other; the best of the
// three ratios wins. This makes the measure robust to word reordering and to
// boilerplate tokens ("Inc", "Ltd", "GmbH") appearing on one side only.
func TokenSetRatio(a, b string) float64 {
	tokensA := tokenize(NormalizeName(a))
	tokensB := tokenize(NormalizeName(b))

	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1.0
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	setB := make(map[string]bool, len(tokensB))
	for _, t := range tokensB {
		setB[t] = true
	}

	var intersection, onlyA []string
	for _, t := range tokensA {
		if setB[t] {
			intersection = append(intersection, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}

	interSet := make(map[string]bool, len(intersection))
	for _, t := range intersection {
		interSet[t] = true
	}
	var onlyB []string
	for _, t := range tokensB {
		if !interSet[t] {
			onlyB = append(onlyB, t)
		}
	}

	sortedInter := strings.Join(intersection, " ")
	combinedA := strings.TrimSpace(sortedInter + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sortedInter + " " + strings.Join(onlyB, " "))
	fullA := strings.Join(tokensA, " ")
	fullB := strings.Join(tokensB, " ")

	best := ratio(sortedInter, combinedA)
	if r := ratio(sortedInter, combinedB); r > best {
		best = r
	}
	if r := ratio(fullA, fullB); r > best {
		best = r
	}

	return best
}

// ratio computes a normalized edit-distance similarity between two strings:
// 1 - distance/maxLen, in [0, 1].
func ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes the edit distance between two strings using a
// two-row dynamic programming table.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
