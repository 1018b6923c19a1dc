package recon

import (
	"sort"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// MatchThreshold is the minimum similarity score (0-100) a candidate
// must reach when the prefix rule does not fire.
const MatchThreshold = 70

// Matcher resolves a scanned label to one item name out of a candidate
// set. Prefix matches win outright; otherwise the best token-sorted
// similarity score above Threshold wins, first candidate on ties.
type Matcher struct {
	Threshold float64
	metric    *metrics.Levenshtein
}

func NewMatcher() *Matcher {
	return &Matcher{Threshold: MatchThreshold, metric: metrics.NewLevenshtein()}
}

// Match returns the original (unnormalized) candidate name. A miss is
// a business outcome, not an error.
func (m *Matcher) Match(query string, candidates []string) (string, bool) {
	q := Normalize(query)
	if q == "" {
		return "", false
	}

	normalized := make([]string, len(candidates))
	for i, c := range candidates {
		normalized[i] = Normalize(c)
	}

	// Prefix rule: a scan like "hf-blue-998877" normalizes to "hf-blue"
	// and starts with the SKU; no fuzzy ambiguity for the common case.
	for i, n := range normalized {
		if n != "" && strings.HasPrefix(q, n) {
			return candidates[i], true
		}
	}

	qSorted := tokenSort(q)
	best := -1
	var bestScore float64
	for i, n := range normalized {
		if n == "" {
			continue
		}
		score := 100 * strutil.Similarity(qSorted, tokenSort(n), m.metric)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best < 0 || bestScore < m.Threshold {
		return "", false
	}
	return candidates[best], true
}

// tokenSort makes the score order-insensitive: split on anything that
// is not a letter or digit, sort, rejoin.
func tokenSort(s string) string {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
