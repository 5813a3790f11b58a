package catalog

import (
	"strings"

	"github.com/google/uuid"
)

// IntervalRule is a pairwise constraint between two vaccines. The pair is
// semantically unordered: a rule between A and B matches a lookup in either
// direction. When CanBeGivenTogether is true and no spacing is needed,
// MinIntervalDays is 0.
type IntervalRule struct {
	VaccineA           uuid.UUID `json:"vaccine_a"`
	VaccineB           uuid.UUID `json:"vaccine_b"`
	CanBeGivenTogether bool      `json:"can_be_given_together"`
	MinIntervalDays    int       `json:"min_interval_days"`
}

// RuleBook indexes interval rules by sorted vaccine-id pair for O(1)
// order-independent lookup.
type RuleBook struct {
	rules map[string]IntervalRule
}

// NewRuleBook builds a rule book from a flat rule list. Later duplicates of
// the same pair win.
func NewRuleBook(rules []IntervalRule) *RuleBook {
	book := &RuleBook{rules: make(map[string]IntervalRule, len(rules))}
	for _, rule := range rules {
		book.rules[pairKey(rule.VaccineA, rule.VaccineB)] = rule
	}
	return book
}

// Find returns the rule for the unordered pair {a, b}, or nil when no rule
// exists. Absence of a rule means the pair is assumed compatible with no
// spacing requirement.
func (rb *RuleBook) Find(a, b uuid.UUID) *IntervalRule {
	if rb == nil {
		return nil
	}
	rule, ok := rb.rules[pairKey(a, b)]
	if !ok {
		return nil
	}
	return &rule
}

// Len reports how many distinct pairs carry a rule.
func (rb *RuleBook) Len() int {
	if rb == nil {
		return 0
	}
	return len(rb.rules)
}

func pairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if strings.Compare(x, y) > 0 {
		x, y = y, x
	}
	return x + "|" + y
}
