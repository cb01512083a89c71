// Package checker implements the deterministic rule checkers. Each checker is
// stateless, returns exactly one verdict for a well-formed input, and returns
// an error only for input-contract violations. Business-rule failures are
// failing verdicts, never errors.
package checker

import (
	"time"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

// Rule identifiers
const (
	RuleOrdinary      = "rule_is_ordinary"
	RuleNecessary     = "rule_is_necessary"
	RuleNegotiability = "UCC_3_104"
	RuleClauseRisk    = "rule_clause_risk"
)

// Citer resolves statute references. *lawlib.Library satisfies it.
type Citer interface {
	Lookup(query string) (models.Statute, bool)
}

// Swappable for testing
var now = time.Now

// cite returns the statute reference for query, or fallback on a miss.
func cite(c Citer, query, fallback string) string {
	if c == nil {
		return fallback
	}
	if s, ok := c.Lookup(query); ok {
		return s.Reference()
	}
	return fallback
}
