package checker

import (
	"fmt"
	"strings"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

const (
	clauseEvidence    = "Restatement (Second) of Contracts; UCC Articles 2 & 3; Federal Arbitration Act (heuristic clause scan)"
	cognovitFallback  = "D.H. Overmyer Co. v. Frick Co., 405 U.S. 174 (1972)"
	clauseRiskJoinSep = " | "
)

// clauseCheck is one heuristic in the battery. match receives the lowercased
// clause and document type.
type clauseCheck struct {
	name        string
	severity    models.Severity
	description string
	citation    func(Citer) string
	match       func(clause, docType string) bool
}

func fixedCitation(s string) func(Citer) string {
	return func(Citer) string { return s }
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// clauseBattery runs in this order; every check is independent.
var clauseBattery = []clauseCheck{
	{
		name:        "arbitration_jury_waiver",
		severity:    models.SeverityCritical,
		description: "Mandatory arbitration or jury-trial waiver limits access to courts",
		citation:    fixedCitation("9 U.S.C. § 2; U.S. Const. amend. VII"),
		match: func(clause, _ string) bool {
			if strings.Contains(clause, "arbitration") {
				return true
			}
			return strings.Contains(clause, "jury") && containsAny(clause, "waive", "waiver")
		},
	},
	{
		name:        "indemnity_gross_negligence",
		severity:    models.SeverityHigh,
		description: "Indemnification extends to the indemnified party's own gross negligence",
		citation:    fixedCitation("Restatement (Second) of Contracts § 195"),
		match: func(clause, _ string) bool {
			return strings.Contains(clause, "indemnif") && strings.Contains(clause, "gross negligence")
		},
	},
	{
		name:        "perpetual_service_term",
		severity:    models.SeverityMedium,
		description: "Perpetual term in a service agreement with no termination right",
		citation:    fixedCitation("Restatement (Second) of Contracts § 33"),
		match: func(clause, docType string) bool {
			return containsAny(clause, "perpetual", "in perpetuity") && strings.Contains(docType, "service")
		},
	},
	{
		name:        "penalty_clause",
		severity:    models.SeverityHigh,
		description: "Penalty language not qualified as liquidated damages is likely unenforceable",
		citation:    fixedCitation("Restatement (Second) of Contracts § 356; UCC § 2-718"),
		match: func(clause, _ string) bool {
			return strings.Contains(clause, "penalty") && !strings.Contains(clause, "liquidated damages")
		},
	},
	{
		name:        "confession_of_judgment",
		severity:    models.SeverityCritical,
		description: "Confession-of-judgment (cognovit) clause waives notice and hearing",
		citation: func(c Citer) string {
			return cite(c, "confession_of_judgment", cognovitFallback)
		},
		match: func(clause, _ string) bool {
			return containsAny(clause, "confession of judgment", "confess judgment", "confesses judgment", "cognovit")
		},
	},
}

// ScanClauseRisks runs the full battery and returns every risk found.
func ScanClauseRisks(c Citer, clauseText, documentType string) ([]models.Risk, error) {
	if strings.TrimSpace(clauseText) == "" {
		return nil, invalid("clause_text", "must not be empty")
	}
	clause := strings.ToLower(clauseText)
	docType := strings.ToLower(documentType)

	var risks []models.Risk
	for _, chk := range clauseBattery {
		if !chk.match(clause, docType) {
			continue
		}
		risks = append(risks, models.Risk{
			Check:       chk.name,
			Severity:    chk.severity,
			Description: chk.description,
			Citation:    chk.citation(c),
		})
	}
	return risks, nil
}

// ScanClause produces the clause-risk verdict.
func ScanClause(c Citer, clauseText, documentType string) (models.ValidationStep, error) {
	v, _, err := ScanClauseWithRisks(c, clauseText, documentType)
	return v, err
}

// ScanClauseWithRisks runs the battery once and returns the verdict together
// with the risks it was built from.
func ScanClauseWithRisks(c Citer, clauseText, documentType string) (models.ValidationStep, []models.Risk, error) {
	risks, err := ScanClauseRisks(c, clauseText, documentType)
	if err != nil {
		return models.ValidationStep{}, nil, err
	}
	if len(risks) == 0 {
		details := fmt.Sprintf("PASS: No high-risk patterns found by %d heuristic checks", len(clauseBattery))
		if documentType != "" {
			details += " for document type " + documentType
		}
		return models.NewStep(RuleClauseRisk, true, details+".", clauseEvidence, now()), risks, nil
	}

	parts := make([]string, len(risks))
	for i, r := range risks {
		parts[i] = r.String()
	}
	details := fmt.Sprintf("FAIL: %d risk(s) detected: %s", len(risks), strings.Join(parts, clauseRiskJoinSep))
	return models.NewStep(RuleClauseRisk, false, details, clauseEvidence, now()), risks, nil
}
