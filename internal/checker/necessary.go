package checker

import (
	"fmt"
	"math"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

// NecessityThreshold is the inclusive upper bound on expense/revenue.
const NecessityThreshold = 0.5

const necessityEvidence = "Business Logic (Ratio Analysis)"

// VerifyNecessary checks that an expense is proportionate to revenue.
func VerifyNecessary(expenseAmount, businessRevenue float64) (models.ValidationStep, error) {
	if math.IsNaN(businessRevenue) || math.IsInf(businessRevenue, 0) || businessRevenue <= 0 {
		return models.ValidationStep{}, invalid("business_revenue", "must be a positive finite number, got %v", businessRevenue)
	}
	if math.IsNaN(expenseAmount) || math.IsInf(expenseAmount, 0) || expenseAmount <= 0 {
		return models.ValidationStep{}, invalid("expense_amount", "must be a positive finite number, got %v", expenseAmount)
	}

	ratio := expenseAmount / businessRevenue
	passed := ratio <= NecessityThreshold
	pct := fmt.Sprintf("%.1f%%", ratio*100)

	var details string
	if passed {
		details = fmt.Sprintf("PASS: Expense is %s of revenue, within the %.0f%% necessity threshold.", pct, NecessityThreshold*100)
	} else {
		details = fmt.Sprintf("FAIL: Expense is %s of revenue, exceeding the %.0f%% necessity threshold.", pct, NecessityThreshold*100)
	}

	return models.NewStep(RuleNecessary, passed, details, necessityEvidence, now()), nil
}
