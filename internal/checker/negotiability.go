package checker

import (
	"fmt"
	"strings"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

const defaultNegotiabilityCitation = "UCC § 3-104(a)"

// VerifyNegotiability evaluates all five UCC 3-104 conditions and reports
// every violation. A statute lookup miss falls back to the literal citation.
func VerifyNegotiability(c Citer, inst models.Instrument) (models.ValidationStep, error) {
	if err := inst.Validate(); err != nil {
		return models.ValidationStep{}, &ArgumentError{Field: "instrument", Reason: err.Error()}
	}

	var violations []string
	if inst.PromiseType != models.PromiseUnconditional {
		violations = append(violations, "Promise is conditional (must be an unconditional promise or order)")
	}
	if inst.AmountType != models.AmountFixed {
		violations = append(violations, "Amount is variable (must be a fixed amount of money)")
	}
	if inst.PayableTo == models.PayableToSpecificPerson {
		violations = append(violations, "Payable to a specific person only (must be payable to bearer or to order)")
	}
	if inst.Timing == models.TimingIndefinite {
		violations = append(violations, "Payment time is indefinite (must be payable on demand or at a definite time)")
	}
	if inst.OtherUndertakings {
		violations = append(violations, "States other undertakings beyond the payment of money")
	}

	evidence := cite(c, RuleNegotiability, defaultNegotiabilityCitation)

	if len(violations) == 0 {
		return models.NewStep(RuleNegotiability, true,
			"PASS: Instrument satisfies all five requirements of UCC § 3-104(a) and is negotiable.",
			evidence, now()), nil
	}

	details := fmt.Sprintf("FAIL: Instrument is not negotiable (%d violation(s)): %s.",
		len(violations), strings.Join(violations, "; "))
	return models.NewStep(RuleNegotiability, false, details, evidence, now()), nil
}
