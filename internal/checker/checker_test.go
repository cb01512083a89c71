package checker

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/lawlib"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	original := now
	now = func() time.Time { return fixedNow }
	t.Cleanup(func() { now = original })
}

// missCiter never finds a statute
type missCiter struct{}

func (missCiter) Lookup(string) (models.Statute, bool) { return models.Statute{}, false }

func TestVerifyOrdinary_Examples(t *testing.T) {
	freezeClock(t)

	v, err := VerifyOrdinary("238350", "truck")
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Equal(t, RuleOrdinary, v.RuleID)
	assert.True(t, strings.HasPrefix(v.Details, "PASS"))
	assert.Contains(t, v.EvidenceSource, "rules://irc-162/ordinary/238350/truck")
	assert.Equal(t, fixedNow, v.Timestamp)

	v, err = VerifyOrdinary("238350", "laptop")
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.True(t, strings.HasPrefix(v.Details, "FAIL"))
}

func TestVerifyOrdinary_NormalizesCategory(t *testing.T) {
	v, err := VerifyOrdinary(" 238350 ", "  TRUCK ")
	require.NoError(t, err)
	assert.True(t, v.Passed)
}

func TestVerifyOrdinary_FailsClosed(t *testing.T) {
	pairs := [][2]string{
		{"238350", "yacht"},
		{"999999", "truck"},
		{"541511", "espresso machine"},
		{"238350", "truck rental"},
	}
	for _, p := range pairs {
		v, err := VerifyOrdinary(p[0], p[1])
		require.NoError(t, err)
		assert.False(t, v.Passed, "pair %v must fail closed", p)
		assert.Contains(t, v.Details, "Absence of evidence")
	}
}

func TestVerifyOrdinary_InvalidArgument(t *testing.T) {
	_, err := VerifyOrdinary("", "truck")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = VerifyOrdinary("238350", "   ")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "expense_category", argErr.Field)
}

func TestParseOrdinaryTable(t *testing.T) {
	table, err := ParseOrdinaryTable([]byte(`
endpoint: rules://test
industries:
  "1":
    name: Test
    categories:
      Widgets: true
`))
	require.NoError(t, err)

	ordinary, known := table.Determine("1", "widgets")
	assert.True(t, known)
	assert.True(t, ordinary)

	_, known = table.Determine("2", "widgets")
	assert.False(t, known)

	_, err = ParseOrdinaryTable([]byte("industries: [oops"))
	assert.Error(t, err)
}

func TestVerifyNecessary_Examples(t *testing.T) {
	v, err := VerifyNecessary(30000, 70000)
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Contains(t, v.Details, "42.9%")
	assert.Equal(t, "Business Logic (Ratio Analysis)", v.EvidenceSource)

	v, err = VerifyNecessary(40000, 70000)
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Contains(t, v.Details, "57.1%")
}

func TestVerifyNecessary_ThresholdBoundary(t *testing.T) {
	v, err := VerifyNecessary(35000, 70000)
	require.NoError(t, err)
	assert.True(t, v.Passed, "ratio of exactly 0.5 passes")
	assert.Contains(t, v.Details, "50.0%")

	v, err = VerifyNecessary(500001, 1000000)
	require.NoError(t, err)
	assert.False(t, v.Passed, "ratio of 0.500001 fails")
}

func TestVerifyNecessary_InvalidArgument(t *testing.T) {
	tests := []struct {
		name             string
		expense, revenue float64
	}{
		{"zero revenue", 100, 0},
		{"negative revenue", 100, -5},
		{"nan revenue", 100, math.NaN()},
		{"inf revenue", 100, math.Inf(1)},
		{"zero expense", 0, 100},
		{"negative expense", -1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyNecessary(tt.expense, tt.revenue)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestVerifyNegotiability_Compliant(t *testing.T) {
	inst := models.Instrument{
		PromiseType: models.PromiseUnconditional,
		AmountType:  models.AmountFixed,
		PayableTo:   models.PayableToOrder,
		Timing:      models.TimingDemand,
	}
	v, err := VerifyNegotiability(lawlib.Default(), inst)
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Equal(t, RuleNegotiability, v.RuleID)
	assert.Contains(t, v.Details, "all five")
	assert.Contains(t, v.EvidenceSource, "UCC § 3-104(a)")
	assert.Contains(t, v.EvidenceSource, "Negotiable Instrument")
}

func TestVerifyNegotiability_CollectsAllViolations(t *testing.T) {
	inst := models.Instrument{
		PromiseType:       models.PromiseConditional,
		AmountType:        models.AmountVariable,
		PayableTo:         models.PayableToSpecificPerson,
		Timing:            models.TimingIndefinite,
		OtherUndertakings: true,
	}
	v, err := VerifyNegotiability(lawlib.Default(), inst)
	require.NoError(t, err)
	assert.False(t, v.Passed)

	for _, want := range []string{"conditional", "variable", "specific person", "indefinite", "other undertakings"} {
		assert.Contains(t, v.Details, want)
	}
	assert.Contains(t, v.Details, "5 violation(s)")
}

func TestVerifyNegotiability_LookupMissFallsBack(t *testing.T) {
	inst := models.Instrument{
		PromiseType: models.PromiseUnconditional,
		AmountType:  models.AmountFixed,
		PayableTo:   models.PayableToBearer,
		Timing:      models.TimingDefinite,
	}
	v, err := VerifyNegotiability(missCiter{}, inst)
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Equal(t, "UCC § 3-104(a)", v.EvidenceSource)

	v, err = VerifyNegotiability(nil, inst)
	require.NoError(t, err)
	assert.Equal(t, "UCC § 3-104(a)", v.EvidenceSource)
}

func TestVerifyNegotiability_InvalidEnum(t *testing.T) {
	_, err := VerifyNegotiability(nil, models.Instrument{PromiseType: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestScanClause_Clean(t *testing.T) {
	v, err := ScanClause(lawlib.Default(), "Payment is due within thirty days of invoice.", "service agreement")
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Equal(t, RuleClauseRisk, v.RuleID)
	assert.Contains(t, v.Details, "PASS")
	assert.Equal(t, clauseEvidence, v.EvidenceSource)
}

func TestScanClause_IndividualChecks(t *testing.T) {
	tests := []struct {
		name    string
		clause  string
		docType string
		check   string
		sev     models.Severity
	}{
		{"arbitration", "All disputes shall be resolved by binding Arbitration.", "lease", "arbitration_jury_waiver", models.SeverityCritical},
		{"jury waiver", "Each party hereby waives trial by jury.", "lease", "arbitration_jury_waiver", models.SeverityCritical},
		{"indemnity", "Client shall indemnify Vendor even for Vendor's gross negligence.", "msa", "indemnity_gross_negligence", models.SeverityHigh},
		{"perpetual service", "This agreement continues in perpetuity.", "Service Agreement", "perpetual_service_term", models.SeverityMedium},
		{"penalty", "A penalty of $5,000 applies for late delivery.", "purchase order", "penalty_clause", models.SeverityHigh},
		{"cognovit", "Borrower hereby confesses judgment in favor of Lender.", "note", "confession_of_judgment", models.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risks, err := ScanClauseRisks(lawlib.Default(), tt.clause, tt.docType)
			require.NoError(t, err)
			require.Len(t, risks, 1)
			assert.Equal(t, tt.check, risks[0].Check)
			assert.Equal(t, tt.sev, risks[0].Severity)
		})
	}
}

func TestScanClause_PerpetualOnlyForServices(t *testing.T) {
	risks, err := ScanClauseRisks(nil, "The license is perpetual.", "software license")
	require.NoError(t, err)
	assert.Empty(t, risks)
}

func TestScanClause_LiquidatedDamagesNotPenalty(t *testing.T) {
	risks, err := ScanClauseRisks(nil, "A penalty, agreed as liquidated damages, of $100 per day.", "contract")
	require.NoError(t, err)
	assert.Empty(t, risks)
}

func TestScanClause_AccumulatesAllRisks(t *testing.T) {
	clause := "Disputes go to arbitration. Customer shall indemnify Provider including gross negligence. " +
		"This agreement is perpetual. A penalty applies. Customer confesses judgment."
	v, err := ScanClause(lawlib.Default(), clause, "Managed Services Agreement")
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Contains(t, v.Details, "5 risk(s)")
	assert.Equal(t, 4, strings.Count(v.Details, clauseRiskJoinSep))
	assert.Contains(t, v.Details, "[CRITICAL]")
	assert.Contains(t, v.Details, "[HIGH]")
	assert.Contains(t, v.Details, "[MEDIUM]")
	assert.Contains(t, v.Details, "Confession of Judgment")
}

func TestScanClauseWithRisks_VerdictMatchesRisks(t *testing.T) {
	clause := "Customer shall indemnify Provider including gross negligence. This agreement is perpetual."
	v, risks, err := ScanClauseWithRisks(lawlib.Default(), clause, "service agreement")
	require.NoError(t, err)
	require.Len(t, risks, 2)
	assert.False(t, v.Passed)
	assert.Contains(t, v.Details, "2 risk(s)")
	for _, r := range risks {
		assert.Contains(t, v.Details, r.String())
	}

	v, risks, err = ScanClauseWithRisks(lawlib.Default(), "Payment is due within thirty days.", "")
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Empty(t, risks)

	_, _, err = ScanClauseWithRisks(nil, "", "lease")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestScanClause_CognovitLookupMiss(t *testing.T) {
	risks, err := ScanClauseRisks(missCiter{}, "cognovit note", "note")
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, cognovitFallback, risks[0].Citation)
}

func TestScanClause_EmptyClause(t *testing.T) {
	_, err := ScanClause(nil, "  ", "lease")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
