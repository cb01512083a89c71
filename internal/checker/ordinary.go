package checker

import (
	"embed"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed tables/ordinary_expenses.yaml
var tablesFS embed.FS

// OrdinaryTable maps (industry code, normalized category) to a determination.
type OrdinaryTable struct {
	Endpoint   string                      `yaml:"endpoint"`
	Industries map[string]IndustryExpenses `yaml:"industries"`
}

// IndustryExpenses determinations for one NAICS code
type IndustryExpenses struct {
	Name       string          `yaml:"name"`
	Categories map[string]bool `yaml:"categories"`
}

// ParseOrdinaryTable decodes and normalizes a table.
func ParseOrdinaryTable(data []byte) (*OrdinaryTable, error) {
	var raw OrdinaryTable
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse ordinary expense table: %w", err)
	}
	t := &OrdinaryTable{
		Endpoint:   raw.Endpoint,
		Industries: make(map[string]IndustryExpenses, len(raw.Industries)),
	}
	for code, ind := range raw.Industries {
		cats := make(map[string]bool, len(ind.Categories))
		for cat, ok := range ind.Categories {
			cats[normalizeCategory(cat)] = ok
		}
		t.Industries[strings.TrimSpace(code)] = IndustryExpenses{Name: ind.Name, Categories: cats}
	}
	return t, nil
}

var (
	tableOnce    sync.Once
	defaultTable *OrdinaryTable
)

// DefaultOrdinaryTable is the embedded table, parsed once.
func DefaultOrdinaryTable() *OrdinaryTable {
	tableOnce.Do(func() {
		data, err := tablesFS.ReadFile("tables/ordinary_expenses.yaml")
		if err != nil {
			panic(fmt.Sprintf("embedded ordinary expense table missing: %v", err))
		}
		t, err := ParseOrdinaryTable(data)
		if err != nil {
			panic(err.Error())
		}
		defaultTable = t
	})
	return defaultTable
}

// Determine looks up a combination; known is false when the table has no entry.
func (t *OrdinaryTable) Determine(industryCode, category string) (ordinary, known bool) {
	ind, ok := t.Industries[strings.TrimSpace(industryCode)]
	if !ok {
		return false, false
	}
	ordinary, known = ind.Categories[normalizeCategory(category)]
	return ordinary, known
}

// Source names the conceptual endpoint consulted for a combination.
func (t *OrdinaryTable) Source(industryCode, category string) string {
	return fmt.Sprintf("IRC § 162 Ordinary Expense Table (%s/%s/%s)",
		t.Endpoint,
		url.PathEscape(strings.TrimSpace(industryCode)),
		url.PathEscape(normalizeCategory(category)))
}

// VerifyOrdinary checks the default table.
func VerifyOrdinary(industryCode, expenseCategory string) (models.ValidationStep, error) {
	return VerifyOrdinaryWith(DefaultOrdinaryTable(), industryCode, expenseCategory)
}

// VerifyOrdinaryWith checks whether an expense category is ordinary for an
// industry. Unknown combinations fail closed.
func VerifyOrdinaryWith(t *OrdinaryTable, industryCode, expenseCategory string) (models.ValidationStep, error) {
	if strings.TrimSpace(industryCode) == "" {
		return models.ValidationStep{}, invalid("industry_code", "must not be empty")
	}
	if normalizeCategory(expenseCategory) == "" {
		return models.ValidationStep{}, invalid("expense_category", "must not be empty")
	}

	code := strings.TrimSpace(industryCode)
	category := normalizeCategory(expenseCategory)
	ordinary, known := t.Determine(code, category)

	var details string
	switch {
	case !known:
		details = fmt.Sprintf("FAIL: No ordinary-expense determination exists for category %q in industry %s. Absence of evidence is not treated as a pass.", category, code)
	case ordinary:
		details = fmt.Sprintf("PASS: %q is a common and accepted expense for industry %s (%s).", category, code, t.Industries[code].Name)
	default:
		details = fmt.Sprintf("FAIL: %q is not a common and accepted expense for industry %s (%s).", category, code, t.Industries[code].Name)
	}

	return models.NewStep(RuleOrdinary, known && ordinary, details, t.Source(code, category), now()), nil
}

func normalizeCategory(s string) string {
	return cases.Fold().String(strings.TrimSpace(norm.NFKC.String(s)))
}
