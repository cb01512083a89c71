// Package forms drafts documents whose generation is gated by a rule verdict.
// The full template body is rendered only when the governing verdict passes.
package forms

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/checker"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/markup"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("forms").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl"))

// BlockedMarker prefixes the text returned instead of a blocked document.
const BlockedMarker = "GENERATION BLOCKED"

// Rule identifiers for form-specific predicates
const (
	RuleCollateralDescription = "UCC_9_108"
	RuleStatuteOfFrauds       = "UCC_2_201"
	RuleContractorStatus      = "IRS_INDEPENDENT_CONTRACTOR"
)

// minCollateralLen: descriptions must be longer than this many characters.
const minCollateralLen = 3

// Synthesizer drafts verified forms.
type Synthesizer struct {
	citer checker.Citer
	now   func() time.Time
}

// NewSynthesizer. citer may be nil, in which case default citations are used.
func NewSynthesizer(citer checker.Citer) *Synthesizer {
	return &Synthesizer{citer: citer, now: time.Now}
}

// Synthesize runs the governing rule for the form type and renders the
// template only if it passes.
func (s *Synthesizer) Synthesize(req models.FormRequest) (models.FormResult, error) {
	f := fields(req.Data)
	if f == nil {
		f = fields{}
	}

	var (
		verdict models.ValidationStep
		view    map[string]any
		err     error
	)
	switch req.FormType {
	case models.FormPromissoryNote:
		verdict, view, err = s.promissoryNote(f)
	case models.FormSecurityAgreement:
		verdict, view = s.securityAgreement(f)
	case models.FormBillOfSale:
		verdict, view, err = s.billOfSale(f)
	case models.FormContractorAgreement:
		verdict, view = s.contractorAgreement(f)
	default:
		return models.FormResult{}, &checker.ArgumentError{
			Field:  "form_type",
			Reason: fmt.Sprintf("unsupported form type %q", req.FormType),
		}
	}
	if err != nil {
		return models.FormResult{}, err
	}

	if !verdict.Passed {
		return models.FormResult{DocumentText: blocked(req.FormType, verdict), Verdict: verdict}, nil
	}

	view["Date"] = s.now().UTC().Format("January 2, 2006")
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, string(req.FormType)+".tmpl", view); err != nil {
		return models.FormResult{}, fmt.Errorf("render %s: %w", req.FormType, err)
	}
	doc := b.String()
	return models.FormResult{DocumentText: doc, Verdict: verdict.WithContent(doc)}, nil
}

func blocked(ft models.FormType, v models.ValidationStep) string {
	return fmt.Sprintf("%s: %s was not drafted because rule %s failed.\nReason: %s",
		BlockedMarker, ft, v.RuleID, v.Details)
}

func (s *Synthesizer) citation(key, fallbackTitle, fallbackCitation string) (string, string) {
	if s.citer != nil {
		if st, ok := s.citer.Lookup(key); ok {
			return st.Title, st.Citation
		}
	}
	return fallbackTitle, fallbackCitation
}

func (s *Synthesizer) promissoryNote(f fields) (models.ValidationStep, map[string]any, error) {
	other, err := f.boolean("other_undertakings", false)
	if err != nil {
		return models.ValidationStep{}, nil, err
	}
	inst := models.Instrument{
		PromiseType:       models.PromiseType(f.str("promise_type", string(models.PromiseUnconditional))),
		AmountType:        models.AmountType(f.str("amount_type", string(models.AmountFixed))),
		PayableTo:         models.Payee(f.str("payable_to", string(models.PayableToOrder))),
		Timing:            models.Timing(f.str("timing", string(models.TimingDemand))),
		OtherUndertakings: other,
	}
	verdict, err := checker.VerifyNegotiability(s.citer, inst)
	if err != nil {
		return models.ValidationStep{}, nil, err
	}

	title, cite := s.citation("ucc_3_104", "Negotiable Instrument", "UCC § 3-104(a)")
	terms := "on demand"
	if inst.Timing == models.TimingDefinite {
		terms = "in full on " + f.str("maturity_date", "the maturity date stated above")
	}
	maker := f.str("maker", "Maker")
	return verdict, map[string]any{
		"Maker":          maker,
		"Payee":          f.str("payee", "Holder"),
		"Principal":      f.money("principal", "$0.00"),
		"InterestRate":   f.str("interest_rate", "0%"),
		"PaymentTerms":   terms,
		"GoverningState": f.str("governing_state", "Delaware"),
		"Citation":       markup.Citation(title, cite),
		"MakerSignature": markup.Signature("Maker: " + maker),
	}, nil
}

// securityAgreement passes when a collateral description is present and
// longer than three characters. This is a crude completeness heuristic; it
// does not establish that the description reasonably identifies the
// collateral as UCC 9-108 actually requires.
func (s *Synthesizer) securityAgreement(f fields) (models.ValidationStep, map[string]any) {
	collateral := f.str("collateral", "")
	title, cite := s.citation("ucc_9_108", "Sufficiency of Description", "UCC § 9-108(a)")
	attTitle, attCite := s.citation("ucc_9_203", "Attachment and Enforceability of Security Interest", "UCC § 9-203(b)")
	evidence := title + " (" + cite + ")"

	var verdict models.ValidationStep
	if n := utf8.RuneCountInString(collateral); n > minCollateralLen {
		verdict = models.NewStep(RuleCollateralDescription, true,
			fmt.Sprintf("PASS: Collateral description is present (%d characters), meeting the minimum completeness check.", n),
			evidence, s.now())
	} else {
		verdict = models.NewStep(RuleCollateralDescription, false,
			fmt.Sprintf("FAIL: Collateral description is missing or too short (%d characters; more than %d required).", n, minCollateralLen),
			evidence, s.now())
	}

	debtor := f.str("debtor", "Debtor")
	secured := f.str("secured_party", "Secured Party")
	return verdict, map[string]any{
		"Debtor":                debtor,
		"SecuredParty":          secured,
		"Obligation":            f.money("obligation", "all present and future obligations of Debtor"),
		"Collateral":            collateral,
		"Citation":              markup.Citation(title, cite),
		"AttachmentCitation":    markup.Citation(attTitle, attCite),
		"DebtorSignature":       markup.Signature("Debtor: " + debtor),
		"SecuredPartySignature": markup.Signature("Secured Party: " + secured),
	}
}

// billOfSale requires the essential terms a signed writing must show.
func (s *Synthesizer) billOfSale(f fields) (models.ValidationStep, map[string]any, error) {
	asIs, err := f.boolean("as_is", true)
	if err != nil {
		return models.ValidationStep{}, nil, err
	}
	var missing []string
	for _, k := range []string{"seller", "buyer", "goods", "price"} {
		if !f.has(k) {
			missing = append(missing, k)
		}
	}
	title, cite := s.citation("ucc_2_201", "Formal Requirements; Statute of Frauds", "UCC § 2-201(1)")
	evidence := title + " (" + cite + ")"

	var verdict models.ValidationStep
	if len(missing) == 0 {
		verdict = models.NewStep(RuleStatuteOfFrauds, true,
			"PASS: Writing identifies the seller, buyer, goods and price.", evidence, s.now())
	} else {
		verdict = models.NewStep(RuleStatuteOfFrauds, false,
			"FAIL: Writing is missing essential terms: "+strings.Join(missing, ", ")+".", evidence, s.now())
	}

	seller := f.str("seller", "")
	buyer := f.str("buyer", "")
	return verdict, map[string]any{
		"Seller":          seller,
		"Buyer":           buyer,
		"Goods":           f.str("goods", ""),
		"Price":           f.money("price", ""),
		"AsIs":            asIs,
		"Citation":        markup.Citation(title, cite),
		"SellerSignature": markup.Signature("Seller: " + seller),
		"BuyerSignature":  markup.Signature("Buyer: " + buyer),
	}, nil
}

func (s *Synthesizer) contractorAgreement(f fields) (models.ValidationStep, map[string]any) {
	title, cite := s.citation("irs_independent_contractor", "Common-Law Control Test for Worker Classification", "Rev. Rul. 87-41")
	verdict := models.NewStep(RuleContractorStatus, true,
		"PASS: Agreement reserves control of manner and means to the contractor, consistent with independent contractor status.",
		title+" ("+cite+")", s.now())

	client := f.str("client", "Client")
	contractor := f.str("contractor", "Contractor")
	return verdict, map[string]any{
		"Client":              client,
		"Contractor":          contractor,
		"Scope":               f.str("scope", "the services described in the attached statement of work"),
		"Rate":                f.str("rate", "the fees stated in each accepted invoice"),
		"NoticeDays":          f.str("notice_days", "30"),
		"Citation":            markup.Citation(title, cite),
		"ClientSignature":     markup.Signature("Client: " + client),
		"ContractorSignature": markup.Signature("Contractor: " + contractor),
	}
}
