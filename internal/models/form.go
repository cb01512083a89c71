package models

// FormType names a document template the synthesizer can draft.
type FormType string

const (
	FormPromissoryNote      FormType = "promissory_note"
	FormSecurityAgreement   FormType = "security_agreement_ucc"
	FormBillOfSale          FormType = "bill_of_sale"
	FormContractorAgreement FormType = "contractor_agreement"
)

// FormTypes in display order.
var FormTypes = []FormType{
	FormPromissoryNote,
	FormSecurityAgreement,
	FormBillOfSale,
	FormContractorAgreement,
}

// FormRequest input to draft_verified_form
type FormRequest struct {
	FormType FormType       `json:"form_type"`
	Data     map[string]any `json:"data"`
}

// FormResult pairs document text with the verdict that governed it.
type FormResult struct {
	DocumentText string         `json:"document_text"`
	Verdict      ValidationStep `json:"verdict"`
}
