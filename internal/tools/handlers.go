package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/checker"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

// RuleStatuteLookup is the rule id of consult_statute verdicts.
const RuleStatuteLookup = "statute_lookup"

type handlers struct {
	deps Deps
}

func decode(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return &checker.ArgumentError{Field: "arguments", Reason: err.Error()}
	}
	return nil
}

func verdictOnly(v models.ValidationStep, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	return Result{Verdict: v, Output: v}, nil
}

type ordinaryArgs struct {
	IndustryCode    string `json:"industry_code"`
	ExpenseCategory string `json:"expense_category"`
}

func (h handlers) verifyOrdinary(_ context.Context, raw json.RawMessage) (Result, error) {
	var a ordinaryArgs
	if err := decode(raw, &a); err != nil {
		return Result{}, err
	}
	return verdictOnly(checker.VerifyOrdinaryWith(h.deps.Ordinary, a.IndustryCode, a.ExpenseCategory))
}

type necessaryArgs struct {
	ExpenseAmount   float64 `json:"expense_amount"`
	BusinessRevenue float64 `json:"business_revenue"`
}

func (h handlers) verifyNecessary(_ context.Context, raw json.RawMessage) (Result, error) {
	var a necessaryArgs
	if err := decode(raw, &a); err != nil {
		return Result{}, err
	}
	return verdictOnly(checker.VerifyNecessary(a.ExpenseAmount, a.BusinessRevenue))
}

func (h handlers) verifyNegotiability(_ context.Context, raw json.RawMessage) (Result, error) {
	var inst models.Instrument
	if err := decode(raw, &inst); err != nil {
		return Result{}, err
	}
	return verdictOnly(checker.VerifyNegotiability(h.deps.Library, inst))
}

type clauseArgs struct {
	ClauseText   string `json:"clause_text"`
	DocumentType string `json:"document_type"`
}

// ClauseOutput is returned by scan_clause.
type ClauseOutput struct {
	Verdict models.ValidationStep `json:"verdict"`
	Risks   []models.Risk         `json:"risks"`
}

func (h handlers) scanClause(_ context.Context, raw json.RawMessage) (Result, error) {
	var a clauseArgs
	if err := decode(raw, &a); err != nil {
		return Result{}, err
	}
	v, risks, err := checker.ScanClauseWithRisks(h.deps.Library, a.ClauseText, a.DocumentType)
	if err != nil {
		return Result{}, err
	}
	if risks == nil {
		risks = []models.Risk{}
	}
	return Result{Verdict: v, Output: ClauseOutput{Verdict: v, Risks: risks}}, nil
}

func (h handlers) draftForm(_ context.Context, raw json.RawMessage) (Result, error) {
	var req models.FormRequest
	if err := decode(raw, &req); err != nil {
		return Result{}, err
	}
	res, err := h.deps.Forms.Synthesize(req)
	if err != nil {
		return Result{}, err
	}
	return Result{Verdict: res.Verdict, Output: res}, nil
}

type statuteArgs struct {
	Query string `json:"query"`
}

// StatuteOutput is returned by consult_statute.
type StatuteOutput struct {
	Found   bool            `json:"found"`
	Statute *models.Statute `json:"statute,omitempty"`
}

// consultStatute reports a miss as a failing verdict, not an error.
func (h handlers) consultStatute(_ context.Context, raw json.RawMessage) (Result, error) {
	var a statuteArgs
	if err := decode(raw, &a); err != nil {
		return Result{}, err
	}
	s, ok := h.deps.Library.Lookup(a.Query)
	if !ok {
		v := models.NewStep(RuleStatuteLookup, false,
			fmt.Sprintf("FAIL: No statute in the law library matches %q.", a.Query),
			"Law Library (embedded corpus)", time.Now())
		return Result{Verdict: v, Output: StatuteOutput{}}, nil
	}
	v := models.NewStep(RuleStatuteLookup, true,
		fmt.Sprintf("PASS: %q resolved to %s.", a.Query, s.Key),
		s.Reference(), time.Now())
	return Result{Verdict: v, Output: StatuteOutput{Found: true, Statute: &s}}, nil
}
