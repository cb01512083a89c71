package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
)

// ValidationStep is the verdict produced by one rule checker invocation.
// It is a value type: checkers return it by value and never retain it.
type ValidationStep struct {
	RuleID           string    `json:"rule_id"`
	Passed           bool      `json:"passed"`
	Details          string    `json:"details"`
	EvidenceSource   string    `json:"evidence_source"`
	Timestamp        time.Time `json:"timestamp"`
	GeneratedContent string    `json:"generated_content,omitempty"`
}

// NewStep builds a verdict stamped at ts (normalized to UTC).
func NewStep(ruleID string, passed bool, details, evidence string, ts time.Time) ValidationStep {
	return ValidationStep{
		RuleID:         ruleID,
		Passed:         passed,
		Details:        details,
		EvidenceSource: evidence,
		Timestamp:      ts.UTC(),
	}
}

// WithContent returns a copy carrying generated document text.
// Failed verdicts never carry content.
func (v ValidationStep) WithContent(content string) ValidationStep {
	if !v.Passed {
		return v
	}
	v.GeneratedContent = content
	return v
}

// Outcome is "PASS" or "FAIL".
func (v ValidationStep) Outcome() string {
	if v.Passed {
		return "PASS"
	}
	return "FAIL"
}

// Digest returns the SHA-256 hex digest of the RFC 8785 canonical form.
func (v ValidationStep) Digest() (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal verdict: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize verdict: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
