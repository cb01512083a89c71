package models

import (
	"fmt"
	"time"
)

// Source identifies which subsystem produced an audit entry.
type Source string

const (
	SourceAdvisor Source = "Advisor"
	SourceStudio  Source = "Studio"
	SourceSystem  Source = "System"
	SourceArbiter Source = "Arbiter"
)

// Valid reports whether s is one of the closed set of sources.
func (s Source) Valid() bool {
	switch s {
	case SourceAdvisor, SourceStudio, SourceSystem, SourceArbiter:
		return true
	}
	return false
}

// ParseSource is case-sensitive; dashboards key on the exact names.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !src.Valid() {
		return "", fmt.Errorf("unknown audit source %q (use Advisor, Studio, System or Arbiter)", s)
	}
	return src, nil
}

// Status of an audited action.
type Status string

const (
	StatusVerified Status = "Verified"
	StatusPending  Status = "Pending"
	StatusError    Status = "Error"
	StatusRefining Status = "Refining"
)

func (s Status) Valid() bool {
	switch s {
	case StatusVerified, StatusPending, StatusError, StatusRefining:
		return true
	}
	return false
}

// AuditMetadata optional measurements attached to an entry
type AuditMetadata struct {
	CriticScore          *float64 `json:"criticScore,omitempty"`
	LatencyMs            *int64   `json:"latencyMs,omitempty"`
	ComplianceCheck      *bool    `json:"complianceCheck,omitempty"`
	RefinementIterations *int     `json:"refinementIterations,omitempty"`
}

// AuditEntry is one immutable ledger record.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Details   string         `json:"details"`
	Source    Source         `json:"source"`
	Status    Status         `json:"status"`
	Hash      string         `json:"hash"`
	Metadata  *AuditMetadata `json:"metadata,omitempty"`
}
