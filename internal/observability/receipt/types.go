// Package receipt writes one evidence record per CLI command: what ran, how
// it ended, and a digest of every verdict it produced.
package receipt

// ReceiptSchemaVersion current
const ReceiptSchemaVersion = "1.0"

// Receipt structure
type Receipt struct {
	SchemaVersion string           `json:"schema_version"`
	OpID          string           `json:"op_id"`
	RunID         string           `json:"run_id,omitempty"`
	Version       string           `json:"arbiter_version,omitempty"`
	TsStart       string           `json:"ts_start"`
	TsEnd         string           `json:"ts_end"`
	Command       string           `json:"command"`
	Args          []string         `json:"args"`
	ArgsRedacted  bool             `json:"args_redacted,omitempty"`
	Result        Result           `json:"result"`
	Verdicts      []VerdictSummary `json:"verdicts,omitempty"`
	Gate          *GateSummary     `json:"gate,omitempty"`
	Ledger        *LedgerRef       `json:"ledger,omitempty"`
}

// Result status
type Result struct {
	Status string `json:"status"` // "success" or "fail"
	Error  string `json:"error,omitempty"`
}

// VerdictSummary identifies a verdict without carrying its full text.
type VerdictSummary struct {
	RuleID         string `json:"rule_id"`
	Passed         bool   `json:"passed"`
	EvidenceSource string `json:"evidence_source"`
	Digest         string `json:"digest,omitempty"`
}

// GateSummary records a policy gate decision.
type GateSummary struct {
	Policy  string `json:"policy,omitempty"`
	Tool    string `json:"tool"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

// LedgerRef points at the audit entries written by the command.
type LedgerRef struct {
	Path     string   `json:"path,omitempty"`
	EntryIDs []string `json:"entry_ids,omitempty"`
}
