package receipt

import (
	"context"
	"time"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/version"
)

// MaxErrorLength is the maximum length for error strings in receipts.
const MaxErrorLength = 2048

// Session tracks command execution
type Session struct {
	ctx     context.Context
	start   time.Time
	command string
	args    []string
}

// Start session
func Start(ctx context.Context, cmd string, args []string) *Session {
	return &Session{
		ctx:     ctx,
		start:   time.Now(),
		command: cmd,
		args:    args,
	}
}

// Option configures receipt
type Option func(*Receipt)

// WithVerdicts summarizes each verdict. A digest failure leaves the digest
// empty rather than dropping the verdict.
func WithVerdicts(vs ...models.ValidationStep) Option {
	return func(r *Receipt) {
		for _, v := range vs {
			digest, _ := v.Digest()
			r.Verdicts = append(r.Verdicts, VerdictSummary{
				RuleID:         v.RuleID,
				Passed:         v.Passed,
				EvidenceSource: v.EvidenceSource,
				Digest:         digest,
			})
		}
	}
}

// WithGate option
func WithGate(policy, tool string, enabled bool, reason string) Option {
	return func(r *Receipt) {
		r.Gate = &GateSummary{Policy: policy, Tool: tool, Enabled: enabled, Reason: reason}
	}
}

// WithLedger option
func WithLedger(path string, entryIDs ...string) Option {
	return func(r *Receipt) {
		if path == "" && len(entryIDs) == 0 {
			return
		}
		r.Ledger = &LedgerRef{Path: path, EntryIDs: entryIDs}
	}
}

// Finish and write receipt
func (s *Session) Finish(err error, opts ...Option) error {
	w := From(s.ctx)
	if w == nil {
		// receipts disabled
		return nil
	}

	redactedArgs, wasRedacted := RedactArgs(s.args)

	r := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		OpID:          observability.OpID(s.ctx),
		RunID:         observability.RunID(s.ctx),
		Version:       version.BuildVersion(),
		TsStart:       s.start.UTC().Format(time.RFC3339Nano),
		TsEnd:         time.Now().UTC().Format(time.RFC3339Nano),
		Command:       s.command,
		Args:          redactedArgs,
		ArgsRedacted:  wasRedacted,
		Result:        Result{Status: "success"},
	}
	if err != nil {
		r.Result = Result{
			Status: "fail",
			Error:  truncateError(RedactText(err.Error())),
		}
	}

	for _, opt := range opts {
		opt(&r)
	}

	return w.Write(r)
}

// truncateError helper
func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	return s[:MaxErrorLength-3] + "..."
}
