// Package engine is the orchestration boundary. An Engine owns the tool
// registry, the policy gate and the audit ledger; each Run carries one
// request's history and serializes its tool calls.
//
// Every Invoke goes through the same sequence: gate check, schema
// validation, dispatch, audit, history. A call that fails is audited with
// status Error and appended to history as an error record, so it can never
// satisfy a gate rule.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/checker"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/differ"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/ledger"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/logging"
	otelobs "github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/otel"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/policy"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/tools"
)

// Engine is safe for concurrent use; runs are independent.
type Engine struct {
	registry *tools.Registry
	gate     *policy.Gate
	ledger   *ledger.Ledger

	now func() time.Time
}

// New wires an engine. All three dependencies are required.
func New(registry *tools.Registry, gate *policy.Gate, led *ledger.Ledger) (*Engine, error) {
	switch {
	case registry == nil:
		return nil, errors.New("engine: registry is required")
	case gate == nil:
		return nil, errors.New("engine: policy gate is required")
	case led == nil:
		return nil, errors.New("engine: audit ledger is required")
	}
	return &Engine{registry: registry, gate: gate, ledger: led, now: time.Now}, nil
}

// Registry returns the tool registry.
func (e *Engine) Registry() *tools.Registry { return e.registry }

// Gate returns the policy gate.
func (e *Engine) Gate() *policy.Gate { return e.gate }

// Ledger returns the audit ledger.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// NewRun starts an empty run.
func (e *Engine) NewRun() *Run {
	return &Run{
		id:         uuid.NewString(),
		engine:     e,
		lastArgs:   map[string]json.RawMessage{},
		iterations: map[string]int{},
	}
}

// Run is one logical request. At most one Invoke executes at a time.
type Run struct {
	id     string
	engine *Engine

	mu         sync.Mutex
	history    policy.History
	lastArgs   map[string]json.RawMessage
	iterations map[string]int
}

// Outcome is a completed tool call.
type Outcome struct {
	Tool    string                `json:"tool"`
	Verdict models.ValidationStep `json:"verdict"`
	Output  any                   `json:"output"`
	EntryID string                `json:"audit_entry_id"`
	// Refinement is set when the tool was re-invoked with different arguments.
	Refinement *Refinement `json:"refinement,omitempty"`
}

// Refinement describes a re-invocation with changed arguments.
type Refinement struct {
	Iteration int      `json:"iteration"`
	Changes   []string `json:"changes"`
}

func (r *Run) ID() string { return r.id }

// History returns a snapshot of the run's history.
func (r *Run) History() policy.History {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(policy.History(nil), r.history...)
}

// AvailableTools lists the tools the gate currently allows. Callers query
// this before every selection step; the answer changes as history grows.
func (r *Run) AvailableTools() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.gate.Available(r.history, r.engine.registry.Names())
}

// Decide explains the gate decision for tool against the current history.
func (r *Run) Decide(tool string) policy.Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.gate.Decide(r.history, tool)
}

// Invoke runs one tool call.
func (r *Run) Invoke(ctx context.Context, name string, args json.RawMessage) (out Outcome, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	ctx = observability.WithRunID(ctx, r.id)
	ctx, endSpan := otelobs.StartSpan(ctx, "tool."+name, attribute.String(otelobs.AttrTool, name))
	defer func() { endSpan(err) }()
	log := logging.From(ctx)

	tool, ok := r.engine.registry.Lookup(name)
	if !ok {
		log.Event(ctx, "tool.unknown", map[string]any{"tool": name})
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	decision := r.engine.gate.Decide(r.history, name)
	if len(decision.Malformed) > 0 {
		log.Warn("gate", "malformed history record treated as absent",
			"tool", name, "malformed", decision.Malformed, "run_id", r.id)
	}
	if !decision.Enabled {
		log.Event(ctx, "tool.blocked", map[string]any{"tool": name, "reason": decision.Reason})
		if _, aerr := r.engine.ledger.Append(name, "BLOCKED: "+decision.Reason, models.SourceSystem,
			ledger.WithStatus(models.StatusError)); aerr != nil {
			log.Error("ledger", "failed to record blocked call", "tool", name, "error", aerr.Error())
		}
		return Outcome{}, fmt.Errorf("%w: %s: %s", ErrToolDisabled, name, decision.Reason)
	}

	start := r.engine.now()
	res, callErr := safeCall(ctx, tool, args)
	latency := r.engine.now().Sub(start).Milliseconds()

	if callErr != nil {
		return Outcome{}, r.recordFailure(ctx, tool, callErr, latency)
	}

	refinement := r.refinementFor(name, args)

	details := fmt.Sprintf("%s %s: %s", res.Verdict.Outcome(), res.Verdict.RuleID, res.Verdict.Details)
	status := models.StatusVerified
	meta := models.AuditMetadata{
		LatencyMs:       ledger.Ptr(latency),
		ComplianceCheck: ledger.Ptr(res.Verdict.Passed),
	}
	if refinement != nil {
		status = models.StatusRefining
		meta.RefinementIterations = ledger.Ptr(refinement.Iteration)
		details += " [refined: " + strings.Join(refinement.Changes, ", ") + "]"
	}

	entryID, aerr := r.engine.ledger.Append(name, details, tool.Source,
		ledger.WithStatus(status), ledger.WithMetadata(meta))
	if aerr != nil {
		// unaudited verdicts never reach history
		return Outcome{}, fmt.Errorf("%w: %v", ErrAuditFailed, aerr)
	}
	r.commitArgs(name, args, refinement)

	payload, merr := json.Marshal(res.Verdict)
	if merr != nil {
		return Outcome{}, fmt.Errorf("%w: encode verdict: %v", ErrToolExecution, merr)
	}
	r.history = r.history.Append(policy.Record{Tool: name, Payload: payload})

	otelobs.Annotate(ctx,
		attribute.String(otelobs.AttrRuleID, res.Verdict.RuleID),
		attribute.Bool(otelobs.AttrPassed, res.Verdict.Passed),
	)
	fields := map[string]any{
		"tool":       name,
		"rule_id":    res.Verdict.RuleID,
		"passed":     res.Verdict.Passed,
		"latency_ms": latency,
		"entry_id":   entryID,
	}
	if refinement != nil {
		fields["refinement_iteration"] = refinement.Iteration
	}
	log.Event(ctx, "tool.invoke", fields)

	return Outcome{
		Tool:       name,
		Verdict:    res.Verdict,
		Output:     res.Output,
		EntryID:    entryID,
		Refinement: refinement,
	}, nil
}

// recordFailure audits and records a failed call and returns the error to
// surface. Argument errors keep their identity; everything else is wrapped
// in ErrToolExecution.
func (r *Run) recordFailure(ctx context.Context, tool *tools.Tool, callErr error, latency int64) error {
	log := logging.From(ctx)

	err := callErr
	if !errors.Is(err, checker.ErrInvalidArgument) && !errors.Is(err, ErrToolExecution) {
		err = fmt.Errorf("%w: %s: %v", ErrToolExecution, tool.Name, callErr)
	}

	if _, aerr := r.engine.ledger.Append(tool.Name, "ERROR: "+err.Error(), tool.Source,
		ledger.WithStatus(models.StatusError),
		ledger.WithMetadata(models.AuditMetadata{LatencyMs: ledger.Ptr(latency)})); aerr != nil {
		log.Error("ledger", "failed to record tool failure", "tool", tool.Name, "error", aerr.Error())
	}
	r.history = r.history.Append(policy.Record{Tool: tool.Name, Error: err.Error()})

	log.Event(ctx, "tool.error", map[string]any{"tool": tool.Name, "error": err.Error()})
	return err
}

// refinementFor compares args with the last audited call of the same tool.
// Identical arguments are a repeat, not a refinement. It does not modify
// run state; commitArgs does once the call is audited.
func (r *Run) refinementFor(name string, args json.RawMessage) *Refinement {
	prev, seen := r.lastArgs[name]
	if !seen {
		return nil
	}
	patch, err := differ.Compare(prev, args)
	if err != nil || len(patch) == 0 {
		return nil
	}
	return &Refinement{Iteration: r.iterations[name] + 1, Changes: differ.Translate(patch)}
}

func (r *Run) commitArgs(name string, args json.RawMessage, ref *Refinement) {
	r.lastArgs[name] = append(json.RawMessage(nil), args...)
	if ref != nil {
		r.iterations[name] = ref.Iteration
	}
}

// safeCall converts handler panics into ErrToolExecution.
func safeCall(ctx context.Context, tool *tools.Tool, args json.RawMessage) (res tools.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrToolExecution, tool.Name, p)
		}
	}()
	return tool.Call(ctx, args)
}
