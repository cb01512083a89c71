// Package tools exposes the checkers, the form synthesizer and the law
// library as named tools with JSON Schema validated arguments.
package tools

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/checker"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/forms"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/lawlib"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

// Tool names
const (
	VerifyOrdinary      = "verify_ordinary"
	VerifyNecessary     = "verify_necessary"
	VerifyNegotiability = "verify_negotiability"
	ScanClause          = "scan_clause"
	DraftVerifiedForm   = "draft_verified_form"
	ConsultStatute      = "consult_statute"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Result of a tool call. Verdict is always set on success and is what the
// policy gate sees; Output is the full value returned to the caller.
type Result struct {
	Verdict models.ValidationStep `json:"verdict"`
	Output  any                   `json:"output"`
}

// Handler runs a tool against schema-valid arguments.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Tool is one entry in the registry.
type Tool struct {
	Name        string
	Description string
	// Source attributes the tool's audit entries.
	Source models.Source

	schemaJSON []byte
	schema     *jsonschema.Schema
	handler    Handler
}

// Schema returns the raw JSON Schema.
func (t *Tool) Schema() json.RawMessage {
	return append(json.RawMessage(nil), t.schemaJSON...)
}

// Validate checks raw arguments against the tool schema.
func (t *Tool) Validate(args json.RawMessage) error {
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return &checker.ArgumentError{Field: "arguments", Reason: fmt.Sprintf("not valid JSON: %v", err)}
	}
	if dec.More() {
		return &checker.ArgumentError{Field: "arguments", Reason: "trailing data after JSON object"}
	}
	if err := t.schema.Validate(doc); err != nil {
		return &checker.ArgumentError{Field: "arguments", Reason: fmt.Sprintf("%s schema validation failed: %v", t.Name, err)}
	}
	return nil
}

// Call validates args then runs the handler.
func (t *Tool) Call(ctx context.Context, args json.RawMessage) (Result, error) {
	if err := t.Validate(args); err != nil {
		return Result{}, err
	}
	return t.handler(ctx, args)
}

// Deps wires the registry. Nil fields fall back to the embedded defaults.
type Deps struct {
	Library  *lawlib.Library
	Ordinary *checker.OrdinaryTable
	Forms    *forms.Synthesizer
}

// Registry is safe for concurrent lookups once registration is complete.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry builds the six tools and compiles their schemas.
func NewRegistry(deps Deps) (*Registry, error) {
	if deps.Library == nil {
		deps.Library = lawlib.Default()
	}
	if deps.Ordinary == nil {
		deps.Ordinary = checker.DefaultOrdinaryTable()
	}
	if deps.Forms == nil {
		deps.Forms = forms.NewSynthesizer(deps.Library)
	}
	h := handlers{deps: deps}

	r := &Registry{tools: map[string]*Tool{}}
	defs := []struct {
		name, desc string
		source     models.Source
		fn         Handler
	}{
		{VerifyOrdinary, "Check whether an expense category is ordinary for an industry (IRC § 162).", models.SourceArbiter, h.verifyOrdinary},
		{VerifyNecessary, "Check whether an expense is necessary by its share of business revenue.", models.SourceArbiter, h.verifyNecessary},
		{VerifyNegotiability, "Check an instrument against the five UCC § 3-104(a) requirements.", models.SourceArbiter, h.verifyNegotiability},
		{ScanClause, "Scan contract clause text for known legal risks.", models.SourceArbiter, h.scanClause},
		{DraftVerifiedForm, "Draft a legal form, blocked unless its governing rule passes.", models.SourceStudio, h.draftForm},
		{ConsultStatute, "Look up a statute in the law library.", models.SourceAdvisor, h.consultStatute},
	}
	for _, d := range defs {
		raw, err := schemaFS.ReadFile("schemas/" + d.name + ".json")
		if err != nil {
			return nil, fmt.Errorf("tool %s: missing schema: %w", d.name, err)
		}
		if err := r.Register(d.name, d.desc, d.source, raw, d.fn); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. It must not be called concurrently with lookups.
func (r *Registry) Register(name, description string, source models.Source, schema []byte, fn Handler) error {
	if _, dup := r.tools[name]; dup {
		return fmt.Errorf("tool %s: already registered", name)
	}
	if !source.Valid() {
		return fmt.Errorf("tool %s: invalid audit source %q", name, source)
	}
	if fn == nil {
		return fmt.Errorf("tool %s: handler is required", name)
	}
	t, err := newTool(name, description, source, schema, fn)
	if err != nil {
		return err
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

func newTool(name, desc string, source models.Source, raw []byte, fn Handler) (*Tool, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://arbiter.schemas.local/tools/%s.schema.json", name)
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("tool %s: schema load failed: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("tool %s: schema compile failed: %w", name, err)
	}
	return &Tool{Name: name, Description: desc, Source: source, schemaJSON: raw, schema: compiled, handler: fn}, nil
}

// Names lists tools in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Lookup returns the named tool.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools lists tools in registration order.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}
