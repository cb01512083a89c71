// Package policy decides which tools are enabled for a run. A Gate holds
// compiled CEL rules keyed by tool and evaluates them against an explicit
// history on every call; no decision is cached.
//
// Rules see a single variable, input:
//
//	input.tool                      tool being decided
//	input.calls                     number of history records
//	input.latest.<tool>.passed      most recent verdict for <tool>
//	input.latest.<tool>.rule_id
//	input.latest.<tool>.failed      most recent call returned an error
//	input.latest.<tool>.malformed   most recent payload was unreadable
//
// A tool with no rules is always enabled. A tool with rules is enabled only
// when every rule evaluates to true. Evaluation errors and non-bool results
// disable the tool.
package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"
)

type compiledRule struct {
	rule models.GateRule
	prg  cel.Program
}

// Gate is safe for concurrent use.
type Gate struct {
	name  string
	rules map[string][]compiledRule
	order []string
}

// RuleResult is the outcome of one rule.
type RuleResult struct {
	Tool       string `json:"tool"`
	Expr       string `json:"expr"`
	Passed     bool   `json:"passed"`
	FailureMsg string `json:"failure_msg,omitempty"`
}

// Decision explains Enabled.
type Decision struct {
	Tool      string       `json:"tool"`
	Enabled   bool         `json:"enabled"`
	Reason    string       `json:"reason"`
	Malformed []string     `json:"malformed,omitempty"`
	Rules     []RuleResult `json:"rules,omitempty"`
}

// ParseConfig decodes a gate policy.
func ParseConfig(data []byte) (*models.GateConfig, error) {
	var cfg models.GateConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse gate policy: %w", err)
	}
	return &cfg, nil
}

// LoadFile reads a gate policy from disk.
func LoadFile(path string) (*models.GateConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gate policy: %w", err)
	}
	return ParseConfig(data)
}

// Default returns a gate for the built-in default preset.
func Default() (*Gate, error) {
	cfg, err := Preset("default")
	if err != nil {
		return nil, err
	}
	return NewGate(cfg)
}

// NewGate compiles every rule. Compile errors are returned here rather
// than surfacing at decision time.
func NewGate(cfg *models.GateConfig) (*Gate, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gate policy is nil")
	}
	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	g := &Gate{name: cfg.Name, rules: map[string][]compiledRule{}}
	for i, rule := range cfg.Rules {
		if strings.TrimSpace(rule.Tool) == "" {
			return nil, fmt.Errorf("rule %d: tool is required", i)
		}
		if strings.TrimSpace(rule.Expr) == "" {
			return nil, fmt.Errorf("rule %d (%s): expr is required", i, rule.Tool)
		}

		ast, issues := env.Compile(rule.Expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %d (%s): CEL compile error: %w", i, rule.Tool, issues.Err())
		}
		if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
			return nil, fmt.Errorf("rule %d (%s): expression must return bool, got %s", i, rule.Tool, t)
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): CEL program error: %w", i, rule.Tool, err)
		}

		if _, ok := g.rules[rule.Tool]; !ok {
			g.order = append(g.order, rule.Tool)
		}
		g.rules[rule.Tool] = append(g.rules[rule.Tool], compiledRule{rule: rule, prg: prg})
	}
	return g, nil
}

// Name of the loaded policy.
func (g *Gate) Name() string { return g.name }

// GatedTools lists tools that have rules, in policy order.
func (g *Gate) GatedTools() []string {
	return append([]string(nil), g.order...)
}

// Enabled reports whether tool may be invoked given h.
func (g *Gate) Enabled(h History, tool string) bool {
	return g.Decide(h, tool).Enabled
}

// Decide evaluates the rules for tool against h.
func (g *Gate) Decide(h History, tool string) Decision {
	input, malformed := buildInput(h, tool)
	d := Decision{Tool: tool, Malformed: malformed}

	rules := g.rules[tool]
	if len(rules) == 0 {
		d.Enabled = true
		d.Reason = "no gate rules for tool"
		return d
	}

	var failures []string
	for _, cr := range rules {
		res := evaluate(cr, input)
		d.Rules = append(d.Rules, res)
		if !res.Passed {
			failures = append(failures, res.FailureMsg)
		}
	}

	d.Enabled = len(failures) == 0
	if d.Enabled {
		d.Reason = fmt.Sprintf("%d gate rule(s) satisfied", len(rules))
	} else {
		d.Reason = strings.Join(failures, "; ")
	}
	return d
}

// Available filters tools down to those enabled for h, preserving order.
func (g *Gate) Available(h History, tools []string) []string {
	out := make([]string, 0, len(tools))
	for _, t := range tools {
		if g.Enabled(h, t) {
			out = append(out, t)
		}
	}
	return out
}

func evaluate(cr compiledRule, input map[string]interface{}) RuleResult {
	res := RuleResult{Tool: cr.rule.Tool, Expr: cr.rule.Expr}

	out, _, err := cr.prg.Eval(map[string]interface{}{"input": input})
	if err != nil {
		res.FailureMsg = fmt.Sprintf("CEL evaluation error: %v", err)
		return res
	}
	passed, ok := out.Value().(bool)
	if !ok {
		res.FailureMsg = fmt.Sprintf("rule expression must return boolean, got %T", out.Value())
		return res
	}

	res.Passed = passed
	if !passed {
		res.FailureMsg = cr.rule.FailureMsg
		if res.FailureMsg == "" {
			res.FailureMsg = "rule not satisfied: " + cr.rule.Expr
		}
	}
	return res
}
