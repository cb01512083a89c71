package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/engine"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/policy"
)

func newGateCmd(rt *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Inspect the tool gate policy",
	}
	cmd.AddCommand(newGateCheckCmd(rt), newGatePresetsCmd(rt))
	return cmd
}

// gateReport is the output of `gate check`.
type gateReport struct {
	Policy    string          `json:"policy"`
	Decision  policy.Decision `json:"decision"`
	Available []string        `json:"available_tools"`
	Records   int             `json:"history_records"`
}

func newGateCheckCmd(rt *app) *cobra.Command {
	var historyPath string
	cmd := &cobra.Command{
		Use:   "check <tool> [--history file.jsonl]",
		Short: "Decide whether a tool is enabled for a recorded history",
		Long: `Evaluate the gate for one tool against a history file.

The history is JSONL, one record per line, oldest first. A line that is not
valid JSON counts as a malformed record for the tool it names:

  {"tool":"verify_ordinary","payload":{"rule_id":"rule_is_ordinary","passed":true}}
  {"tool":"verify_ordinary","error":"schema validation failed"}

Exits 3 when the tool is disabled.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&historyPath, "history", "", "History JSONL file (\"-\" for stdin; empty history when omitted)")
	cmd.RunE = rt.action("gate check", func(_ context.Context, cmd *cobra.Command, args []string, _ *engine.Run, rep *report) error {
		tool := args[0]
		if _, ok := rt.engine.Registry().Lookup(tool); !ok {
			return fmt.Errorf("%w: %q", engine.ErrUnknownTool, tool)
		}

		h, err := loadHistory(cmd.InOrStdin(), historyPath)
		if err != nil {
			return err
		}

		gate := rt.engine.Gate()
		d := gate.Decide(h, tool)
		rep.gate = &d
		if err := printJSON(cmd, gateReport{
			Policy:    gate.Name(),
			Decision:  d,
			Available: gate.Available(h, rt.engine.Registry().Names()),
			Records:   len(h),
		}); err != nil {
			return err
		}
		if !d.Enabled {
			return fmt.Errorf("%w: %s: %s", engine.ErrToolDisabled, tool, d.Reason)
		}
		return nil
	})
	return cmd
}

func loadHistory(stdin io.Reader, path string) (policy.History, error) {
	var r io.Reader
	switch path {
	case "":
		return nil, nil
	case "-":
		r = stdin
	default:
		// #nosec G304 -- path is operator-provided.
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		defer f.Close()
		r = f
	}
	return readHistory(r)
}

func readHistory(r io.Reader) (policy.History, error) {
	var h policy.History
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var rec policy.Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			tool := recordTool(text)
			if tool == "" {
				return nil, usageErr(fmt.Errorf("history line %d: %w", line, err))
			}
			// the gate reports an unreadable payload as malformed
			rec = policy.Record{Tool: tool, Payload: json.RawMessage(text)}
		}
		if rec.Tool == "" {
			return nil, usageErr(fmt.Errorf("history line %d: tool is required", line))
		}
		h = h.Append(rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return h, nil
}

var toolField = regexp.MustCompile(`"tool"\s*:\s*"([^"\\]+)"`)

// recordTool recovers the tool name from a line that did not parse.
func recordTool(line string) string {
	m := toolField.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

func newGatePresetsCmd(rt *app) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List built-in gate policies",
		Args:  cobra.NoArgs,
		RunE: rt.action("gate presets", func(_ context.Context, cmd *cobra.Command, _ []string, _ *engine.Run, _ *report) error {
			var errs []error
			for _, name := range policy.PresetNames() {
				cfg, err := policy.Preset(name)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, cfg.Name)
				for _, r := range cfg.Rules {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", r.Tool, r.Expr)
				}
			}
			return errors.Join(errs...)
		}),
	}
}
