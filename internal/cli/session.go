package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/engine"
)

func newSessionCmd(rt *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Replay tool calls through a single run",
	}
	cmd.AddCommand(newSessionRunCmd(rt))
	return cmd
}

// scriptStep is one line of a session script.
type scriptStep struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// stepResult is one line of session output.
type stepResult struct {
	Step      int             `json:"step"`
	Tool      string          `json:"tool"`
	Outcome   *engine.Outcome `json:"outcome,omitempty"`
	Blocked   bool            `json:"blocked,omitempty"`
	Error     string          `json:"error,omitempty"`
	Available []string        `json:"available_tools"`
}

func newSessionRunCmd(rt *app) *cobra.Command {
	var stopOnError bool
	cmd := &cobra.Command{
		Use:   "run <script.jsonl|->",
		Short: "Run a JSONL script of tool calls in one run",
		Long: `Run a script of tool calls through one run, so gate rules see the
verdicts of earlier steps. Each line is a call:

  {"tool":"verify_ordinary","arguments":{"industry_code":"238350","expense_category":"truck"}}
  {"tool":"verify_necessary","arguments":{"expense_amount":30000,"business_revenue":70000}}

One JSON result is printed per step, followed by the tools available after
it. Exits 1 when any verdict fails or any step errors.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Stop at the first blocked or failed call")
	cmd.RunE = rt.action("session run", func(ctx context.Context, cmd *cobra.Command, args []string, run *engine.Run, rep *report) error {
		steps, err := loadScript(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		failed := false
		for i, st := range steps {
			res := stepResult{Step: i + 1, Tool: st.Tool}
			out, err := run.Invoke(ctx, st.Tool, st.Arguments)
			switch {
			case err == nil:
				rep.add(out)
				res.Outcome = &out
				if !out.Verdict.Passed {
					failed = true
				}
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				failed = true
				res.Blocked = errors.Is(err, engine.ErrToolDisabled)
				res.Error = err.Error()
			}
			res.Available = run.AvailableTools()
			if err := enc.Encode(res); err != nil {
				return err
			}
			if stopOnError && (res.Error != "" || (res.Outcome != nil && !res.Outcome.Verdict.Passed)) {
				break
			}
		}

		if failed {
			return ErrVerdictFailed
		}
		return nil
	})
	return cmd
}

func loadScript(stdin io.Reader, path string) ([]scriptStep, error) {
	r := stdin
	if path != "-" {
		// #nosec G304 -- path is operator-provided.
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		r = f
	}

	var steps []scriptStep
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var st scriptStep
		if err := json.Unmarshal([]byte(text), &st); err != nil {
			return nil, usageErr(fmt.Errorf("script line %d: %w", line, err))
		}
		if st.Tool == "" {
			return nil, usageErr(fmt.Errorf("script line %d: tool is required", line))
		}
		steps = append(steps, st)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	if len(steps) == 0 {
		return nil, usageErr(errors.New("script has no steps"))
	}
	return steps, nil
}
