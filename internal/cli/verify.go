package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/engine"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/tools"
)

func newVerifyCmd(rt *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run a compliance checker",
		Long: `Run one of the deterministic compliance checkers.

Each subcommand prints the tool outcome as JSON and exits 1 when the
verdict fails.`,
	}
	cmd.AddCommand(newVerifyOrdinaryCmd(rt), newVerifyNecessaryCmd(rt), newVerifyNegotiableCmd(rt))
	return cmd
}

func newVerifyOrdinaryCmd(rt *app) *cobra.Command {
	var industry, category string
	cmd := &cobra.Command{
		Use:     "ordinary --industry <naics> --category <expense>",
		Short:   "Check that an expense is ordinary for an industry (IRC §162)",
		Example: `  arbiter verify ordinary --industry 238350 --category truck`,
		Args:    cobra.NoArgs,
	}
	cmd.Flags().StringVar(&industry, "industry", "", "NAICS industry code")
	cmd.Flags().StringVar(&category, "category", "", "Expense category")
	cmd.RunE = rt.action("verify ordinary", func(ctx context.Context, cmd *cobra.Command, _ []string, run *engine.Run, rep *report) error {
		return invoke(ctx, cmd, run, rep, tools.VerifyOrdinary, map[string]any{
			"industry_code":    industry,
			"expense_category": category,
		})
	})
	return cmd
}

func newVerifyNecessaryCmd(rt *app) *cobra.Command {
	var (
		amount, revenue    float64
		industry, category string
	)
	cmd := &cobra.Command{
		Use:   "necessary --amount <usd> --revenue <usd>",
		Short: "Check that an expense is necessary relative to revenue",
		Long: `Check that an expense is necessary relative to business revenue.

The gate only enables this check after an ordinary-expense verdict has
passed in the same run. Pass --industry and --category to run that check
first; without them the call is blocked under the default policy.`,
		Example: `  arbiter verify necessary --amount 30000 --revenue 70000 --industry 238350 --category truck`,
		Args:    cobra.NoArgs,
	}
	cmd.Flags().Float64Var(&amount, "amount", 0, "Expense amount")
	cmd.Flags().Float64Var(&revenue, "revenue", 0, "Business revenue")
	cmd.Flags().StringVar(&industry, "industry", "", "NAICS industry code for the prerequisite ordinary check")
	cmd.Flags().StringVar(&category, "category", "", "Expense category for the prerequisite ordinary check")
	cmd.RunE = rt.action("verify necessary", func(ctx context.Context, cmd *cobra.Command, _ []string, run *engine.Run, rep *report) error {
		if industry != "" || category != "" {
			if err := invoke(ctx, cmd, run, rep, tools.VerifyOrdinary, map[string]any{
				"industry_code":    industry,
				"expense_category": category,
			}); err != nil {
				return err
			}
		}
		return invoke(ctx, cmd, run, rep, tools.VerifyNecessary, map[string]any{
			"expense_amount":   amount,
			"business_revenue": revenue,
		})
	})
	return cmd
}

func newVerifyNegotiableCmd(rt *app) *cobra.Command {
	var (
		inst                               models.Instrument
		promise, amountType, payee, timing string
	)
	cmd := &cobra.Command{
		Use:     "negotiable",
		Short:   "Check that an instrument is negotiable (UCC §3-104)",
		Example: `  arbiter verify negotiable --timing indefinite`,
		Args:    cobra.NoArgs,
	}
	cmd.Flags().StringVar(&promise, "promise", string(models.PromiseUnconditional), "Promise type: conditional or unconditional")
	cmd.Flags().StringVar(&amountType, "amount-type", string(models.AmountFixed), "Amount type: fixed or variable")
	cmd.Flags().StringVar(&payee, "payable-to", string(models.PayableToOrder), "Payee: bearer, order or specific_person")
	cmd.Flags().StringVar(&timing, "timing", string(models.TimingDemand), "Timing: demand, definite or indefinite")
	cmd.Flags().BoolVar(&inst.OtherUndertakings, "other-undertakings", false, "Instrument carries undertakings beyond payment")
	cmd.RunE = rt.action("verify negotiable", func(ctx context.Context, cmd *cobra.Command, _ []string, run *engine.Run, rep *report) error {
		inst.PromiseType = models.PromiseType(promise)
		inst.AmountType = models.AmountType(amountType)
		inst.PayableTo = models.Payee(payee)
		inst.Timing = models.Timing(timing)
		return invoke(ctx, cmd, run, rep, tools.VerifyNegotiability, inst)
	})
	return cmd
}

func newScanClauseCmd(rt *app) *cobra.Command {
	var docType, file string
	cmd := &cobra.Command{
		Use:   "scan-clause [text]",
		Short: "Scan contract text for clause risks",
		Long: `Scan contract text for risky clauses.

Text is taken from the argument, from --file, or from stdin when the
argument is "-".`,
		Example: `  arbiter scan-clause "Borrower shall pay a penalty of 5% for late payment." --doc-type promissory_note
  cat lease.txt | arbiter scan-clause -`,
		Args: cobra.MaximumNArgs(1),
	}
	cmd.Flags().StringVar(&docType, "doc-type", "", "Document type, e.g. promissory_note")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read clause text from a file")
	cmd.RunE = rt.action("scan-clause", func(ctx context.Context, cmd *cobra.Command, args []string, run *engine.Run, rep *report) error {
		text, err := clauseText(cmd.InOrStdin(), args, file)
		if err != nil {
			return err
		}
		return invoke(ctx, cmd, run, rep, tools.ScanClause, map[string]any{
			"clause_text":   text,
			"document_type": docType,
		})
	})
	return cmd
}

func clauseText(stdin io.Reader, args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", usageErr(errors.New("pass clause text or --file, not both"))
	case file != "":
		// #nosec G304 -- path is operator-provided.
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read clause file: %w", err)
		}
		return string(data), nil
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	}
	return "", usageErr(errors.New("no clause text provided"))
}

func newDraftCmd(rt *app) *cobra.Command {
	var (
		sets   []string
		output string
	)
	cmd := &cobra.Command{
		Use:   "draft <form-type> [--set key=value ...]",
		Short: "Draft a form after its governing rule passes",
		Long: fmt.Sprintf(`Draft a legal form. The form is only generated when its governing rule
passes; otherwise the document carries a GENERATION BLOCKED notice.

Form types: %s`, formTypeList()),
		Example: `  arbiter draft security_agreement_ucc --set collateral="2019 Ford F-150, VIN 1FTEW1E55KFA00000"
  arbiter draft promissory_note --set principal=5000 --set maker="Acme LLC" -o note.txt`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Form field as key=value (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Also write the document text to this file")
	cmd.RunE = rt.action("draft", func(ctx context.Context, cmd *cobra.Command, args []string, run *engine.Run, rep *report) error {
		data, err := parseSets(sets)
		if err != nil {
			return err
		}
		out, err := invokeOutcome(ctx, cmd, run, rep, tools.DraftVerifiedForm, models.FormRequest{
			FormType: models.FormType(args[0]),
			Data:     data,
		})
		form, ok := out.Output.(models.FormResult)
		if output != "" && ok {
			// blocked notices are written too
			if werr := os.WriteFile(output, []byte(form.DocumentText), 0o644); werr != nil {
				return errors.Join(err, fmt.Errorf("failed to write document: %w", werr))
			}
		}
		return err
	})
	return cmd
}

// parseSets turns key=value pairs into form data. Values that parse as
// numbers or booleans keep that type.
func parseSets(sets []string) (map[string]any, error) {
	data := make(map[string]any, len(sets))
	for _, kv := range sets {
		key, val, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, usageErr(fmt.Errorf("invalid --set %q: want key=value", kv))
		}
		data[key] = scalar(val)
	}
	return data, nil
}

// scalar keeps zero-padded and hex-looking values such as ZIP codes and
// account numbers as strings.
func scalar(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

func formTypeList() string {
	names := make([]string, len(models.FormTypes))
	for i, ft := range models.FormTypes {
		names[i] = string(ft)
	}
	return strings.Join(names, ", ")
}

func newStatuteCmd(rt *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statute <query>",
		Short: "Look up a statute in the law library",
		Example: `  arbiter statute ucc_9_108
  arbiter statute irc_162`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.RunE = rt.action("statute", func(ctx context.Context, cmd *cobra.Command, args []string, run *engine.Run, rep *report) error {
		return invoke(ctx, cmd, run, rep, tools.ConsultStatute, map[string]any{
			"query": strings.Join(args, " "),
		})
	})
	return cmd
}
