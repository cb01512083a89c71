package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/checker"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/config"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/engine"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/ledger"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/ledger/sqlstore"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/logging"
	otelobs "github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/otel"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/receipt"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/policy"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/tools"
)

const shutdownTimeout = 5 * time.Second

type globalFlags struct {
	configPath string

	logFormat string
	logLevel  string
	logOutput string

	otelEnabled     bool
	otelEndpoint    string
	otelProtocol    string
	otelInsecure    bool
	otelSampleRatio float64

	receiptPath string
	receiptMode string

	ledgerDB string
	policy   string
}

// app is the state shared by every command in one process.
type app struct {
	flags globalFlags

	cfg      config.Config
	engine   *engine.Engine
	store    *sqlstore.Store
	logger   logging.Logger
	otel     *otelobs.Handle
	receipts receipt.Writer
}

func (rt *app) bindFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.StringVar(&rt.flags.configPath, "config", "", "Path to arbiter YAML config")
	f.StringVar(&rt.flags.logFormat, "log-format", logging.FormatPretty, "Log format: pretty or jsonl")
	f.StringVar(&rt.flags.logLevel, "log-level", logging.LevelInfo, "Log level: debug, info, warn, error")
	f.StringVar(&rt.flags.logOutput, "log-output", "stderr", "Log output: stderr or a file path")
	f.BoolVar(&rt.flags.otelEnabled, "otel", false, "Enable OpenTelemetry tracing")
	f.StringVar(&rt.flags.otelEndpoint, "otel-endpoint", "", "OTLP endpoint (default from OTEL_EXPORTER_OTLP_ENDPOINT)")
	f.StringVar(&rt.flags.otelProtocol, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol: otlphttp or otlpgrpc")
	f.BoolVar(&rt.flags.otelInsecure, "otel-insecure", false, "Disable TLS for the OTLP exporter")
	f.Float64Var(&rt.flags.otelSampleRatio, "otel-sample-ratio", 1.0, "Trace sample ratio between 0 and 1")
	f.StringVar(&rt.flags.receiptPath, "receipt", "", "Write a command receipt to this path")
	f.StringVar(&rt.flags.receiptMode, "receipt-mode", string(receipt.ModeOverwrite), "Receipt mode: overwrite or append")
	f.StringVar(&rt.flags.ledgerDB, "ledger-db", "", "Persist the audit ledger in this SQLite database")
	f.StringVar(&rt.flags.policy, "policy", "", "Gate policy: preset name ("+strings.Join(policy.PresetNames(), ", ")+") or YAML path")
}

// applyFlags overlays explicitly set flags on cfg.
func (rt *app) applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	set := fs.Changed
	if set("log-format") {
		cfg.Log.Format = rt.flags.logFormat
	}
	if set("log-level") {
		cfg.Log.Level = rt.flags.logLevel
	}
	if set("log-output") {
		cfg.Log.Output = rt.flags.logOutput
	}
	if set("otel") {
		cfg.OTel.Enabled = rt.flags.otelEnabled
	}
	if set("otel-endpoint") {
		cfg.OTel.Endpoint = rt.flags.otelEndpoint
	}
	if set("otel-protocol") {
		cfg.OTel.Protocol = rt.flags.otelProtocol
	}
	if set("otel-insecure") {
		cfg.OTel.Insecure = rt.flags.otelInsecure
	}
	if set("otel-sample-ratio") {
		cfg.OTel.SampleRatio = rt.flags.otelSampleRatio
	}
	if set("receipt") {
		cfg.Receipt.Path = rt.flags.receiptPath
	}
	if set("receipt-mode") {
		cfg.Receipt.Mode = rt.flags.receiptMode
	}
	if set("ledger-db") {
		cfg.Ledger = config.LedgerConfig{Driver: config.DriverSQLite, DSN: rt.flags.ledgerDB}
	}
	if set("policy") {
		if _, err := policy.Preset(rt.flags.policy); err == nil {
			cfg.Gate = config.GateConfig{Preset: rt.flags.policy}
		} else {
			cfg.Gate = config.GateConfig{PolicyPath: rt.flags.policy}
		}
	}
}

func (rt *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if rt.flags.configPath != "" {
		loaded, err := config.Load(rt.flags.configPath)
		if err != nil {
			return usageErr(fmt.Errorf("failed to load config: %w", err))
		}
		cfg = loaded
	}
	rt.applyFlags(cmd.Flags(), &cfg)
	if err := cfg.Validate(); err != nil {
		return usageErr(err)
	}
	rt.cfg = cfg

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = observability.WithOpID(ctx)

	logger, err := logging.NewLogger(cfg.Logging())
	if err != nil {
		return usageErr(err)
	}
	rt.logger = logger
	ctx = logging.WithLogger(ctx, logger)

	if cfg.OTel.Enabled {
		tc := cfg.Tracing()
		tc.Attributes = map[string]string{
			"arbiter.gate.policy":   gatePolicyName(cfg.Gate),
			"arbiter.ledger.driver": cfg.Ledger.Driver,
		}
		h, err := otelobs.Init(ctx, tc)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		rt.otel = h
		ctx = otelobs.WithHandle(ctx, h)
	}

	if cfg.Receipt.Path != "" {
		w, err := receipt.NewWriter(cfg.Receipt.Path, cfg.Receipt.Mode)
		if err != nil {
			return err
		}
		rt.receipts = w
		ctx = receipt.WithWriter(ctx, w)
	}

	eng, err := rt.buildEngine(cfg)
	if err != nil {
		return err
	}
	rt.engine = eng

	cmd.SetContext(ctx)
	return nil
}

func (rt *app) buildEngine(cfg config.Config) (*engine.Engine, error) {
	reg, err := tools.NewRegistry(tools.Deps{})
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}
	gate, err := buildGate(cfg.Gate)
	if err != nil {
		return nil, usageErr(err)
	}
	led, err := rt.openLedger(cfg.Ledger)
	if err != nil {
		return nil, err
	}
	return engine.New(reg, gate, led)
}

func gatePolicyName(gc config.GateConfig) string {
	if gc.PolicyPath != "" {
		return gc.PolicyPath
	}
	return gc.Preset
}

func buildGate(gc config.GateConfig) (*policy.Gate, error) {
	var (
		cfg *models.GateConfig
		err error
	)
	if gc.PolicyPath != "" {
		cfg, err = policy.LoadFile(gc.PolicyPath)
	} else {
		cfg, err = policy.Preset(gc.Preset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load gate policy: %w", err)
	}
	return policy.NewGate(cfg)
}

func (rt *app) openLedger(lc config.LedgerConfig) (*ledger.Ledger, error) {
	if lc.Driver != config.DriverSQLite {
		return ledger.New(), nil
	}
	store, err := sqlstore.OpenSQLite(lc.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	rt.store = store
	led, err := ledger.Open(store)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return led, nil
}

// policySource returns the gate policy YAML in force.
func (rt *app) policySource() ([]byte, error) {
	if rt.cfg.Gate.PolicyPath != "" {
		data, err := os.ReadFile(rt.cfg.Gate.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy: %w", err)
		}
		return data, nil
	}
	return policy.PresetSource(rt.cfg.Gate.Preset)
}

// ledgerPath is recorded in receipts; empty for the in-memory ledger.
func (rt *app) ledgerPath() string {
	if rt.cfg.Ledger.Driver == config.DriverSQLite {
		return rt.cfg.Ledger.DSN
	}
	return ""
}

func (rt *app) close(ctx context.Context) error {
	var errs []error
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	if rt.receipts != nil {
		errs = append(errs, rt.receipts.Close())
	}
	if rt.otel != nil && rt.otel.Shutdown != nil {
		sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		errs = append(errs, rt.otel.Shutdown(sctx))
		cancel()
	}
	if rt.logger != nil {
		errs = append(errs, rt.logger.Close())
	}
	return errors.Join(errs...)
}

// report collects what a command produced for its receipt.
type report struct {
	verdicts []models.ValidationStep
	entryIDs []string
	gate     *policy.Decision
}

func (r *report) add(o engine.Outcome) {
	r.verdicts = append(r.verdicts, o.Verdict)
	if o.EntryID != "" {
		r.entryIDs = append(r.entryIDs, o.EntryID)
	}
}

type actionFunc func(ctx context.Context, cmd *cobra.Command, args []string, run *engine.Run, rep *report) error

// action wraps a command body with a run, a span, start/complete events and
// a receipt.
func (rt *app) action(name string, fn actionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		run := rt.engine.NewRun()
		ctx := observability.WithRunID(cmd.Context(), run.ID())

		sess := receipt.Start(ctx, "arbiter "+name, os.Args[1:])
		rep := &report{}
		defer func() {
			opts := []receipt.Option{
				receipt.WithVerdicts(rep.verdicts...),
				receipt.WithLedger(rt.ledgerPath(), rep.entryIDs...),
			}
			if rep.gate != nil {
				opts = append(opts, receipt.WithGate(rt.engine.Gate().Name(), rep.gate.Tool, rep.gate.Enabled, rep.gate.Reason))
			}
			_ = sess.Finish(err, opts...)
		}()

		ctx, endSpan := otelobs.StartSpan(ctx, strings.ReplaceAll(name, " ", "."),
			attribute.String(otelobs.AttrCommand, name))
		defer func() { endSpan(err) }()

		log := logging.From(ctx)
		start := time.Now()
		event := strings.ReplaceAll(name, " ", "_")
		log.Event(ctx, event+".start", nil)
		defer func() {
			result := "success"
			if err != nil {
				result = "fail"
			}
			log.Event(ctx, event+".complete", map[string]any{
				"duration_ms": time.Since(start).Milliseconds(),
				"result":      result,
				"verdicts":    len(rep.verdicts),
			})
		}()

		return fn(ctx, cmd, args, run, rep)
	}
}

// invoke calls one tool, prints the outcome and maps a failed verdict to
// ErrVerdictFailed.
func invoke(ctx context.Context, cmd *cobra.Command, run *engine.Run, rep *report, tool string, args any) error {
	_, err := invokeOutcome(ctx, cmd, run, rep, tool, args)
	return err
}

func invokeOutcome(ctx context.Context, cmd *cobra.Command, run *engine.Run, rep *report, tool string, args any) (engine.Outcome, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return engine.Outcome{}, err
	}
	out, err := run.Invoke(ctx, tool, raw)
	if err != nil {
		if errors.Is(err, engine.ErrToolDisabled) {
			d := run.Decide(tool)
			rep.gate = &d
		}
		return engine.Outcome{}, err
	}
	rep.add(out)
	if err := printJSON(cmd, out); err != nil {
		return out, err
	}
	if !out.Verdict.Passed {
		return out, ErrVerdictFailed
	}
	return out, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErr(err error) error { return &usageError{err: err} }

func exitCode(err error) int {
	var ue *usageError
	switch {
	case errors.As(err, &ue), errors.Is(err, checker.ErrInvalidArgument):
		return ExitUsage
	case errors.Is(err, engine.ErrToolDisabled):
		return ExitBlocked
	}
	return ExitFailed
}
