package cli

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/config"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/engine"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/evidence"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/ledger"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/logging"
)

func newLedgerCmd(rt *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect, export or reset the audit ledger",
		Long: `Inspect, export or reset the audit ledger.

The ledger only outlives a single command when it is persisted with
--ledger-db or ledger.driver=sqlite in the config file.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// cobra runs only the nearest PersistentPreRunE
			if err := rt.setup(cmd); err != nil {
				return err
			}
			if rt.cfg.Ledger.Driver != config.DriverSQLite {
				logging.From(cmd.Context()).Warn("ledger", "ledger is in-memory; pass --ledger-db to inspect a persisted ledger")
			}
			return nil
		},
	}
	cmd.AddCommand(newLedgerShowCmd(rt), newLedgerResetCmd(rt), newLedgerVerifyCmd(rt), newLedgerExportCmd(rt))
	return cmd
}

func newLedgerShowCmd(rt *app) *cobra.Command {
	var (
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print audit entries, newest first",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n entries (0 for all)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or text")
	cmd.RunE = rt.action("ledger show", func(_ context.Context, cmd *cobra.Command, _ []string, _ *engine.Run, _ *report) error {
		if format != "text" && format != "json" {
			return usageErr(fmt.Errorf("invalid format: %s (use text or json)", format))
		}
		if limit < 0 {
			return usageErr(fmt.Errorf("invalid limit: %d", limit))
		}

		entries := rt.engine.Ledger().Entries()
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}

		if format == "json" {
			return printJSON(cmd, entries)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIMESTAMP\tSOURCE\tSTATUS\tACTION\tHASH\tDETAILS")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Source, e.Status, e.Action, e.Hash, e.Details)
		}
		return tw.Flush()
	})
	return cmd
}

func newLedgerResetCmd(rt *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset --yes",
		Short: "Clear the ledger, leaving a single System Reset entry",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	cmd.RunE = rt.action("ledger reset", func(ctx context.Context, cmd *cobra.Command, _ []string, _ *engine.Run, rep *report) error {
		if !yes {
			return usageErr(errors.New("ledger reset discards every entry; pass --yes to confirm"))
		}
		led := rt.engine.Ledger()
		before := led.Len()
		if err := led.Reset(); err != nil {
			return fmt.Errorf("failed to reset ledger: %w", err)
		}
		entries := led.Entries()
		rep.entryIDs = append(rep.entryIDs, entries[0].ID)
		logging.From(ctx).Event(ctx, "ledger.reset", map[string]any{"discarded": before})
		return printJSON(cmd, entries[0])
	})
	return cmd
}

// verifyReport is the output of `ledger verify`.
type verifyReport struct {
	Entries    int      `json:"entries"`
	Mismatched []string `json:"mismatched,omitempty"`
}

func newLedgerVerifyCmd(rt *app) *cobra.Command {
	var bundle, publicKey string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute every entry hash, or check an evidence bundle",
		Long: `Recompute every entry hash and list entries whose stored hash no longer
matches their content.

With --bundle, verify an evidence bundle written by 'ledger export' instead:
manifest digests, entry hashes and, for signed bundles, the signature. Pass
--public-key to verify against a trusted key rather than the bundled one.

Exits 1 on any mismatch.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&bundle, "bundle", "", "Evidence bundle to verify")
	cmd.Flags().StringVar(&publicKey, "public-key", "", "Trusted public key for bundle signatures")
	cmd.RunE = rt.action("ledger verify", func(ctx context.Context, cmd *cobra.Command, _ []string, _ *engine.Run, _ *report) error {
		if bundle != "" {
			return verifyBundle(ctx, cmd, bundle, publicKey)
		}
		if publicKey != "" {
			return usageErr(errors.New("--public-key requires --bundle"))
		}
		entries := rt.engine.Ledger().Entries()
		out := verifyReport{Entries: len(entries)}
		for _, e := range entries {
			if err := ledger.Verify(e); err != nil {
				if !errors.Is(err, ledger.ErrHashMismatch) {
					return err
				}
				out.Mismatched = append(out.Mismatched, e.ID)
			}
		}
		if err := printJSON(cmd, out); err != nil {
			return err
		}
		if len(out.Mismatched) > 0 {
			return ErrVerdictFailed
		}
		return nil
	})
	return cmd
}

func verifyBundle(ctx context.Context, cmd *cobra.Command, path, publicKey string) error {
	var trusted ed25519.PublicKey
	if publicKey != "" {
		pub, err := evidence.LoadPublicKey(publicKey)
		if err != nil {
			return usageErr(err)
		}
		trusted = pub
	}

	// #nosec G304 -- path is operator-provided.
	f, err := os.Open(path)
	if err != nil {
		return usageErr(fmt.Errorf("failed to open bundle: %w", err))
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	rep, err := evidence.VerifyBundle(f, info.Size(), trusted)
	if err != nil {
		return err
	}
	if rep.KeySource == "bundle" {
		logging.From(ctx).Warn("ledger", "signature checked against the bundled public key; pass --public-key to verify authorship")
	}
	if err := printJSON(cmd, rep); err != nil {
		return err
	}
	if !rep.OK() {
		return ErrVerdictFailed
	}
	return nil
}

func newLedgerExportCmd(rt *app) *cobra.Command {
	var output, signKey string
	cmd := &cobra.Command{
		Use:   "export -o <bundle.zip>",
		Short: "Write the ledger to an evidence bundle",
		Long: `Write the ledger, the gate policy in force and a SHA-256 manifest to a
deterministic zip bundle. With --sign-key the canonical ledger is signed with
an ed25519 key created by 'arbiter keygen'.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Bundle path (required)")
	cmd.Flags().StringVar(&signKey, "sign-key", "", "Private key to sign the ledger with")
	cmd.RunE = rt.action("ledger export", func(ctx context.Context, cmd *cobra.Command, _ []string, _ *engine.Run, _ *report) error {
		if output == "" {
			return usageErr(errors.New("--output is required"))
		}
		opts := evidence.Options{Entries: rt.engine.Ledger().Entries()}
		if signKey != "" {
			key, err := evidence.LoadPrivateKey(signKey)
			if err != nil {
				return usageErr(err)
			}
			opts.PrivateKey = key
		}
		src, err := rt.policySource()
		if err != nil {
			return err
		}
		opts.Policy = src

		manifest, err := evidence.ExportFile(output, opts)
		if err != nil {
			return err
		}
		logging.From(ctx).Event(ctx, "ledger.export", map[string]any{
			"path":    output,
			"entries": manifest.Entries,
			"signed":  manifest.Signed,
		})
		return printJSON(cmd, manifest)
	})
	return cmd
}
