// Package cli implements the arbiter command tree. Every command shares the
// state built in the root's PersistentPreRunE.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/version"
)

// ErrVerdictFailed is returned when a command completed but a verdict failed.
// The JSON result has already been printed.
var ErrVerdictFailed = errors.New("verdict failed")

// Exit codes.
const (
	ExitOK      = 0
	ExitFailed  = 1
	ExitUsage   = 2
	ExitBlocked = 3
)

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *app) {
	rt := &app{}

	root := &cobra.Command{
		Use:   "arbiter",
		Short: "Deterministic compliance verification for legal and tax workflows",
		Long: `arbiter: a deterministic compliance engine.

Verifies business expenses, negotiable instruments and contract clauses
against an embedded law library, drafts forms only after their governing
rule passes, and records every step in an append-only audit ledger.`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.setup(cmd)
		},
	}

	rt.bindFlags(root)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErr(err)
	})

	root.AddCommand(
		newVerifyCmd(rt),
		newScanClauseCmd(rt),
		newDraftCmd(rt),
		newStatuteCmd(rt),
		newToolsCmd(rt),
		newGateCmd(rt),
		newSessionCmd(rt),
		newLedgerCmd(rt),
		newServeCmd(rt),
		newKeygenCmd(rt),
	)
	return root, rt
}

// Execute runs the CLI and exits with a status code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes args and returns the process exit code. Shared state is closed
// here rather than in a post-run hook, which cobra skips on error.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, rt := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := rt.close(ctx); cerr != nil && err == nil {
		err = cerr
	}

	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrVerdictFailed):
		// result already on stdout
		return ExitFailed
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitCode(err)
}

func versionString() string {
	v := version.BuildVersion()
	if rev := version.Revision(); rev != "" {
		v += " (" + rev + ")"
	}
	return v
}
