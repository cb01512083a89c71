package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/engine"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/server"
)

func newServeCmd(rt *app) *cobra.Command {
	var (
		callRate  float64
		callBurst int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over JSON-RPC on stdin/stdout",
		Long: `Serve the compliance tools to an orchestrator as newline-delimited
JSON-RPC 2.0 on stdin/stdout. The whole connection is one run, so the gate
sees every verdict produced on it.

Methods: initialize, ping, tools/list, tools/call, arbiter/history.
Logs go to stderr; use --log-format jsonl to see them.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().Float64Var(&callRate, "call-rate", 0, "Max tools/call per second (0 for unlimited)")
	cmd.Flags().IntVar(&callBurst, "call-burst", 5, "Burst allowed above --call-rate")
	cmd.RunE = rt.action("serve", func(ctx context.Context, cmd *cobra.Command, _ []string, run *engine.Run, _ *report) error {
		if callRate < 0 || callBurst < 1 {
			return usageErr(fmt.Errorf("invalid rate limit: --call-rate %g --call-burst %d", callRate, callBurst))
		}
		var opts []server.Option
		if callRate > 0 {
			opts = append(opts, server.WithCallRate(callRate, callBurst))
		}
		return server.New(rt.engine, opts...).ServeRun(ctx, run, cmd.InOrStdin(), cmd.OutOrStdout())
	})
	return cmd
}
