package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/engine"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

// toolInfo is one row of `arbiter tools`.
type toolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Source      models.Source   `json:"source"`
	Gated       bool            `json:"gated"`
	Schema      json.RawMessage `json:"input_schema,omitempty"`
}

func newToolsCmd(rt *app) *cobra.Command {
	var (
		format      string
		withSchemas bool
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&withSchemas, "schemas", false, "Include JSON input schemas (json format only)")
	cmd.RunE = rt.action("tools", func(_ context.Context, cmd *cobra.Command, _ []string, _ *engine.Run, _ *report) error {
		if format != "text" && format != "json" {
			return usageErr(fmt.Errorf("invalid format: %s (use text or json)", format))
		}

		gated := rt.engine.Gate().GatedTools()
		var infos []toolInfo
		for _, t := range rt.engine.Registry().Tools() {
			info := toolInfo{
				Name:        t.Name,
				Description: t.Description,
				Source:      t.Source,
				Gated:       slices.Contains(gated, t.Name),
			}
			if withSchemas {
				info.Schema = t.Schema()
			}
			infos = append(infos, info)
		}

		if format == "json" {
			return printJSON(cmd, infos)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSOURCE\tGATED\tDESCRIPTION")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", info.Name, info.Source, info.Gated, info.Description)
		}
		return tw.Flush()
	})
	return cmd
}
