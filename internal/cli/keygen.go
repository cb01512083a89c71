package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/engine"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/evidence"
)

func newKeygenCmd(rt *app) *cobra.Command {
	var privateKey, publicKey string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 key pair for signing evidence bundles",
		Long: `Generate an ed25519 key pair in PEM form. Existing files are never
overwritten. The private key is written with mode 0600.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&privateKey, "private-key", "arbiter.key", "Private key output path")
	cmd.Flags().StringVar(&publicKey, "public-key", "arbiter.pub", "Public key output path")
	cmd.RunE = rt.action("keygen", func(_ context.Context, cmd *cobra.Command, _ []string, _ *engine.Run, _ *report) error {
		if err := evidence.GenerateKeys(privateKey, publicKey); err != nil {
			return err
		}
		pub, err := evidence.LoadPublicKey(publicKey)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s (key id %s)\n", privateKey, publicKey, evidence.KeyID(pub))
		return nil
	})
	return cmd
}
