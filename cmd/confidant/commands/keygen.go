package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"confidant/internal/app"
	"confidant/internal/crypto"
	"confidant/internal/store"
)

// keygen: generate a keypair and either save it or print it.
func keygenCmd(e *state) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a keypair for the configured suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ka, _, err := app.Suites(e.cfg.Suite, e.cfg.Cipher)
			if err != nil {
				return err
			}
			kp, err := ka.GenerateKeyPair()
			if err != nil {
				return err
			}
			defer crypto.Wipe(kp.Private)

			if out != "" {
				if err := store.SaveKeyPair(out, ka.Name(), kp); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "public key:  %s\nfingerprint: %s\n",
					crypto.B64(kp.Public), crypto.Fingerprint(kp.Public))
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]string{
				"suite":      ka.Name(),
				"privateKey": crypto.B64(kp.Private),
				"publicKey":  crypto.B64(kp.Public),
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the keypair to this file (0600)")
	return cmd
}
