package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"confidant/internal/domain"
)

// chat <message...>: one assistant turn from the command line.
func chatCmd(e *state) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "chat <message...>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := e.wire()
			if err != nil {
				return err
			}
			defer w.Close()
			if !plain && w.Keys == nil {
				return fmt.Errorf("backend %q only works behind serve", e.cfg.Store.Backend)
			}

			msgs := []domain.Message{{Role: "user", Content: strings.Join(args, " ")}}
			var reply domain.Message
			if plain {
				reply, err = w.Chat.Send(cmd.Context(), msgs)
			} else {
				session := domain.SessionID("cli-" + uuid.NewString())
				reply, err = w.Chat.SendConfidential(cmd.Context(), session, msgs)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "skip the confidential envelope")
	return cmd
}
