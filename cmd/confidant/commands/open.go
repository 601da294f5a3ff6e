package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"confidant/internal/app"
	"confidant/internal/crypto"
	"confidant/internal/domain"
	"confidant/internal/protocol/envelope"
	"confidant/internal/store"
)

// open-request: the node side. Decrypt an envelope with a saved node key and
// optionally seal a reply to it.
func openRequestCmd(e *state) *cobra.Command {
	var (
		keyPath string
		in      string
		reply   string
	)
	cmd := &cobra.Command{
		Use:   "open-request",
		Short: "Open an envelope with a node key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			suite, kp, err := store.LoadKeyPair(keyPath)
			if err != nil {
				return err
			}
			defer crypto.Wipe(kp.Private)
			ka, aead, err := app.Suites(suite, e.cfg.Cipher)
			if err != nil {
				return err
			}
			node, err := envelope.NewNode(ka, aead, kp)
			if err != nil {
				return err
			}

			raw, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			env, err := decodeEnvelope(raw)
			if err != nil {
				return err
			}
			plaintext, secret, err := node.OpenRequest(env)
			if err != nil {
				return err
			}
			defer crypto.Wipe(secret.Slice())

			if reply == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(plaintext))
				return err
			}
			resp, err := node.SealResponse(secret, []byte(reply))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	f := cmd.Flags()
	f.StringVar(&keyPath, "key", "", "node keypair file written by keygen --out")
	f.StringVarP(&in, "in", "i", "-", "envelope JSON file, - for stdin")
	f.StringVar(&reply, "reply", "", "seal this JSON as the response instead of printing the request")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

// open-response: decrypt a sealed reply with the keys recorded by seal.
func openResponseCmd(e *state) *cobra.Command {
	var (
		session     string
		correlation string
		in          string
	)
	cmd := &cobra.Command{
		Use:   "open-response",
		Short: "Open a sealed reply with the recorded keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := e.wire()
			if err != nil {
				return err
			}
			defer w.Close()
			if w.Keys == nil {
				return fmt.Errorf("backend %q only works behind serve", e.cfg.Store.Backend)
			}

			raw, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			var resp domain.ResponseEnvelope
			if err := json.Unmarshal(raw, &resp); err != nil {
				return fmt.Errorf("response is not JSON: %w", err)
			}
			key := domain.RecordKey{
				Session:     domain.SessionID(session),
				Correlation: domain.CorrelationID(correlation),
			}
			plaintext, err := w.Sealer.OpenBytes(cmd.Context(), key, resp)
			if err != nil {
				return err
			}
			defer crypto.Wipe(plaintext)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(plaintext))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&session, "session", "", "session id printed by seal")
	f.StringVar(&correlation, "correlation", "", "correlation id printed by seal")
	f.StringVarP(&in, "in", "i", "-", "response JSON file, - for stdin")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("correlation")
	return cmd
}

// decodeEnvelope accepts either a bare envelope or the output of seal.
func decodeEnvelope(raw []byte) (domain.Envelope, error) {
	var wrapped sealOutput
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Envelope.Ciphertext != "" {
		return wrapped.Envelope, nil
	}
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Envelope{}, fmt.Errorf("envelope is not JSON: %w", err)
	}
	return env, nil
}
