package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"confidant/internal/crypto"
	"confidant/internal/domain"
	"confidant/internal/protocol/envelope"
	"confidant/internal/store"
)

// sealOutput is what seal prints: the envelope plus the record key needed
// to open the reply later.
type sealOutput struct {
	Session     domain.SessionID     `json:"session"`
	Correlation domain.CorrelationID `json:"correlation"`
	Envelope    domain.Envelope      `json:"envelope"`
}

// seal: seal a chat request read from a file or stdin.
func sealCmd(e *state) *cobra.Command {
	var (
		nodeKey string
		stack   int64
		model   string
		session string
		in      string
	)
	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Seal a chat request for a node and print the envelope",
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
			if _, ok := w.Keys.(*store.MemoryKeyStore); ok {
				e.log.Warn("memory backend: the recorded keys end with this process; use --backend badger to open the reply later")
			}

			pub, err := crypto.FromB64(nodeKey)
			if err != nil {
				return fmt.Errorf("--node-key: %w", err)
			}
			body, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			if !json.Valid(body) {
				return fmt.Errorf("request is not JSON")
			}
			if model == "" {
				model = e.cfg.Model
			}
			if session == "" {
				session = "cli-" + uuid.NewString()
			}

			env, key, err := w.Sealer.Build(cmd.Context(), domain.SessionID(session),
				json.RawMessage(body), pub, stack, model)
			if err != nil {
				return err
			}
			if err := envelope.Validate(env, w.KA, w.AEAD); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sealOutput{
				Session:     key.Session,
				Correlation: key.Correlation,
				Envelope:    env,
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&nodeKey, "node-key", "", "node public key, base64")
	f.Int64Var(&stack, "stack", 0, "routing id of the node (stackSmallId)")
	f.StringVar(&model, "model", "", "model name (default from config)")
	f.StringVar(&session, "session", "", "session id (default random)")
	f.StringVarP(&in, "in", "i", "-", "request JSON file, - for stdin")
	_ = cmd.MarkFlagRequired("node-key")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
