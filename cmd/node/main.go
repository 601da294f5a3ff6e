package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"confidant/internal/app"
	"confidant/internal/crypto"
	"confidant/internal/devnode"
	"confidant/internal/httpapi"
	"confidant/internal/logging"
	"confidant/internal/protocol/envelope"
	"confidant/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		listen   string
		keyPath  string
		stack    int64
		apiKey   string
		suite    string
		cipher   string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:          "node",
		Short:        "Development inference node",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log := logging.New(level, cmd.ErrOrStderr())

			ka, aead, err := app.Suites(suite, cipher)
			if err != nil {
				return err
			}
			if keyPath == "" {
				keyPath = filepath.Join(app.DefaultHome(), "node_key.json")
			}
			if apiKey == "" {
				apiKey = os.Getenv(app.EnvAPIKey)
			}
			kp, created, err := store.LoadOrCreateKeyPair(keyPath, ka)
			if err != nil {
				return err
			}
			node, err := envelope.NewNode(ka, aead, kp)
			if err != nil {
				return err
			}
			log.Info("node key",
				"path", keyPath,
				"created", created,
				"suite", ka.Name(),
				"cipher", aead.Name(),
				"public", crypto.B64(kp.Public),
				"fingerprint", crypto.Fingerprint(kp.Public),
				"stack", stack)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := devnode.New(node, stack, apiKey, log)
			return httpapi.ListenAndServe(ctx, listen, logging.AccessLog(log, srv), log)
		},
	}
	f := cmd.Flags()
	f.StringVar(&listen, "listen", ":8080", "listen address")
	f.StringVar(&keyPath, "key", "", "node keypair file (default ~/.confidant/node_key.json)")
	f.Int64Var(&stack, "stack", 1, "routing id announced as stackSmallId")
	f.StringVar(&apiKey, "api-key", "", "require this bearer token (default $"+app.EnvAPIKey+")")
	f.StringVar(&suite, "suite", "x25519", "key agreement: x25519 or p256")
	f.StringVar(&cipher, "cipher", "aes-256-gcm", "AEAD: aes-256-gcm or chacha20-poly1305")
	f.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}
