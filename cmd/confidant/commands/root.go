package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"confidant/internal/app"
	"confidant/internal/logging"
)

type rootFlags struct {
	config   string
	home     string
	endpoint string
	apiKey   string
	backend  string
	logLevel string
}

// state holds what the root command resolved for its subcommands.
type state struct {
	flags rootFlags
	cfg   app.Config
	log   *slog.Logger
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRoot(os.Getenv).Execute()
}

// NewRoot builds the command tree. getenv supplies environment overrides.
func NewRoot(getenv func(string) string) *cobra.Command {
	e := &state{}
	root := &cobra.Command{
		Use:           "confidant",
		Short:         "Confidential chat requests to a remote inference node",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.load(cmd.ErrOrStderr(), getenv)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.flags.config, "config", "", "config file (default ~/.confidant/config.yaml)")
	pf.StringVar(&e.flags.home, "home", "", "state dir (default ~/.confidant)")
	pf.StringVar(&e.flags.endpoint, "endpoint", "", "inference endpoint base URL")
	pf.StringVar(&e.flags.apiKey, "api-key", "", "bearer token for the inference endpoint")
	pf.StringVar(&e.flags.backend, "backend", "", "session key store: memory, badger or cookie")
	pf.StringVar(&e.flags.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		serveCmd(e),
		chatCmd(e),
		keygenCmd(e),
		sealCmd(e),
		openRequestCmd(e),
		openResponseCmd(e),
	)
	return root
}

func (e *state) load(stderr io.Writer, getenv func(string) string) error {
	level, err := logging.ParseLevel(e.flags.logLevel)
	if err != nil {
		return err
	}
	boot := logging.New(level, stderr)

	path := e.flags.config
	if path == "" {
		path = app.DefaultPath()
	}
	cfg, err := app.Load(path, boot)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(getenv)

	if e.flags.home != "" {
		cfg.Home = e.flags.home
	}
	if e.flags.endpoint != "" {
		cfg.Endpoint = e.flags.endpoint
	}
	if e.flags.apiKey != "" {
		cfg.APIKey = e.flags.apiKey
	}
	if e.flags.backend != "" {
		cfg.Store.Backend = strings.ToLower(e.flags.backend)
	}
	if e.flags.logLevel != "" {
		cfg.LogLevel = e.flags.logLevel
	}

	if level, err = logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return fmt.Errorf("home: %w", err)
	}
	e.cfg = cfg
	e.log = logging.New(level, stderr)
	return nil
}

func (e *state) wire() (*app.Wire, error) {
	return app.NewWire(e.cfg, e.log)
}
