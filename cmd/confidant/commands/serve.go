package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"confidant/internal/app"
	"confidant/internal/httpapi"
	"confidant/internal/store"
)

// serve: run the chat API until interrupted.
func serveCmd(e *state) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				e.cfg.Listen = listen
			}
			w, err := e.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if mem, ok := w.Keys.(*store.MemoryKeyStore); ok {
				go mem.RunJanitor(ctx, e.cfg.Store.SweepInterval, e.log)
			}

			srv := httpapi.New(w.Chat, httpapi.Options{
				Cookies:      cookiesFor(w.Config.Store.Backend, w.Cookies),
				TTL:          e.cfg.Store.TTL,
				SecureCookie: e.cfg.CookieSecure,
			}, e.log.With("component", "http"))
			return httpapi.ListenAndServe(ctx, e.cfg.Listen, srv.Handler(), e.log)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default :3000)")
	return cmd
}

func cookiesFor(backend string, codec *store.CookieCodec) *store.CookieCodec {
	if backend == app.BackendCookie {
		return codec
	}
	return nil
}
