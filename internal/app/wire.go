package app

import (
	"fmt"
	"log/slog"
	"os"

	"confidant/internal/domain"
	"confidant/internal/inference"
	"confidant/internal/protocol/envelope"
	"confidant/internal/services/chat"
	"confidant/internal/store"
)

// Wire bundles the capabilities, stores and services built from a Config.
type Wire struct {
	Config    Config
	Log       *slog.Logger
	KA        domain.KeyAgreement
	AEAD      domain.AEAD
	Keys      domain.SessionKeyStore // nil for the cookie backend
	Cookies   *store.CookieCodec     // nil unless a session secret is set; seals badger values too
	Inference *inference.HTTP
	Sealer    *envelope.Sealer
	Chat      *chat.Service

	closers []func() error
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, log *slog.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ka, aead, err := Suites(cfg.Suite, cfg.Cipher)
	if err != nil {
		return nil, err
	}
	w := &Wire{Config: cfg, Log: log, KA: ka, AEAD: aead}

	if cfg.SessionSecret != "" {
		if w.Cookies, err = store.NewCookieCodec(cfg.SessionSecret); err != nil {
			return nil, err
		}
	}

	switch cfg.Store.Backend {
	case BackendMemory:
		w.Keys = store.NewMemoryKeyStore(cfg.Store.TTL)
	case BackendBadger:
		dir := cfg.BadgerDir()
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("badger dir: %w", err)
		}
		db, err := store.OpenBadgerKeyStore(dir, w.Cookies, cfg.Store.TTL)
		if err != nil {
			return nil, err
		}
		w.Keys = db
		w.closers = append(w.closers, db.Close)
	case BackendCookie:
		// bound per request by the HTTP layer
	}

	w.Inference = inference.NewHTTP(cfg.Endpoint, cfg.APIKey)
	w.Sealer = envelope.NewSealer(ka, aead, w.Keys, envelope.WithLogger(log.With("component", "envelope")))
	w.Chat = chat.New(w.Inference, w.Sealer, chat.Options{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, log.With("component", "chat"))

	log.Debug("wired",
		"backend", cfg.Store.Backend,
		"suite", ka.Name(),
		"cipher", aead.Name(),
		"endpoint", cfg.Endpoint,
		"ttl", cfg.Store.TTL)
	return w, nil
}

// Close releases stores that hold files open.
func (w *Wire) Close() error {
	var first error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	w.closers = nil
	return first
}
