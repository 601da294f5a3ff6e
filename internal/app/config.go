package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"confidant/internal/services/chat"
	"confidant/internal/store"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendCookie = "cookie"
)

// Environment variables that override the file.
const (
	EnvSessionSecret = "CONFIDANT_SESSION_SECRET"
	EnvAPIKey        = "CONFIDANT_API_KEY"
	EnvEndpoint      = "CONFIDANT_ENDPOINT"
)

// StoreConfig selects and tunes the session key store.
type StoreConfig struct {
	Backend       string        `yaml:"backend"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	BadgerDir     string        `yaml:"badger_dir"`
}

// Config holds runtime options for the server and CLI.
type Config struct {
	Home          string      `yaml:"home"`
	Listen        string      `yaml:"listen"`
	Endpoint      string      `yaml:"endpoint"`
	APIKey        string      `yaml:"api_key"`
	SessionSecret string      `yaml:"session_secret"`
	CookieSecure  bool        `yaml:"cookie_secure"`
	Suite         string      `yaml:"suite"`
	Cipher        string      `yaml:"cipher"`
	Model         string      `yaml:"model"`
	MaxTokens     int         `yaml:"max_tokens"`
	Temperature   float64     `yaml:"temperature"`
	LogLevel      string      `yaml:"log_level"`
	Store         StoreConfig `yaml:"store"`
}

// DefaultHome returns ~/.confidant.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".confidant"
	}
	return filepath.Join(home, ".confidant")
}

// DefaultPath returns the default config file path.
func DefaultPath() string { return filepath.Join(DefaultHome(), "config.yaml") }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Home:        DefaultHome(),
		Listen:      ":3000",
		Endpoint:    "http://127.0.0.1:8080",
		Suite:       "x25519",
		Cipher:      "aes-256-gcm",
		Model:       chat.DefaultModel,
		MaxTokens:   chat.DefaultMaxTokens,
		Temperature: chat.DefaultTemperature,
		LogLevel:    "info",
		Store: StoreConfig{
			Backend:       BackendMemory,
			TTL:           store.DefaultTTL,
			SweepInterval: 30 * time.Second,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string, log *slog.Logger) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, err
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 && log != nil {
		log.Warn("config file is readable by others; it may hold secrets",
			"path", path, "mode", fmt.Sprintf("%04o", perm))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and the endpoint from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvSessionSecret); v != "" {
		c.SessionSecret = v
	}
	if v := getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendBadger, BackendCookie:
		// both seal key records under the session secret
		if len(c.SessionSecret) < store.MinSessionSecretBytes {
			return fmt.Errorf("config: %s backend: %w", c.Store.Backend, store.ErrWeakSessionSecret)
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < store.MinSessionSecretBytes {
		return fmt.Errorf("config: %w", store.ErrWeakSessionSecret)
	}
	if c.Store.TTL <= 0 {
		return errors.New("config: store ttl must be positive")
	}
	if c.Store.SweepInterval <= 0 {
		return errors.New("config: store sweep_interval must be positive")
	}
	if c.Endpoint == "" {
		return errors.New("config: endpoint is required")
	}
	if _, _, err := Suites(c.Suite, c.Cipher); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// BadgerDir returns the badger directory, defaulting under Home.
func (c Config) BadgerDir() string {
	if c.Store.BadgerDir != "" {
		return c.Store.BadgerDir
	}
	return filepath.Join(c.Home, "keys.badger")
}
