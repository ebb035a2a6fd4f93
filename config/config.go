// Package config is the server's YAML configuration layer, with
// environment-variable substitution and an fsnotify-driven hot-reload
// watcher. Grounded on JeelKantaria-db-bouncer's internal/config package:
// same Load/applyDefaults/validate/Watcher shape, fields renamed to this
// server's domain.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config is the top-level minipgd configuration.
type Config struct {
	Listen  ListenConfig  `yaml:"listen"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ListenConfig controls the wire-protocol listener.
type ListenConfig struct {
	Address          string        `yaml:"address"`
	TLSCert          string        `yaml:"tls_cert"`
	TLSKey           string        `yaml:"tls_key"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// TLSEnabled reports whether both halves of a TLS keypair are configured.
func (lc ListenConfig) TLSEnabled() bool {
	return lc.TLSCert != "" && lc.TLSKey != ""
}

// StorageConfig selects and configures the kvstore.Backend.
type StorageConfig struct {
	// Engine is "memory" (default) or "sqlite".
	Engine string `yaml:"engine"`
	// Path is the SQLite database file; ignored for the memory engine.
	Path string `yaml:"path"`
}

// AuthConfig controls credential verification.
type AuthConfig struct {
	// Mode is "accept_any" (default) or "bcrypt".
	Mode             string            `yaml:"mode"`
	BcryptHashByUser map[string]string `yaml:"bcrypt_hash_by_user"`
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment
// variable values, leaving unmatched patterns untouched.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		if val, ok := os.LookupEnv(string(varName)); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads, env-substitutes, parses and validates the YAML config file
// at path, then applies defaults for anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading file: %w", err)
	}

	data = substituteEnvVars(data)

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validating: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Listen.Address == "" {
		cfg.Listen.Address = "0.0.0.0:5432"
	}
	if cfg.Listen.HandshakeTimeout == 0 {
		cfg.Listen.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Storage.Engine == "" {
		cfg.Storage.Engine = "memory"
	}
	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = "accept_any"
	}
	if cfg.Metrics.Bind == "" {
		cfg.Metrics.Bind = "127.0.0.1:9100"
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Engine {
	case "", "memory":
	case "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage: path is required when engine is sqlite")
		}
	default:
		return fmt.Errorf("storage: unsupported engine %q (must be memory or sqlite)", cfg.Storage.Engine)
	}

	switch cfg.Auth.Mode {
	case "", "accept_any":
	case "bcrypt":
		if len(cfg.Auth.BcryptHashByUser) == 0 {
			return fmt.Errorf("auth: bcrypt_hash_by_user must be non-empty when mode is bcrypt")
		}
	default:
		return fmt.Errorf("auth: unsupported mode %q (must be accept_any or bcrypt)", cfg.Auth.Mode)
	}

	return nil
}

// Watcher watches the config file for changes and invokes callback with
// the freshly reloaded Config. A failed reload is logged and the
// previous configuration remains in effect.
type Watcher struct {
	path     string
	callback func(*Config)
	watcher  *fsnotify.Watcher
	log      *slog.Logger
	mu       sync.Mutex
	stopCh   chan struct{}
}

// NewWatcher starts watching path in the background. logger defaults to
// slog.Default() when nil.
func NewWatcher(path string, logger *slog.Logger, callback func(*Config)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating file watcher: %w", err)
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config: watching file: %w", err)
	}

	cw := &Watcher{
		path:     path,
		callback: callback,
		watcher:  w,
		log:      logger,
		stopCh:   make(chan struct{}),
	}

	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, cw.reload)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.log.Error("config watcher error", slog.Any("err", err))
		case <-cw.stopCh:
			return
		}
	}
}

func (cw *Watcher) reload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cfg, err := Load(cw.path)
	if err != nil {
		cw.log.Error("config hot-reload failed", slog.Any("err", err))
		return
	}

	cw.log.Info("configuration reloaded", slog.String("path", cw.path))
	cw.callback(cfg)
}

// Stop stops the watcher and releases the underlying inotify handle.
func (cw *Watcher) Stop() error {
	close(cw.stopCh)
	return cw.watcher.Close()
}
