// Package config resolves deckhand's effective configuration from
// defaults, the TOML config file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Environment variables recognized by the loader.
const (
	EnvConfigPath = "DECKHAND_CONFIG"
	EnvAgentBin   = "DECKHAND_AGENT_BIN"
	EnvAgentModel = "DECKHAND_AGENT_MODEL"
	EnvLogLevel   = "DECKHAND_LOG_LEVEL"
)

// Loader loads configuration from a TOML file, merged over defaults, with
// environment overrides applied last.
type Loader struct {
	path string
}

// NewLoader creates a Loader reading from the default config location.
func NewLoader() *Loader {
	return &Loader{path: DefaultPath()}
}

// NewLoaderWithPath creates a Loader reading from an explicit file.
// This is useful for testing.
func NewLoaderWithPath(path string) *Loader {
	return &Loader{path: path}
}

// DefaultPath resolves the configuration file location: $DECKHAND_CONFIG if
// set, else $XDG_CONFIG_HOME/deckhand/config.toml, else
// ~/.config/deckhand/config.toml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigPath(configHome)
}

// Path returns the file the loader reads from.
func (l *Loader) Path() string {
	return l.path
}

// Load returns the effective configuration. A missing file is not an error;
// the defaults apply. The merged result is validated before being returned.
func (l *Loader) Load() (*domain.Config, error) {
	cfg := domain.NewDefaultConfig()

	if l.path != "" {
		if err := l.loadFile(cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFile overlays the file's values onto cfg. Fields absent from the file
// keep their current values.
func (l *Loader) loadFile(cfg *domain.Config) error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", l.path, err)
	}
	return nil
}

// applyEnv applies environment overrides for the settings an operator most
// often varies per invocation.
func applyEnv(cfg *domain.Config) {
	if v := os.Getenv(EnvAgentBin); v != "" {
		cfg.Agent.Command = v
	}
	if v := os.Getenv(EnvAgentModel); v != "" {
		cfg.Agent.Model = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}
