package domain

import (
	_ "embed"
	"fmt"
	"path/filepath"
)

//go:embed config_template.toml
var configTemplateContent string

// DefaultLogLevel is used when no level is configured.
const DefaultLogLevel = "info"

// DefaultAgentCommand is the agent binary dispatched when the configuration
// names none. It speaks the line-delimited stream protocol on stdout when
// invoked with DefaultAgentStreamArgs.
const DefaultAgentCommand = "claude"

// DefaultAgentStreamArgs returns the arguments that put the default agent
// into non-interactive streaming mode, reading the prompt from stdin.
func DefaultAgentStreamArgs() []string {
	return []string{"-p", "--output-format", "stream-json", "--verbose"}
}

// Config represents the application configuration.
type Config struct {
	Agent AgentConfig `toml:"agent"`
	Log   LogConfig   `toml:"log"`
}

// AgentConfig holds agent invocation settings from the [agent] section.
type AgentConfig struct {
	Command string   `toml:"command,omitempty"` // Agent binary (default "claude")
	Model   string   `toml:"model,omitempty"`   // Model selection, passed as --model
	Args    []string `toml:"args,omitempty"`    // Extra arguments appended to the invocation
	Prompt  string   `toml:"prompt,omitempty"`  // Extra prompt appended to every dispatch
}

// LogConfig holds logging settings from the [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // debug, info, warn, error
}

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Command: DefaultAgentCommand,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Agent.Command == "" {
		return fmt.Errorf("agent command cannot be empty")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level: %q", c.Log.Level)
	}
}

// ConfigTemplate returns the commented configuration template written by
// config init.
func ConfigTemplate() string {
	return configTemplateContent
}

// GlobalConfigDir returns the configuration directory under configHome,
// which the caller resolves (XDG_CONFIG_HOME or ~/.config).
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, "deckhand")
}

// GlobalConfigPath returns the configuration file path.
func GlobalConfigPath(configHome string) string {
	return filepath.Join(GlobalConfigDir(configHome), ConfigFileName)
}
