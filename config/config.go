// Package config loads and validates worklog's configuration.
//
// Configuration lives in worklog.yaml under the config directory (see the
// paths package). A missing file is not an error — every field has a usable
// default — but a present file that fails validation is rejected before any
// analysis work starts.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zhubert/worklog-core/paths"
)

// Defaults applied when worklog.yaml is absent or leaves a field unset.
const (
	// DefaultContextWindow is assumed for token_usage records that predate
	// window reporting.
	DefaultContextWindow = 200000
	// DefaultTitleMaxLen bounds titles derived from user messages.
	DefaultTitleMaxLen = 120
)

// Summarizer choices for discussion-point generation.
const (
	SummarizerStatic = "static"
	SummarizerClaude = "claude"
)

// Config holds the application configuration.
type Config struct {
	// SessionRoot overrides the host agent's session-log directory.
	// Takes precedence over the WORKLOG_SESSION_ROOT env var.
	SessionRoot string `yaml:"session_root,omitempty"`

	// ContextWindow is the fallback token budget for usage records
	// that omit a window.
	ContextWindow int `yaml:"context_window,omitempty"`

	// TitleMaxLen bounds session titles derived from user messages.
	TitleMaxLen int `yaml:"title_max_len,omitempty"`

	// Summarizer selects the discussion-point collaborator: "static"
	// (leading user messages) or "claude" (claude --print).
	Summarizer string `yaml:"summarizer,omitempty"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug,omitempty"`

	filePath string
}

// Load reads worklog.yaml from disk, or returns defaults if it doesn't exist.
func Load() (*Config, error) {
	path, err := paths.ConfigFilePath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from an explicit path. Used by tests and by
// callers that manage their own layout.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{filePath: path}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Re-fill anything the file explicitly zeroed.
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ContextWindow == 0 {
		c.ContextWindow = DefaultContextWindow
	}
	if c.TitleMaxLen == 0 {
		c.TitleMaxLen = DefaultTitleMaxLen
	}
	if c.Summarizer == "" {
		c.Summarizer = SummarizerStatic
	}
}

// Validate checks the configuration for values that would make analysis
// meaningless. Called by Load before the config is handed out.
func (c *Config) Validate() error {
	if c.ContextWindow < 0 {
		return fmt.Errorf("context_window must not be negative, got %d", c.ContextWindow)
	}
	if c.TitleMaxLen < 0 {
		return fmt.Errorf("title_max_len must not be negative, got %d", c.TitleMaxLen)
	}
	switch c.Summarizer {
	case SummarizerStatic, SummarizerClaude:
	default:
		return fmt.Errorf("unknown summarizer %q (want %q or %q)", c.Summarizer, SummarizerStatic, SummarizerClaude)
	}
	return nil
}

// ResolveSessionRoot returns the session-log root to use: the config file
// override if set, otherwise the environment/default resolution from paths.
func (c *Config) ResolveSessionRoot() (string, error) {
	if c.SessionRoot != "" {
		return c.SessionRoot, nil
	}
	return paths.SessionRoot()
}

// Save writes the config back to its file, creating the directory as needed.
func (c *Config) Save() error {
	if c.filePath == "" {
		path, err := paths.ConfigFilePath()
		if err != nil {
			return err
		}
		c.filePath = path
	}

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filePath, data, 0644)
}
