// Package config handles configuration loading and validation for grader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/colonyops/grader/internal/core/styles"
)

// Duration is a time.Duration that decodes from strings like "30s" in both
// YAML and TOML.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Config holds the application configuration.
type Config struct {
	Backend     BackendConfig  `yaml:"backend" toml:"backend"`
	ClassroomID int64          `yaml:"classroom_id" toml:"classroom_id"`
	Author      string         `yaml:"author" toml:"author"`
	Tree        TreeConfig     `yaml:"tree" toml:"tree"`
	TUI         TUIConfig      `yaml:"tui" toml:"tui"`
	Server      ServerConfig   `yaml:"server" toml:"server"`
	Database    DatabaseConfig `yaml:"database" toml:"database"`
	DataDir     string         `yaml:"-" toml:"-"` // set by caller, not from config file
}

// BackendConfig points at a remote grading backend. An empty URL selects the
// local SQLite store under the data directory.
type BackendConfig struct {
	URL         string   `yaml:"url" toml:"url"`
	Token       string   `yaml:"token" toml:"token"`
	Timeout     Duration `yaml:"timeout" toml:"timeout"`
	MaxAttempts int      `yaml:"max_attempts" toml:"max_attempts"`
}

// IsRemote reports whether a remote backend is configured.
func (b BackendConfig) IsRemote() bool {
	return strings.TrimSpace(b.URL) != ""
}

// TreeConfig controls the submission file tree.
type TreeConfig struct {
	// Hide lists doublestar globs; matching entries are left out of the tree.
	Hide []string `yaml:"hide" toml:"hide"`
}

// TUIConfig controls the interactive console.
type TUIConfig struct {
	// Theme is a chroma style name used for syntax highlighting.
	Theme string `yaml:"theme" toml:"theme"`
	// Palette names the built-in color palette for everything else.
	Palette string `yaml:"palette" toml:"palette"`
	// CacheSize is the number of submissions whose file contents are kept.
	CacheSize int `yaml:"cache_size" toml:"cache_size"`
}

// ServerConfig configures `grader serve`.
type ServerConfig struct {
	Addr  string `yaml:"addr" toml:"addr"`
	Token string `yaml:"token" toml:"token"`
}

// DatabaseConfig tunes the SQLite connection pool.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns" toml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout" toml:"busy_timeout"` // milliseconds
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			Timeout:     Duration(30 * time.Second),
			MaxAttempts: 3,
		},
		Tree: TreeConfig{
			Hide: []string{},
		},
		TUI: TUIConfig{
			Theme:     "dracula",
			Palette:   styles.DefaultTheme,
			CacheSize: 8,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7420",
		},
		Database: DatabaseConfig{
			MaxOpenConns: 2,
			MaxIdleConns: 2,
			BusyTimeout:  5000,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := decode(configPath, data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.DataDir = dataDir
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv lets secrets stay out of config files.
func (c *Config) applyEnv() {
	if token := os.Getenv("GRADER_BACKEND_TOKEN"); token != "" {
		c.Backend.Token = token
	}
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = defaults.Backend.Timeout
	}
	if c.Backend.MaxAttempts == 0 {
		c.Backend.MaxAttempts = defaults.Backend.MaxAttempts
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
	if c.TUI.Palette == "" {
		c.TUI.Palette = defaults.TUI.Palette
	}
	if c.TUI.CacheSize == 0 {
		c.TUI.CacheSize = defaults.TUI.CacheSize
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.ClassroomID < 0 {
		return fmt.Errorf("classroom_id cannot be negative")
	}

	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout cannot be negative")
	}

	if c.Backend.MaxAttempts < 1 {
		return fmt.Errorf("backend.max_attempts must be at least 1")
	}

	if c.TUI.CacheSize < 1 {
		return fmt.Errorf("tui.cache_size must be at least 1")
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}

	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}

	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout cannot be negative")
	}

	return nil
}
