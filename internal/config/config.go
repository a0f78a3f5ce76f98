// Package config loads refract's configuration: a TOML file under the
// user's config directory, overlaid with REFRACT_* environment
// variables, plus per-project YAML server manifests discovered upward
// from the file being refactored.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds every tunable refract reads at startup. Zero values are
// filled in by Default, so a partial config file is fine.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	UI      UIConfig      `toml:"ui"`
	Log     LogConfig     `toml:"log"`
	Script  ScriptConfig  `toml:"script"`
	History HistoryConfig `toml:"history"`
}

// ServerConfig describes how to start and talk to the analysis server.
type ServerConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	WorkDir string   `toml:"workdir"`

	// RequestTimeoutMS bounds a single protocol request.
	RequestTimeoutMS int `toml:"request_timeout_ms"`

	// StartTimeoutMS bounds waiting for a spawned server to answer
	// its first request.
	StartTimeoutMS int `toml:"start_timeout_ms"`
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// StartTimeout returns StartTimeoutMS as a duration.
func (c ServerConfig) StartTimeout() time.Duration {
	return time.Duration(c.StartTimeoutMS) * time.Millisecond
}

// UIConfig controls terminal interaction defaults.
type UIConfig struct {
	NoColor   bool `toml:"no_color"`
	AssumeYes bool `toml:"assume_yes"`
}

// LogConfig controls diagnostic output. An empty File sends log lines
// to stderr.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// ScriptConfig lists directories scanned for Lua resolver scripts.
type ScriptConfig struct {
	Paths []string `toml:"paths"`
}

// HistoryConfig controls the refactoring journal.
type HistoryConfig struct {
	Disabled bool   `toml:"disabled"`
	Path     string `toml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			RequestTimeoutMS: 30000,
			StartTimeoutMS:   10000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the standard config file location, honoring
// $XDG_CONFIG_HOME. Returns "" when no home directory can be found.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "refract", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "refract", "config.toml")
}

// DefaultScriptDir returns the standard directory for Lua resolver
// scripts, next to the config file.
func DefaultScriptDir() string {
	path := DefaultPath()
	if path == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), "scripts")
}

// Load reads the TOML file at path, overlays it on Default, then
// applies the environment. A missing file is not an error: callers get
// the defaults with the environment applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	ApplyEnv(cfg)
	return cfg, nil
}

// ApplyEnv overlays REFRACT_* environment variables on cfg. Variables
// win over file values; empty values still count as set.
func ApplyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("REFRACT_SERVER_COMMAND"); ok {
		cfg.Server.Command = v
	}
	if v, ok := os.LookupEnv("REFRACT_SERVER_WORKDIR"); ok {
		cfg.Server.WorkDir = v
	}
	if v, ok := os.LookupEnv("REFRACT_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv("REFRACT_LOG_FILE"); ok {
		cfg.Log.File = v
	}
	if v, ok := os.LookupEnv("REFRACT_ASSUME_YES"); ok {
		cfg.UI.AssumeYes = parseBool(v)
	}
	if v, ok := os.LookupEnv("REFRACT_NO_COLOR"); ok {
		cfg.UI.NoColor = parseBool(v)
	}
	if v, ok := os.LookupEnv("REFRACT_HISTORY_PATH"); ok {
		cfg.History.Path = v
	}
	if v, ok := os.LookupEnv("REFRACT_SCRIPT_PATH"); ok && v != "" {
		cfg.Script.Paths = filepath.SplitList(v)
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// ParseError reports a malformed configuration or manifest file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
