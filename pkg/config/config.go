// Package config loads go-include settings from YAML files and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the settings used to build a render engine.
type Config struct {
	// PartialsDir is the directory templates and partials are loaded from.
	// Required.
	PartialsDir string `json:"partials_dir" yaml:"partials_dir"`

	// Extension is appended to template names that have none.
	// Default: ".liquid"
	Extension string `json:"extension" yaml:"extension"`

	// MaxDepth bounds include nesting within a single render.
	// Default: 64
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// Watch invalidates cached partials when files under PartialsDir change.
	Watch bool `json:"watch" yaml:"watch"`

	// LogLevel is one of debug, info, warn or error.
	// Default: "info"
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Globals are visible to every template and partial.
	Globals map[string]any `json:"globals" yaml:"globals"`
}

// DefaultConfig returns a Config with sensible defaults.
// PartialsDir must still be set before use.
func DefaultConfig() Config {
	return Config{
		Extension: ".liquid",
		MaxDepth:  64,
		LogLevel:  "info",
	}
}

// Load reads a YAML config file on top of DefaultConfig.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document on top of DefaultConfig. Unknown keys are
// rejected.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv populates config fields from environment variables.
// Environment variables use the INCLUDE_ prefix and take precedence over
// existing values.
//
// Supported variables:
//   - INCLUDE_PARTIALS_DIR: partials directory
//   - INCLUDE_EXTENSION: default template extension
//   - INCLUDE_MAX_DEPTH: include nesting limit
//   - INCLUDE_WATCH: watch the partials directory (true/false)
//   - INCLUDE_LOG_LEVEL: log level
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("INCLUDE_PARTIALS_DIR"); v != "" {
		c.PartialsDir = v
	}
	if v := os.Getenv("INCLUDE_EXTENSION"); v != "" {
		c.Extension = v
	}
	if v := os.Getenv("INCLUDE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxDepth = n
		}
	}
	if v := os.Getenv("INCLUDE_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Watch = b
		}
	}
	if v := os.Getenv("INCLUDE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// FromEnv creates a Config from environment variables with defaults.
func FromEnv() Config {
	cfg := DefaultConfig()
	cfg.LoadFromEnv()
	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.PartialsDir) == "" {
		return fmt.Errorf("partials_dir is required")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be > 0, got %d", c.MaxDepth)
	}
	if c.Extension != "" && !strings.HasPrefix(c.Extension, ".") {
		return fmt.Errorf("extension must start with a dot, got %q", c.Extension)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty value means info.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(c.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// WithPartialsDir returns a copy of the config using dir.
func (c Config) WithPartialsDir(dir string) Config {
	c.PartialsDir = dir
	return c
}

// WithGlobal returns a copy of the config with key set in Globals.
func (c Config) WithGlobal(key string, value any) Config {
	globals := make(map[string]any, len(c.Globals)+1)
	for k, v := range c.Globals {
		globals[k] = v
	}
	globals[key] = value
	c.Globals = globals
	return c
}
