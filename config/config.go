// Package config loads the showcase configuration from a TOML or YAML file,
// an optional .env file and SHOWCASE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration cannot drive a showcase.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Defaults applied before a file is decoded.
const (
	DefaultIntervalMS = 5000
	DefaultLogLevel   = "info"
	DefaultPort       = 0
)

// Environment variables that override file values.
const (
	EnvIntervalMS  = "SHOWCASE_INTERVAL_MS"
	EnvLogLevel    = "SHOWCASE_LOG_LEVEL"
	EnvMonitorPort = "SHOWCASE_MONITOR_PORT"
	EnvRedisAddr   = "SHOWCASE_REDIS_ADDR"
)

// Item is one entry of the rotation.
type Item struct {
	Title string `toml:"title" yaml:"title" json:"title"`
	Body  string `toml:"body" yaml:"body" json:"body"`
}

// Monitor configures the HTTP monitor.
type Monitor struct {
	Enabled     bool `toml:"enabled" yaml:"enabled"`
	Port        int  `toml:"port" yaml:"port"`
	OpenBrowser bool `toml:"open_browser" yaml:"open_browser"`
}

// Record configures the SQLite transition journal. An empty path disables it.
type Record struct {
	Path string `toml:"path" yaml:"path"`
}

// Redis configures transition publishing. An empty address disables it.
type Redis struct {
	Addr    string `toml:"addr" yaml:"addr"`
	Channel string `toml:"channel" yaml:"channel"`
}

// Config is the full showcase configuration.
type Config struct {
	IntervalMS          int    `toml:"interval_ms" yaml:"interval_ms"`
	Items               []Item `toml:"items" yaml:"items"`
	CountedInteractions bool   `toml:"counted_interactions" yaml:"counted_interactions"`
	LogLevel            string `toml:"log_level" yaml:"log_level"`

	Monitor Monitor `toml:"monitor" yaml:"monitor"`
	Record  Record  `toml:"record" yaml:"record"`
	Redis   Redis   `toml:"redis" yaml:"redis"`
}

// Default returns a configuration with every default set and no items.
func Default() *Config {
	return &Config{
		IntervalMS: DefaultIntervalMS,
		LogLevel:   DefaultLogLevel,
		Monitor:    Monitor{Port: DefaultPort},
	}
}

// Interval returns the rotation interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// Titles returns the item titles in order.
func (c *Config) Titles() []string {
	titles := make([]string, len(c.Items))
	for i, item := range c.Items {
		titles[i] = item.Title
	}

	return titles
}

// Validate checks that the configuration can drive a showcase.
func (c *Config) Validate() error {
	if c.IntervalMS <= 0 {
		return fmt.Errorf("%w: interval_ms must be positive, got %d",
			ErrInvalidConfig, c.IntervalMS)
	}

	if len(c.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidConfig)
	}

	for i, item := range c.Items {
		if strings.TrimSpace(item.Title) == "" {
			return fmt.Errorf("%w: item %d has no title", ErrInvalidConfig, i)
		}
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		return fmt.Errorf("%w: monitor port %d out of range",
			ErrInvalidConfig, c.Monitor.Port)
	}

	return nil
}

// Load reads the file at path, applies environment overrides and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes data on top of the defaults. The extension selects the
// format: ".toml", ".yaml" or ".yml".
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decoding toml: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q",
			ErrInvalidConfig, ext)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(filenames ...string) error {
	for _, f := range filenames {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	return nil
}

// ApplyEnv overrides fields from SHOWCASE_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvIntervalMS); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvIntervalMS, v)
		}

		c.IntervalMS = ms
	}

	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = v
	}

	if v, ok := lookup(EnvMonitorPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvMonitorPort, v)
		}

		c.Monitor.Enabled = true
		c.Monitor.Port = port
	}

	if v, ok := lookup(EnvRedisAddr); ok {
		c.Redis.Addr = v
	}

	return nil
}
