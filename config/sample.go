package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// ErrFileExists is returned by WriteSample when path is already taken.
var ErrFileExists = errors.New("config: file already exists")

// Sample returns the configuration written by WriteSample.
func Sample() *Config {
	cfg := Default()
	cfg.Items = []Item{
		{
			Title: "Fluent queries",
			Body:  "Build SQL with a chainable API and keep it readable.",
		},
		{
			Title: "Object mapping",
			Body:  "Map rows to structs and back without boilerplate.",
		},
		{
			Title: "Dynamic templates",
			Body:  "Assemble statements from conditions evaluated at run time.",
		},
	}
	cfg.Monitor.Port = 32776
	cfg.Redis.Channel = "showcase:transitions"

	return cfg
}

// WriteSample writes Sample to path in the format selected by its extension.
// The file is written atomically and never overwrites an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrFileExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: %w", err)
	}

	data, err := Encode(Sample(), filepath.Ext(path))
	if err != nil {
		return err
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}

	return nil
}

// Encode serializes cfg as TOML or YAML according to ext.
func Encode(cfg *Config, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("config: encoding toml: %w", err)
		}

		return buf.Bytes(), nil
	case ".yaml", ".yml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("config: encoding yaml: %w", err)
		}

		return data, nil
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q",
			ErrInvalidConfig, ext)
	}
}
