// Package config loads the optional .jscc.yaml project file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the project config file searched for by Find.
const FileName = ".jscc.yaml"

type Config struct {
	Values     map[string]any `yaml:"values"`
	Prefixes   []string       `yaml:"prefixes"`
	KeepLines  bool           `yaml:"keepLines"`
	Extensions []string       `yaml:"extensions"`
	Include    []string       `yaml:"include"`
	Exclude    []string       `yaml:"exclude"`
	OutDir     string         `yaml:"outDir"`
	// Backup defaults to true when the key is absent.
	Backup *bool `yaml:"backup"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

// BackupEnabled reports whether outputs are backed up before overwriting.
func (c *Config) BackupEnabled() bool {
	return c.Backup == nil || *c.Backup
}

// Load reads the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Path = path
	slog.Debug("Loaded config", "path", path, "values", len(cfg.Values))
	return &cfg, nil
}

// Find looks for FileName in dir and its parents. It returns an empty
// Config when none exists.
func Find(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	for {
		path := filepath.Join(abs, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return &Config{}, nil
		}
		abs = parent
	}
}

// LoadValues reads a YAML mapping of variable names to values.
func LoadValues(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading values: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return values, nil
}

// ParseValue splits a NAME=VALUE flag. VALUE is read as YAML, so JSON
// literals work as well as bare strings; an empty VALUE is true.
func ParseValue(s string) (string, any, error) {
	name, raw, found := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, fmt.Errorf("invalid value %q: missing name", s)
	}
	if !found || strings.TrimSpace(raw) == "" {
		return name, true, nil
	}

	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return "", nil, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	return name, v, nil
}

// Merge overlays values onto the config's values and returns the result.
// The config is not modified.
func (c *Config) Merge(values map[string]any) map[string]any {
	out := make(map[string]any, len(c.Values)+len(values))
	for k, v := range c.Values {
		out[k] = v
	}
	for k, v := range values {
		out[k] = v
	}
	return out
}
