// Package project reads per-workspace settings from the .flowsmith directory.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the per-workspace settings directory.
	Dir = ".flowsmith"
	// ConfigFile overrides user settings for this workspace.
	ConfigFile = "config.yaml"
	// RulesFile holds extra instructions given to the model on every turn.
	RulesFile = "rules"
	// PromptsDir holds YAML prompt overrides.
	PromptsDir = "prompts"
)

// ProjectConfig holds per-workspace settings. Zero fields defer to the
// user configuration.
type ProjectConfig struct {
	CatalogPath string `yaml:"catalog"` // relative to the workspace
	WindowSize  int    `yaml:"window_size"`
	MaxTurns    int    `yaml:"max_turns"`
}

// Validate rejects settings the engine cannot honor.
func (c *ProjectConfig) Validate() error {
	if c.MaxTurns < 0 {
		return fmt.Errorf("max_turns must not be negative, got %d", c.MaxTurns)
	}
	return nil
}

// PromptsPath returns the directory scanned for prompt overrides.
func PromptsPath(root string) string {
	return filepath.Join(root, Dir, PromptsDir)
}

// LoadConfig reads <root>/.flowsmith/config.yaml. It returns nil and no
// error when the file does not exist.
func LoadConfig(root string) (*ProjectConfig, error) {
	path := filepath.Join(root, Dir, ConfigFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	var cfg ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadRules reads <root>/.flowsmith/rules, trimmed. A missing file
// yields "".
func LoadRules(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, Dir, RulesFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read rules file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
