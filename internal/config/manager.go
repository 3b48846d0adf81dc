package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
	"github.com/ChamsBouzaiene/flowsmith/internal/providers"
)

// Config holds the user's persistent configuration preferences.
type Config struct {
	LLMProvider string `json:"llm_provider,omitempty"` // openai, anthropic, kimi, etc.
	APIKey      string `json:"api_key,omitempty"`      // The API key for the selected provider
	Model       string `json:"model,omitempty"`        // Default model name
	BaseURL     string `json:"base_url,omitempty"`     // Optional override for API base URL

	WindowSize         int                      `json:"window_size,omitempty"`
	MaxCallAttempts    int                      `json:"max_call_attempts,omitempty"`
	CallTimeoutSeconds int                      `json:"call_timeout_seconds,omitempty"`
	MaxTurns           int                      `json:"max_turns,omitempty"`
	StateIndent        int                      `json:"state_indent,omitempty"`
	Options            engine.CompletionOptions `json:"completion_options,omitempty"`

	CatalogPath string `json:"catalog_path,omitempty"` // YAML integration catalog
	DataDir     string `json:"data_dir,omitempty"`     // sessions and call log; defaults to the config dir
}

// EngineConfig overlays the configured knobs on engine defaults.
func (c *Config) EngineConfig() engine.Config {
	ec := engine.DefaultConfig()
	if c.WindowSize != 0 {
		ec.WindowSize = c.WindowSize
	}
	if c.MaxCallAttempts > 0 {
		ec.MaxCallAttempts = c.MaxCallAttempts
	}
	if c.CallTimeoutSeconds > 0 {
		ec.CallTimeout = time.Duration(c.CallTimeoutSeconds) * time.Second
	}
	if c.MaxTurns > 0 {
		ec.MaxTurns = c.MaxTurns
	}
	if c.StateIndent > 0 {
		ec.StateIndent = c.StateIndent
	}
	if len(c.Options) > 0 {
		ec.Options = c.Options.Clone()
	}
	return ec
}

// ProviderConfig overlays the saved provider settings on base, which
// usually comes from the environment. Saved values win.
func (c *Config) ProviderConfig(base providers.ProviderConfig) providers.ProviderConfig {
	if c.LLMProvider != "" && c.LLMProvider != base.Provider {
		// Env credentials belong to another provider.
		base = providers.ProviderConfig{Provider: c.LLMProvider}
	}
	if c.APIKey != "" {
		base.APIKey = c.APIKey
	}
	if c.Model != "" {
		base.Model = c.Model
	}
	if c.BaseURL != "" {
		base.BaseURL = c.BaseURL
	}
	return base
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}

	return NewManagerAt(filepath.Join(configDir, "flowsmith")), nil
}

// NewManagerAt creates a manager rooted at dir.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir}
}

// Dir returns the configuration directory.
func (m *Manager) Dir() string {
	return m.configDir
}

// GetConfigPath returns the absolute path to the config.json file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.json")
}

// DataDir returns where sessions and the call log live.
func (m *Manager) DataDir(cfg *Config) string {
	if cfg != nil && cfg.DataDir != "" {
		return cfg.DataDir
	}
	return m.configDir
}

// Load reads the configuration from disk.
// If the file does not exist, it returns an empty Config and no error.
func (m *Manager) Load() (*Config, error) {
	path := m.GetConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config json: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to disk with restricted permissions (0600).
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold an API key.
	if err := os.WriteFile(m.GetConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}
