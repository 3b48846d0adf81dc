package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
	"github.com/ChamsBouzaiene/flowsmith/internal/providers"
)

func TestManager_LoadSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "flowsmith")
	m := NewManagerAt(dir)

	if m.Exists() {
		t.Fatal("Exists() = true before Save")
	}
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	if cfg.LLMProvider != "" {
		t.Errorf("Load() on missing file = %+v, want empty", cfg)
	}

	want := &Config{
		LLMProvider: "anthropic",
		APIKey:      "secret",
		WindowSize:  5,
		Options:     engine.CompletionOptions{"temperature": 0.2},
		CatalogPath: "catalog.yaml",
	}
	if err := m.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(m.GetConfigPath())
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config permissions = %o, want 600", perm)
	}

	got, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.LLMProvider != "anthropic" || got.APIKey != "secret" || got.WindowSize != 5 || got.CatalogPath != "catalog.yaml" {
		t.Errorf("Load() = %+v", got)
	}
	if v, ok := got.Options.Float("temperature"); !ok || v != 0.2 {
		t.Errorf("temperature = %v, %v", v, ok)
	}
	if m.DataDir(got) != dir {
		t.Errorf("DataDir() = %s, want %s", m.DataDir(got), dir)
	}
}

func TestConfig_EngineConfig(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		check func(t *testing.T, ec engine.Config)
	}{
		{
			name: "defaults",
			cfg:  Config{},
			check: func(t *testing.T, ec engine.Config) {
				if ec.WindowSize != engine.DefaultWindowSize || ec.MaxCallAttempts != engine.DefaultMaxCallAttempts || ec.CallTimeout != engine.DefaultCallTimeout {
					t.Errorf("defaults = %+v", ec)
				}
				if ec.Retry == nil {
					t.Error("Retry = nil, want default retry config")
				}
			},
		},
		{
			name: "overrides",
			cfg:  Config{WindowSize: -1, MaxCallAttempts: 5, CallTimeoutSeconds: 10, MaxTurns: 40, StateIndent: 2},
			check: func(t *testing.T, ec engine.Config) {
				if ec.WindowSize != -1 || ec.MaxCallAttempts != 5 || ec.CallTimeout != 10*time.Second || ec.MaxTurns != 40 || ec.StateIndent != 2 {
					t.Errorf("overrides = %+v", ec)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.cfg.EngineConfig())
		})
	}
}

func TestConfig_ProviderConfig(t *testing.T) {
	env := providers.ProviderConfig{Provider: "openai", APIKey: "env-key", Model: "gpt-4o-mini"}

	tests := []struct {
		name string
		cfg  Config
		want providers.ProviderConfig
	}{
		{"empty keeps env", Config{}, env},
		{"same provider overrides model", Config{LLMProvider: "openai", Model: "gpt-4o"}, providers.ProviderConfig{Provider: "openai", APIKey: "env-key", Model: "gpt-4o"}},
		{"other provider drops env credentials", Config{LLMProvider: "anthropic", APIKey: "k"}, providers.ProviderConfig{Provider: "anthropic", APIKey: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ProviderConfig(env); got != tt.want {
				t.Errorf("ProviderConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
