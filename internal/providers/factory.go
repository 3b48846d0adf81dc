package providers

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
)

// ProviderConfig selects and configures one provider.
type ProviderConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// compatPreset describes an OpenAI-compatible endpoint.
type compatPreset struct {
	envPrefix    string
	defaultModel string
	baseURL      string
	keyRequired  bool
	defaultKey   string
}

var compatPresets = map[string]compatPreset{
	"openai":   {envPrefix: "OPENAI", defaultModel: "gpt-4o-mini", keyRequired: true},
	"kimi":     {envPrefix: "KIMI", defaultModel: "kimi-k2-250711", baseURL: "https://ark.ap-southeast.bytepluses.com/api/v3", keyRequired: true},
	"gemini":   {envPrefix: "GEMINI", defaultModel: "gemini-1.5-flash", baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", keyRequired: true},
	"lmstudio": {envPrefix: "LMSTUDIO", defaultModel: "local-model", baseURL: "http://localhost:1234/v1", defaultKey: "lm-studio"},
	"ollama":   {envPrefix: "OLLAMA", defaultModel: "llama3.1", baseURL: "http://localhost:11434/v1", defaultKey: "ollama"},
	"glm":      {envPrefix: "GLM", defaultModel: "glm-4-plus", baseURL: "https://open.bigmodel.cn/api/paas/v4", keyRequired: true},
	"deepseek": {envPrefix: "DEEPSEEK", defaultModel: "deepseek-chat", baseURL: "https://api.deepseek.com/v1", keyRequired: true},
	"groq":     {envPrefix: "GROQ", defaultModel: "llama-3.1-70b-versatile", baseURL: "https://api.groq.com/openai/v1", keyRequired: true},
}

const anthropicDefaultModel = "claude-3-5-sonnet-20241022"

// SupportedProviders lists provider names accepted by NewLLMClient.
func SupportedProviders() []string {
	names := []string{"anthropic"}
	for name := range compatPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigFromEnv reads provider settings from environment variables.
// LLM_PROVIDER selects the provider (default openai); <PREFIX>_API_KEY,
// <PREFIX>_MODEL and <PREFIX>_BASE_URL configure it.
func ConfigFromEnv() ProviderConfig {
	provider := strings.ToLower(os.Getenv("LLM_PROVIDER"))
	if provider == "" {
		provider = "openai"
	}
	prefix := strings.ToUpper(provider)
	if p, ok := compatPresets[provider]; ok {
		prefix = p.envPrefix
	}
	return ProviderConfig{
		Provider: provider,
		APIKey:   os.Getenv(prefix + "_API_KEY"),
		Model:    os.Getenv(prefix + "_MODEL"),
		BaseURL:  os.Getenv(prefix + "_BASE_URL"),
	}
}

// NewLLMClient creates an engine.LLMClient and returns the resolved model name.
func NewLLMClient(cfg ProviderConfig) (engine.LLMClient, string, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = "openai"
	}

	if provider == "anthropic" {
		if cfg.APIKey == "" {
			return nil, "", fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		model := cfg.Model
		if model == "" {
			model = anthropicDefaultModel
		}
		client, err := NewAnthropicClient(cfg.APIKey, model)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return client, model, nil
	}

	preset, ok := compatPresets[provider]
	if !ok {
		return nil, "", fmt.Errorf("unknown LLM_PROVIDER: %s (supported: %s)", provider, strings.Join(SupportedProviders(), ", "))
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		if preset.keyRequired {
			return nil, "", fmt.Errorf("%s_API_KEY not set", preset.envPrefix)
		}
		apiKey = preset.defaultKey
	}
	model := cfg.Model
	if model == "" {
		model = preset.defaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = preset.baseURL
	}

	client, err := NewOpenAIClient(apiKey, model, baseURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s client: %w", provider, err)
	}
	return client, model, nil
}

// NewLLMClientFromEnv creates an engine.LLMClient based on environment variables.
func NewLLMClientFromEnv() (engine.LLMClient, string, error) {
	return NewLLMClient(ConfigFromEnv())
}
