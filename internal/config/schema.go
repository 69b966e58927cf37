// Package config defines the configuration schema for monica.
//
// JSON keys use camelCase. Every section has defaults, so a partial
// ~/.monica/config.json only needs to name what it overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey       string            `json:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty"`
}

// ProvidersConfig holds credentials for all supported LLM providers.
type ProvidersConfig struct {
	Custom     ProviderConfig `json:"custom"`
	OpenRouter ProviderConfig `json:"openrouter"`
	Gemini     ProviderConfig `json:"gemini"`
	OpenAI     ProviderConfig `json:"openai"`
	Anthropic  ProviderConfig `json:"anthropic"`
	DeepSeek   ProviderConfig `json:"deepseek"`
	VLLM       ProviderConfig `json:"vllm"`
}

// AgentDefaults holds default values for agent behaviour.
type AgentDefaults struct {
	Workspace    string  `json:"workspace"`
	Model        string  `json:"model"`
	MaxTokens    int     `json:"maxTokens"`
	Temperature  float64 `json:"temperature"`
	MaxToolIter  int     `json:"maxToolIterations"`
	MemoryWindow int     `json:"memoryWindow"`
}

func defaultAgentDefaults() AgentDefaults {
	return AgentDefaults{
		Workspace:    "~/.monica/workspace",
		Model:        "gemini/gemini-2.0-flash-exp",
		MaxTokens:    4096,
		Temperature:  0.7,
		MaxToolIter:  10,
		MemoryWindow: 40,
	}
}

// AgentsConfig wraps agent defaults.
type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

// GatewayConfig holds the web gateway settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	// AllowFrom lists the user ids allowed to chat. Empty allows everyone.
	AllowFrom []string `json:"allowFrom"`

	// MetricsToken protects GET /metrics with a bearer token when set.
	MetricsToken string `json:"metricsToken,omitempty"`

	MaxUploadMB int `json:"maxUploadMb"`
}

func defaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Host:        "0.0.0.0",
		Port:        8000,
		AllowFrom:   []string{},
		MaxUploadMB: 10,
	}
}

// CatalogConfig selects the product catalog.
type CatalogConfig struct {
	// Path to a YAML or JSON catalog file. Empty uses the built-in catalog.
	Path string `json:"path,omitempty"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level   string `json:"level"` // debug, info, warn, error
	NoColor bool   `json:"noColor"`
}

// Config is the root configuration object, loaded from ~/.monica/config.json.
type Config struct {
	Agents    AgentsConfig    `json:"agents"`
	Providers ProvidersConfig `json:"providers"`
	Gateway   GatewayConfig   `json:"gateway"`
	Catalog   CatalogConfig   `json:"catalog"`
	Logging   LoggingConfig   `json:"logging"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agents:    AgentsConfig{Defaults: defaultAgentDefaults()},
		Providers: ProvidersConfig{},
		Gateway:   defaultGatewayConfig(),
		Logging:   LoggingConfig{Level: "info"},
	}
}

// WorkspacePath returns the expanded absolute path to the agent workspace.
func (c *Config) WorkspacePath() string {
	ws := c.Agents.Defaults.Workspace
	if ws == "" {
		ws = "~/.monica/workspace"
	}
	return expandHome(ws)
}

// CatalogPath returns the expanded catalog file path, or "" for the built-in one.
func (c *Config) CatalogPath() string {
	if c.Catalog.Path == "" {
		return ""
	}
	return expandHome(c.Catalog.Path)
}

// ProviderByName returns a pointer to the ProviderConfig field matching the
// given registry name (e.g. "openrouter", "gemini"). Returns nil if unknown.
func (c *Config) ProviderByName(name string) *ProviderConfig {
	switch name {
	case "custom":
		return &c.Providers.Custom
	case "openrouter":
		return &c.Providers.OpenRouter
	case "gemini":
		return &c.Providers.Gemini
	case "openai":
		return &c.Providers.OpenAI
	case "anthropic":
		return &c.Providers.Anthropic
	case "deepseek":
		return &c.Providers.DeepSeek
	case "vllm":
		return &c.Providers.VLLM
	}
	return nil
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
