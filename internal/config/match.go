package config

import (
	"os"
	"strings"

	"github.com/monica-concierge/monica/internal/providers"
)

// MatchResult is the resolved LLM provider config and registry name for a model.
type MatchResult struct {
	Provider *ProviderConfig
	Name     string // e.g. "gemini", "openrouter"
}

// MatchProvider resolves which provider config and registry entry to use for model.
// If model is empty, the default model from agents.defaults.model is used.
//
// Priority order:
//  1. Explicit provider prefix in model string (e.g. "gemini/gemini-2.0-flash-exp" → gemini)
//  2. Keyword match in model name (registry order)
//  3. Fallback: the first configured provider in registry order
func (c *Config) MatchProvider(model string) MatchResult {
	if model == "" {
		model = c.Agents.Defaults.Model
	}
	modelLower := strings.ToLower(model)
	modelNorm := strings.ReplaceAll(modelLower, "-", "_")
	modelPrefix, _, _ := strings.Cut(modelLower, "/")
	normalizedPrefix := strings.ReplaceAll(modelPrefix, "-", "_")

	kwMatches := func(kw string) bool {
		kw = strings.ToLower(kw)
		return strings.Contains(modelLower, kw) || strings.Contains(modelNorm, strings.ReplaceAll(kw, "-", "_"))
	}

	// 1. Explicit provider prefix wins.
	for _, spec := range providers.PROVIDERS {
		p := c.ProviderByName(spec.Name)
		if p != nil && modelPrefix != "" && normalizedPrefix == spec.Name && c.configured(spec, p) {
			return MatchResult{Provider: p, Name: spec.Name}
		}
	}

	// 2. Keyword match.
	for _, spec := range providers.PROVIDERS {
		p := c.ProviderByName(spec.Name)
		if p == nil || !c.configured(spec, p) {
			continue
		}
		for _, kw := range spec.Keywords {
			if kwMatches(kw) {
				return MatchResult{Provider: p, Name: spec.Name}
			}
		}
	}

	// 3. Fallback.
	for _, spec := range providers.PROVIDERS {
		if p := c.ProviderByName(spec.Name); p != nil && c.configured(spec, p) {
			return MatchResult{Provider: p, Name: spec.Name}
		}
	}

	return MatchResult{}
}

// configured reports whether a provider has credentials, either in the file
// or in its environment variable. Local providers only need an API base.
func (c *Config) configured(spec providers.ProviderSpec, p *ProviderConfig) bool {
	if p.APIKey != "" {
		return true
	}
	if spec.IsLocal || spec.Name == "custom" {
		return p.APIBase != ""
	}
	return spec.EnvKey != "" && os.Getenv(spec.EnvKey) != ""
}

// GetAPIBase resolves the effective API base URL for model.
// Precedence: user-configured apiBase > spec.DefaultAPIBase.
func (c *Config) GetAPIBase(model string) string {
	result := c.MatchProvider(model)
	if result.Provider != nil && result.Provider.APIBase != "" {
		return result.Provider.APIBase
	}
	if spec := providers.FindByName(result.Name); spec != nil {
		return spec.DefaultAPIBase
	}
	return ""
}

// GetAPIKey returns the API key for model, falling back to the provider's
// environment variable.
func (c *Config) GetAPIKey(model string) string {
	result := c.MatchProvider(model)
	if result.Provider == nil {
		return ""
	}
	if result.Provider.APIKey != "" {
		return result.Provider.APIKey
	}
	if spec := providers.FindByName(result.Name); spec != nil && spec.EnvKey != "" {
		return os.Getenv(spec.EnvKey)
	}
	return ""
}
