package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/monica-concierge/monica/internal/schema"
	"github.com/monica-concierge/monica/internal/shared/llmutils"
)

const (
	fallbackAPIBase  = "https://api.openai.com/v1"
	defaultMaxTokens = 4096
)

// OpenAIProvider makes direct HTTP calls to any OpenAI-compatible
// chat completions endpoint (Gemini, OpenAI, OpenRouter, DeepSeek, vLLM).
type OpenAIProvider struct {
	apiKey       string
	apiBase      string
	defaultModel string
	extraHeaders map[string]string
	gateway      *ProviderSpec // non-nil for gateway/local providers
	spec         *ProviderSpec // non-nil for standard providers
	httpClient   *http.Client
}

// NewOpenAIProvider constructs a provider from raw config values.
// The caller extracts these from config.Config to avoid an import cycle.
func NewOpenAIProvider(
	apiKey, apiBase, defaultModel, providerName string,
	extraHeaders map[string]string,
) *OpenAIProvider {
	gateway := FindGateway(providerName, apiKey, apiBase)

	var spec *ProviderSpec
	if gateway == nil {
		spec = FindByModel(defaultModel)
		if spec == nil {
			spec = FindByName(providerName)
		}
	}

	effectiveBase := apiBase
	if effectiveBase == "" {
		switch {
		case gateway != nil && gateway.DefaultAPIBase != "":
			effectiveBase = gateway.DefaultAPIBase
		case spec != nil && spec.DefaultAPIBase != "":
			effectiveBase = spec.DefaultAPIBase
		default:
			effectiveBase = fallbackAPIBase
		}
	}

	return &OpenAIProvider{
		apiKey:       apiKey,
		apiBase:      strings.TrimRight(effectiveBase, "/"),
		defaultModel: defaultModel,
		extraHeaders: extraHeaders,
		gateway:      gateway,
		spec:         spec,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

// APIBase returns the resolved endpoint base URL.
func (p *OpenAIProvider) APIBase() string { return p.apiBase }

// Chat implements schema.LLMProvider. Upstream HTTP failures are returned
// as a response with FinishReason "error" rather than a Go error.
func (p *OpenAIProvider) Chat(
	ctx context.Context,
	messages schema.Messages,
	tools []map[string]any,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	req := chatRequest{
		Model:       p.resolveModel(llmutils.StringOrDefault(opts.Model, p.defaultModel)),
		Messages:    toWire(messages),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	status, raw, err := p.post(ctx, "/chat/completions", req)
	if err != nil {
		return schema.LLMResponse{}, err
	}
	if status != http.StatusOK {
		return errResponse(fmt.Sprintf("HTTP %d: %s", status, friendlyHTTPError(status, raw)))
	}
	return parseChatResponse(raw)
}

// post sends body as JSON to path under the API base and returns the raw reply.
func (p *OpenAIProvider) post(ctx context.Context, path string, body any) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// resolveModel strips routing prefixes from the model string so the provider
// API receives the model name it expects.
//
// Gateways keep the "vendor/model" sub-prefix because they route on it; only
// the gateway's own prefix ("openrouter/") is stripped. Standard providers
// strip their own name ("gemini/gemini-2.0-flash-exp" -> "gemini-2.0-flash-exp").
func (p *OpenAIProvider) resolveModel(model string) string {
	if p.gateway != nil {
		if p.gateway.StripModelPrefix {
			if i := strings.LastIndex(model, "/"); i >= 0 {
				return model[i+1:]
			}
			return model
		}
		if pfx := p.gateway.ModelPrefix; pfx != "" {
			full := pfx + "/"
			if strings.HasPrefix(strings.ToLower(model), full) {
				model = model[len(full):]
			}
		}
		return model
	}

	if p.spec != nil {
		for _, pfx := range []string{p.spec.ModelPrefix, p.spec.Name} {
			if pfx == "" {
				continue
			}
			full := pfx + "/"
			if strings.HasPrefix(strings.ToLower(model), full) {
				return model[len(full):]
			}
		}
	}

	// Unknown spec: strip any prefix the registry recognises.
	if prefix, rest, ok := strings.Cut(model, "/"); ok {
		norm := strings.ReplaceAll(strings.ToLower(prefix), "-", "_")
		if FindByName(norm) != nil {
			return rest
		}
	}
	return model
}
