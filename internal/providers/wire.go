package providers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/monica-concierge/monica/internal/schema"
)

// chatRequest is the body of POST /chat/completions.
type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []wireMessage    `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	Tools       []map[string]any `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
}

// wireMessage is one conversation entry as OpenAI-compatible APIs expect it.
// Content has no omitempty: strict providers reject assistant messages that
// lack the key, even when only tool calls are present.
type wireMessage struct {
	Role             string           `json:"role"`
	Content          any              `json:"content"`
	ToolCalls        []map[string]any `json:"tool_calls,omitempty"`
	ToolCallID       string           `json:"tool_call_id,omitempty"`
	Name             string           `json:"name,omitempty"`
	ReasoningContent *string          `json:"reasoning_content,omitempty"`
}

func toWire(messages schema.Messages) []wireMessage {
	out := make([]wireMessage, 0, len(messages.Messages))
	for _, m := range messages.Messages {
		out = append(out, wireFromMessage(m))
	}
	return out
}

func wireFromMessage(m schema.Message) wireMessage {
	w := wireMessage{Role: m.Role, Content: m.Content}

	switch m.Role {
	case schema.RoleAssistant:
		if s, ok := m.Content.(*string); ok {
			w.Content = nil
			if s != nil {
				w.Content = *s
			}
		}
		for _, tc := range m.ToolCalls {
			w.ToolCalls = append(w.ToolCalls, tc.ToWireMap())
		}
		w.ReasoningContent = m.ReasoningContent
	case schema.RoleTool:
		w.ToolCallID = m.ToolCallID
		w.Name = m.ToolName
	}
	return w
}

// chatResponse is the subset of a chat completion reply the agent uses.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content          any            `json:"content"`
			ReasoningContent any            `json:"reasoning_content"`
			ToolCalls        []wireToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

func parseChatResponse(raw []byte) (schema.LLMResponse, error) {
	var body chatResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.LLMResponse{}, fmt.Errorf("parse chat response: %w", err)
	}
	if len(body.Choices) == 0 {
		return schema.LLMResponse{}, fmt.Errorf("empty choices in response")
	}
	choice := body.Choices[0]

	resp := schema.LLMResponse{
		Content:          nonEmpty(choice.Message.Content),
		ReasoningContent: nonEmpty(choice.Message.ReasoningContent),
		FinishReason:     choice.FinishReason,
		Usage: map[string]int{
			"prompt_tokens":     body.Usage.PromptTokens,
			"completion_tokens": body.Usage.CompletionTokens,
			"total_tokens":      body.Usage.TotalTokens,
		},
	}
	if resp.FinishReason == "" {
		resp.FinishReason = "stop"
	}

	for i, tc := range choice.Message.ToolCalls {
		args, err := repairJSON(tc.Function.Arguments)
		if err != nil {
			slog.Warn("failed to parse tool arguments", "tool", tc.Function.Name, "err", err)
		}
		id := tc.ID
		if id == "" {
			// Gemini's compat layer may omit call ids.
			id = fmt.Sprintf("call_%d", i)
		}
		resp.ToolCalls = append(resp.ToolCalls, schema.ToolCallRequest{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return resp, nil
}

// nonEmpty returns a pointer to v when it is a non-empty string.
func nonEmpty(v any) *string {
	if s, ok := v.(string); ok && s != "" {
		return &s
	}
	return nil
}

// repairJSON decodes tool arguments, tolerating the truncated or
// trailing-garbage output some models produce. It always returns a usable map.
func repairJSON(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	candidates := []string{raw}
	if closed := strings.TrimRight(raw, " \t\n\r}]"); !strings.HasSuffix(closed, "}") {
		candidates = append(candidates, closed+"}")
	}
	if i := strings.LastIndex(raw, "}"); i >= 0 {
		candidates = append(candidates, raw[:i+1])
	}

	for _, c := range candidates {
		var out map[string]any
		if err := json.Unmarshal([]byte(c), &out); err == nil && out != nil {
			return out, nil
		}
	}
	return map[string]any{}, fmt.Errorf("cannot repair JSON: %s", raw)
}

// errResponse surfaces an upstream failure as assistant content so the loop
// can report it to the customer instead of aborting the turn.
func errResponse(msg string) (schema.LLMResponse, error) {
	return schema.LLMResponse{Content: &msg, FinishReason: "error"}, nil
}

func friendlyHTTPError(code int, body []byte) string {
	if code == http.StatusTooManyRequests {
		return "rate limit exceeded"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
