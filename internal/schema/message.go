package schema

import "encoding/json"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents one function call in an assistant message.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToWireMap serialises a ToolCall into the OpenAI wire-format map.
func (tc ToolCall) ToWireMap() map[string]any {
	argsJSON, _ := json.Marshal(tc.Arguments)
	if tc.Arguments == nil {
		argsJSON = []byte("{}")
	}
	return map[string]any{
		"id":   tc.ID,
		"type": "function",
		"function": map[string]any{
			"name":      tc.Name,
			"arguments": string(argsJSON),
		},
	}
}

// Message is one entry in the conversation.
//
// Content holds:
//   - system / tool: plain string
//   - user: string, or []map[string]any content blocks when images are attached
//   - assistant: *string (nil when only tool calls are present)
type Message struct {
	Role             string
	Content          any
	ToolCalls        []ToolCall
	ToolCallID       string   // "tool" role only
	ToolName         string   // "tool" role only
	ReasoningContent *string  // "assistant" role only
	ToolsUsed        []string // session-only: names of tools used this turn; not sent to LLM
}

// Text returns the textual content of the message, ignoring image blocks.
func (m Message) Text() string {
	switch c := m.Content.(type) {
	case string:
		return c
	case *string:
		if c != nil {
			return *c
		}
	case []map[string]any:
		for _, block := range c {
			if block["type"] == "text" {
				s, _ := block["text"].(string)
				return s
			}
		}
	}
	return ""
}
