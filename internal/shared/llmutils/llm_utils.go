package llmutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/monica-concierge/monica/internal/schema"
)

var reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Truncate shortens a string to at most n bytes, adding "..." if it was truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StripThink removes <think>…</think> blocks that some models embed.
func StripThink(s string) string {
	return strings.TrimSpace(reThink.ReplaceAllString(s, ""))
}

// StringOrDefault returns s if it's not empty, or def if s is empty.
func StringOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ToolHint generates a short hint for a list of tool calls for log lines,
// e.g. `format_product_response(["1","7"])`.
func ToolHint(tcs []schema.ToolCallRequest) string {
	parts := make([]string, 0, len(tcs))
	for _, tc := range tcs {
		if len(tc.Arguments) == 0 {
			parts = append(parts, tc.Name)
			continue
		}
		args := fmt.Sprint(tc.Arguments)
		if len(args) > 40 {
			args = args[:40] + "…"
		}
		parts = append(parts, fmt.Sprintf("%s(%s)", tc.Name, args))
	}
	return strings.Join(parts, ", ")
}
