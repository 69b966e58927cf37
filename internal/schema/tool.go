// Package schema contains the core contracts shared across packages:
// LLM-callable tools, LLM providers, conversation messages and channels.
package schema

import (
	"context"
	"encoding/json"
)

// Tool is the interface all LLM-callable tools must satisfy.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema (as raw JSON bytes) for this tool's parameters.
	Parameters() json.RawMessage
	// Execute runs the tool. Problems the model can react to are reported in
	// the returned string; a non-nil error is reserved for internal faults.
	Execute(ctx context.Context, params map[string]any) (string, error)
}
