// Package agent runs the storefront assistant: it turns inbound customer
// messages into LLM calls, executes the catalog tools, and publishes replies.
package agent

import "github.com/monica-concierge/monica/internal/tools"

const (
	DefinitionName = "product_search_agent"
	DefaultModel   = "gemini/gemini-2.0-flash-exp"
)

// Definition describes the assistant: who it is, which model it runs on and
// which tools it may call.
type Definition struct {
	Name        string
	Description string
	Model       string
	Instruction string
	Tools       []tools.ToolName
}

// NewDefinition returns the shopping assistant definition for model.
// An empty model selects DefaultModel.
func NewDefinition(model string) Definition {
	if model == "" {
		model = DefaultModel
	}
	return Definition{
		Name:        DefinitionName,
		Description: "Agent to answer questions.",
		Model:       model,
		Instruction: monicaInstruction,
		Tools: []tools.ToolName{
			tools.ToolLoadArtifacts,
			tools.ToolLoadProducts,
			tools.ToolFormatProducts,
		},
	}
}
