package schema

import "context"

type AgentSettings struct {
	Model        string
	MaxIter      int
	Temperature  float64
	MaxTokens    int
	MemoryWindow int
}

func NewAgentSettings(model string, maxIter int, temperature float64, maxTokens int, memoryWindow int) AgentSettings {
	return AgentSettings{
		Model:        model,
		MaxIter:      maxIter,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		MemoryWindow: memoryWindow,
	}
}

type AgentLooper interface {
	// ProcessDirect handles one message outside the bus (CLI single-shot mode).
	ProcessDirect(ctx context.Context, content, key, senderID string) string
	// Run consumes messages from the bus until ctx is cancelled.
	Run(ctx context.Context) error
}
