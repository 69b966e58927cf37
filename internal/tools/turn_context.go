package tools

import (
	"context"
	"sync"

	"github.com/monica-concierge/monica/internal/bus"
)

// TurnContext carries per-turn routing metadata through the context tree.
// It is set by the agent loop once per message and read by the tools that
// need to know who they are serving.
type TurnContext struct {
	Channel    bus.ChannelType
	ChatID     string
	SenderID   string
	SessionKey string

	// Attachments collects artifact paths queued by load_artifacts. The loop
	// runner drains it after each tool round.
	Attachments *Attachments
}

// Attachments is a queue of image paths to show the model on its next call.
type Attachments struct {
	mu    sync.Mutex
	paths []string
}

// Add queues paths.
func (a *Attachments) Add(paths ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths = append(a.paths, paths...)
}

// Drain returns the queued paths and empties the queue.
func (a *Attachments) Drain() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.paths
	a.paths = nil
	return out
}

type turnKey struct{}

// WithTurn returns a child context that carries tc.
func WithTurn(ctx context.Context, tc TurnContext) context.Context {
	return context.WithValue(ctx, turnKey{}, tc)
}

// TurnCtx extracts the TurnContext from ctx.
// Returns a zero-value TurnContext if none was set.
func TurnCtx(ctx context.Context) TurnContext {
	tc, _ := ctx.Value(turnKey{}).(TurnContext)
	return tc
}
