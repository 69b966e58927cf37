package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/monica-concierge/monica/internal/bus"
	"github.com/monica-concierge/monica/internal/schema"
	"github.com/monica-concierge/monica/internal/session"
	"github.com/monica-concierge/monica/internal/shared/llmutils"
	"github.com/monica-concierge/monica/internal/tools"
)

const (
	emptyReply = "I'm here to help you find something you'll love. What are you shopping for today?"
	newReply   = "New conversation started. How can I help you today?"
	helpReply  = "Commands:\n/new - Start a new conversation\n/help - Show available commands"
)

// AgentLoop is the core processing engine.
//
// It reads InboundMessages from the bus, runs the assistant for each one and
// publishes the reply followed by a turn-complete marker. Each inbound
// message is handled in its own goroutine; messages of the same session are
// serialised.
type AgentLoop struct {
	bus      bus.Bus
	settings schema.AgentSettings

	prompt   *PromptContext
	sessions *session.Manager
	tools    *tools.ToolList
	runner   LoopRunner

	locks sync.Map // session key → *sync.Mutex
}

// NewAgentLoop creates an AgentLoop exposing the tools named by def.
func NewAgentLoop(
	b bus.Bus,
	provider schema.LLMProvider,
	def Definition,
	settings schema.AgentSettings,
	sessions *session.Manager,
	registry *tools.Registry,
	metrics *ToolMetrics,
) *AgentLoop {
	if settings.Model == "" {
		settings.Model = def.Model
	}

	var ts []schema.Tool
	for _, name := range def.Tools {
		if t := registry.GetTool(name); t != nil {
			ts = append(ts, t)
		} else {
			slog.Warn("tool not registered", "tool", name)
		}
	}

	return &AgentLoop{
		bus:      b,
		settings: settings,
		prompt:   NewPromptContext(def),
		sessions: sessions,
		tools:    tools.NewToolList(ts...),
		runner:   newLoopRunner(provider, settings, metrics),
	}
}

// Run reads from the inbound bus and processes each message in a goroutine.
// Blocks until ctx is cancelled.
func (loop *AgentLoop) Run(ctx context.Context) error {
	slog.Info("Agent loop started", "model", loop.settings.Model, "tools", strings.Join(loop.tools.Names(), ","))

	for {
		select {
		case msg := <-loop.bus.InboundChan():
			go loop.handleMessage(ctx, msg)
		case <-ctx.Done():
			slog.Info("Agent loop stopping")
			return ctx.Err()
		}
	}
}

// ProcessDirect handles a message outside the bus (CLI single-shot mode) and
// returns the final text response.
func (loop *AgentLoop) ProcessDirect(ctx context.Context, content, key, senderID string) string {
	msg := bus.NewInboundMessage(bus.ChannelCLI, senderID, "direct", content)
	out := loop.processMessage(ctx, msg, key)
	return out.Content()
}

func (loop *AgentLoop) handleMessage(ctx context.Context, msg bus.InboundMessage) {
	out := loop.processMessage(ctx, msg, "")
	loop.bus.PublishOutbound(out)

	done := bus.NewOutboundMessage(msg.Channel(), msg.ChatID(), "")
	done.SetMetadata(withMeta(msg.Metadata(), bus.MetaTurnComplete))
	loop.bus.PublishOutbound(done)
}

// processMessage runs one customer turn. sessionKeyOverride is non-empty only
// when called from ProcessDirect.
func (loop *AgentLoop) processMessage(ctx context.Context, msg bus.InboundMessage, sessionKeyOverride string) bus.OutboundMessage {
	key := llmutils.StringOrDefault(sessionKeyOverride, msg.SessionKey())

	mu := loop.sessionLock(key)
	mu.Lock()
	defer mu.Unlock()

	slog.Info(
		"Processing message",
		"sender", msg.SenderID(),
		"channel", msg.Channel(),
		"session", key,
		"media", len(msg.Media()),
		"content", llmutils.Truncate(msg.Content(), 80),
	)

	ses := loop.sessions.GetOrCreate(key)

	if reply, ok := loop.handleSlashCommand(msg, ses, key); ok {
		return loop.reply(msg, reply)
	}

	ctx = tools.WithTurn(ctx, tools.TurnContext{
		Channel:     msg.Channel(),
		ChatID:      msg.ChatID(),
		SenderID:    msg.SenderID(),
		SessionKey:  key,
		Attachments: &tools.Attachments{},
	})

	conversation := loop.prompt.BuildMessages(
		ses.History(loop.settings.MemoryWindow),
		msg.Content(),
		msg.Media(),
	)

	res := loop.runner.run(ctx, conversation, loop.tools, loop.progressCallback(msg))
	final := llmutils.StringOrDefault(res.Content, emptyReply)

	slog.Info("Response", "channel", msg.Channel(), "sender", msg.SenderID(), "length", len(final), "tools", len(res.ToolsUsed))

	ses.AddUser(msg.Content())
	ses.AddMessages(res.Steps)
	ses.AddAssistant(final, res.ToolsUsed)
	if err := loop.sessions.Save(ses); err != nil {
		slog.Error("failed to save session", "session", key, "err", err)
	}

	return loop.reply(msg, final)
}

// handleSlashCommand handles a known slash command. It reports false when
// the message is not a command.
func (loop *AgentLoop) handleSlashCommand(msg bus.InboundMessage, ses *session.Session, key string) (string, bool) {
	switch strings.TrimSpace(strings.ToLower(msg.Content())) {
	case "/new":
		ses.Clear()
		if err := loop.sessions.Save(ses); err != nil {
			slog.Error("failed to save session", "session", key, "err", err)
		}
		loop.sessions.Invalidate(key)
		return newReply, true
	case "/help":
		return helpReply, true
	}
	return "", false
}

func (loop *AgentLoop) reply(msg bus.InboundMessage, content string) bus.OutboundMessage {
	out := bus.NewOutboundMessage(msg.Channel(), msg.ChatID(), content)
	out.SetMetadata(msg.Metadata())
	return out
}

func (loop *AgentLoop) sessionLock(key string) *sync.Mutex {
	v, _ := loop.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// progressCallback returns a function that pushes intermediate model text to
// the outbound bus. Channels decide whether to show it.
func (loop *AgentLoop) progressCallback(msg bus.InboundMessage) func(string) {
	return func(content string) {
		out := bus.NewOutboundMessage(msg.Channel(), msg.ChatID(), content)
		out.SetMetadata(withMeta(msg.Metadata(), bus.MetaProgress))
		loop.bus.PublishOutbound(out)
	}
}

// withMeta copies base and sets flag to true.
func withMeta(base map[string]any, flag string) map[string]any {
	meta := make(map[string]any, len(base)+1)
	for k, v := range base {
		meta[k] = v
	}
	meta[flag] = true
	return meta
}
