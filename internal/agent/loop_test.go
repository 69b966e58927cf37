package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/monica-concierge/monica/internal/artifact"
	"github.com/monica-concierge/monica/internal/bus"
	"github.com/monica-concierge/monica/internal/catalog"
	"github.com/monica-concierge/monica/internal/schema"
	"github.com/monica-concierge/monica/internal/session"
	"github.com/monica-concierge/monica/internal/tools"
)

// scriptedProvider replays canned responses and records every conversation
// it was called with. Once the script is exhausted it returns fallback.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []schema.LLMResponse
	fallback  schema.LLMResponse
	err       error
	calls     []schema.Messages
}

func (p *scriptedProvider) Chat(_ context.Context, msgs schema.Messages, _ []map[string]any, _ schema.ChatOptions) (schema.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, msgs.Clone())
	if p.err != nil {
		return schema.LLMResponse{}, p.err
	}
	if len(p.responses) == 0 {
		return p.fallback, nil
	}
	r := p.responses[0]
	p.responses = p.responses[1:]
	return r, nil
}

func (p *scriptedProvider) DefaultModel() string { return DefaultModel }

func text(s string) schema.LLMResponse {
	return schema.LLMResponse{Content: &s, FinishReason: "stop"}
}

func call(id, name string, args map[string]any) schema.LLMResponse {
	return schema.LLMResponse{
		ToolCalls:    []schema.ToolCallRequest{{ID: id, Name: name, Arguments: args}},
		FinishReason: "tool_calls",
	}
}

type fixture struct {
	loop     *AgentLoop
	bus      *bus.MessageBus
	sessions *session.Manager
	store    *artifact.Store
	reg      *prometheus.Registry
}

func newFixture(t *testing.T, p schema.LLMProvider) fixture {
	t.Helper()
	dir := t.TempDir()

	b := bus.NewMessageBus(32)
	sessions, err := session.NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	store, err := artifact.NewStore(filepath.Join(dir, "artifacts"))
	if err != nil {
		t.Fatal(err)
	}
	cat := catalog.Default()
	registry := tools.NewRegistryBuilder().
		WithTool(tools.NewLoadProductsTool(cat)).
		WithTool(tools.NewFormatProductsTool(cat, b)).
		WithTool(tools.NewLoadArtifactsTool(store)).
		Build()

	reg := prometheus.NewRegistry()
	settings := schema.NewAgentSettings("", 5, 0.2, 1024, 20)
	loop := NewAgentLoop(b, p, NewDefinition(""), settings, sessions, registry, NewToolMetrics(reg))
	return fixture{loop: loop, bus: b, sessions: sessions, store: store, reg: reg}
}

func drainOutbound(b *bus.MessageBus) []bus.OutboundMessage {
	var out []bus.OutboundMessage
	for b.OutboundSize() > 0 {
		out = append(out, <-b.OutboundChan())
	}
	return out
}

func TestProcessDirect_RecommendationTurn(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		call("c1", "load_products_details", nil),
		call("c2", "format_product_response", map[string]any{"product_ids": []any{"7", "1"}}),
		text("<think>jackets</think>The Classic Denim Jacket is on sale!"),
	}}
	f := newFixture(t, p)

	got := f.loop.ProcessDirect(context.Background(), "I need a jacket", "cli:test", "user")
	if got != "The Classic Denim Jacket is on sale!" {
		t.Fatalf("unexpected reply: %q", got)
	}

	if len(p.calls) != 3 {
		t.Fatalf("expected 3 LLM calls, got %d", len(p.calls))
	}
	first := p.calls[0].Messages
	if first[0].Role != schema.RoleSystem || first[0].Text() != monicaInstruction {
		t.Error("first message should be the system prompt")
	}
	last := p.calls[2].Messages
	if tr := last[len(last)-1]; tr.Role != schema.RoleTool || tr.ToolCallID != "c2" {
		t.Errorf("expected the format tool result last, got %+v", tr)
	}

	var cards []catalog.Selection
	for _, out := range drainOutbound(f.bus) {
		if sel, ok := out.Metadata()[bus.MetaProducts].([]catalog.Selection); ok {
			cards = sel
		}
	}
	want := []catalog.Selection{{Name: "Classic Denim Jacket", Price: "89.99"}, {Name: "Wool Blend Coat", Price: "189.99"}}
	if len(cards) != 2 || cards[0] != want[0] || cards[1] != want[1] {
		t.Errorf("unexpected product cards: %+v", cards)
	}

	ses := f.sessions.GetOrCreate("cli:test")
	if ses.Len() != 6 {
		t.Errorf("expected user, 2 tool rounds and reply in session, got %d messages", ses.Len())
	}
}

func TestHandleMessage_ReplyThenTurnComplete(t *testing.T) {
	f := newFixture(t, &scriptedProvider{fallback: text("Hello! What are you shopping for?")})

	msg := bus.NewInboundMessage(bus.ChannelWeb, "alice", "alice_s1", "hi")
	f.loop.handleMessage(context.Background(), msg)

	out := drainOutbound(f.bus)
	if len(out) != 2 {
		t.Fatalf("expected reply and marker, got %d messages", len(out))
	}
	if out[0].Content() != "Hello! What are you shopping for?" || out[0].ChatID() != "alice_s1" {
		t.Errorf("unexpected reply: %q", out[0].Content())
	}
	if !out[1].Flag(bus.MetaTurnComplete) || out[1].Content() != "" {
		t.Errorf("second message should be the turn-complete marker: %+v", out[1].Metadata())
	}
}

func TestProcessDirect_LoadArtifactsAttachesImage(t *testing.T) {
	p := &scriptedProvider{fallback: text("Nice top!")}
	f := newFixture(t, p)

	a, err := f.store.Save("cli:test", "top.png", "image/png", []byte("\x89PNG"))
	if err != nil {
		t.Fatal(err)
	}
	p.responses = []schema.LLMResponse{call("c1", "load_artifacts", map[string]any{"artifact_names": []any{a.Name}})}

	if got := f.loop.ProcessDirect(context.Background(), "what goes with this?", "cli:test", "user"); got != "Nice top!" {
		t.Fatalf("unexpected reply: %q", got)
	}

	msgs := p.calls[1].Messages
	att := msgs[len(msgs)-1]
	blocks, ok := att.Content.([]map[string]any)
	if att.Role != schema.RoleUser || !ok || len(blocks) != 2 || blocks[0]["type"] != "image_url" {
		t.Fatalf("expected an image user message after the tool round, got %+v", att)
	}

	// Attachment messages are not persisted.
	ses := f.sessions.GetOrCreate("cli:test")
	for _, m := range ses.Messages.Messages[1:] {
		if m.Role == schema.RoleUser {
			t.Errorf("unexpected persisted user message: %+v", m)
		}
	}
}

func TestProcessDirect_LoadArtifactsUsesRecordedImageType(t *testing.T) {
	for _, tc := range []struct{ name, mimeType string }{
		{"look.txt", "image/png"},
		{"", "image/heic"},
	} {
		p := &scriptedProvider{fallback: text("Lovely.")}
		f := newFixture(t, p)

		a, err := f.store.Save("cli:test", tc.name, tc.mimeType, []byte("\x89PNG\r\n\x1a\n"))
		if err != nil {
			t.Fatal(err)
		}
		p.responses = []schema.LLMResponse{call("c1", "load_artifacts", map[string]any{"artifact_names": []any{a.Name}})}

		f.loop.ProcessDirect(context.Background(), "does this fit?", "cli:test", "user")

		msgs := p.calls[1].Messages
		blocks, ok := msgs[len(msgs)-1].Content.([]map[string]any)
		if !ok || len(blocks) != 2 {
			t.Fatalf("%s: image not attached: %+v", tc.mimeType, msgs[len(msgs)-1])
		}
		url, _ := blocks[0]["image_url"].(map[string]any)["url"].(string)
		if !strings.HasPrefix(url, "data:"+tc.mimeType+";base64,") {
			t.Errorf("%s: unexpected data url prefix: %.40s", tc.mimeType, url)
		}
	}
}

func TestBuildUserContent_SniffsLooseFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.dat")
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n0000"), 0o644); err != nil {
		t.Fatal(err)
	}
	blocks, ok := buildUserContent("hi", []string{path}).([]map[string]any)
	if !ok || len(blocks) != 2 {
		t.Fatalf("expected image and text blocks, got %#v", blocks)
	}

	textPath := filepath.Join(t.TempDir(), "notes.dat")
	if err := os.WriteFile(textPath, []byte("just words"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := buildUserContent("hi", []string{textPath}); got != "hi" {
		t.Errorf("non-image media should be skipped, got %#v", got)
	}
}

func TestSlashCommands(t *testing.T) {
	p := &scriptedProvider{fallback: text("ok")}
	f := newFixture(t, p)
	ctx := context.Background()

	f.loop.ProcessDirect(ctx, "hello", "cli:test", "user")
	if got := f.loop.ProcessDirect(ctx, "/help", "cli:test", "user"); got != helpReply {
		t.Errorf("unexpected help: %q", got)
	}
	if got := f.loop.ProcessDirect(ctx, "/NEW ", "cli:test", "user"); got != newReply {
		t.Errorf("unexpected /new reply: %q", got)
	}
	if n := f.sessions.GetOrCreate("cli:test").Len(); n != 0 {
		t.Errorf("expected empty session after /new, got %d messages", n)
	}
	if len(p.calls) != 1 {
		t.Errorf("slash commands must not reach the model, got %d calls", len(p.calls))
	}
}

func TestRunner_UnknownToolStopsAtMaxIter(t *testing.T) {
	p := &scriptedProvider{fallback: call("c", "web_search", nil)}
	f := newFixture(t, p)

	if got := f.loop.ProcessDirect(context.Background(), "hi", "cli:test", "user"); got != maxIterReply {
		t.Fatalf("unexpected reply: %q", got)
	}
	if len(p.calls) != 5 {
		t.Errorf("expected MaxIter calls, got %d", len(p.calls))
	}
	last := p.calls[len(p.calls)-1].Messages
	if tr := last[len(last)-1]; tr.Text() != "Error: Tool 'web_search' not found" {
		t.Errorf("unexpected tool result: %q", tr.Text())
	}
	if v := counterValue(t, f.reg, "monica_tool_calls_total", map[string]string{"tool": "web_search", "outcome": "unknown"}); v != 5 {
		t.Errorf("expected 5 unknown tool calls counted, got %v", v)
	}
}

func TestRunner_ProviderError(t *testing.T) {
	f := newFixture(t, &scriptedProvider{err: errors.New("connection refused")})
	if got := f.loop.ProcessDirect(context.Background(), "hi", "cli:test", "user"); got != errLLMReply {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestRunner_ErrorFinishReason(t *testing.T) {
	msg := "HTTP 429: rate limit exceeded"
	f := newFixture(t, &scriptedProvider{fallback: schema.LLMResponse{Content: &msg, FinishReason: "error"}})
	if got := f.loop.ProcessDirect(context.Background(), "hi", "cli:test", "user"); got != errLLMReply {
		t.Errorf("upstream errors must not reach the customer: %q", got)
	}
}

func TestRunner_ProgressOmitsToolNames(t *testing.T) {
	thinking := "Let me look at our jackets."
	p := &scriptedProvider{
		responses: []schema.LLMResponse{{
			Content:      &thinking,
			ToolCalls:    []schema.ToolCallRequest{{ID: "c1", Name: "load_products_details"}},
			FinishReason: "tool_calls",
		}},
		fallback: text("Here they are."),
	}
	f := newFixture(t, p)
	f.loop.handleMessage(context.Background(), bus.NewInboundMessage(bus.ChannelWeb, "u", "s", "jackets?"))

	for _, out := range drainOutbound(f.bus) {
		if out.Flag(bus.MetaProgress) && out.Content() != thinking {
			t.Errorf("unexpected progress content: %q", out.Content())
		}
	}
}

func TestBuildMessages(t *testing.T) {
	pc := NewPromptContext(NewDefinition(""))
	history := schema.NewMessages()
	history.AddUser("earlier")

	msgs := pc.BuildMessages(history, "now", nil)
	if msgs.Len() != 3 {
		t.Fatalf("expected 3 messages, got %d", msgs.Len())
	}
	if msgs.Messages[1].Text() != "earlier" || msgs.Messages[2].Content != "now" {
		t.Errorf("unexpected order: %+v", msgs.Messages)
	}
}

func TestNewDefinition(t *testing.T) {
	def := NewDefinition("")
	if def.Name != "product_search_agent" || def.Model != "gemini/gemini-2.0-flash-exp" {
		t.Errorf("unexpected definition: %+v", def)
	}
	if len(def.Tools) != 3 {
		t.Errorf("expected 3 tools, got %v", def.Tools)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					match = false
					break
				}
			}
			if match {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
