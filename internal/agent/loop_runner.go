package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/monica-concierge/monica/internal/schema"
	"github.com/monica-concierge/monica/internal/shared/llmutils"
	"github.com/monica-concierge/monica/internal/tools"
)

const (
	errLLMReply     = "Sorry, I'm having trouble right now. Please try again in a moment."
	maxIterReply    = "Sorry, I couldn't finish that request. Could you rephrase it?"
	attachmentsNote = "Here are the images you asked to load."
)

// LoopRunner executes the LLM ↔ tool iteration loop.
type LoopRunner struct {
	provider schema.LLMProvider
	settings schema.AgentSettings
	metrics  *ToolMetrics
}

func newLoopRunner(provider schema.LLMProvider, settings schema.AgentSettings, metrics *ToolMetrics) LoopRunner {
	return LoopRunner{provider: provider, settings: settings, metrics: metrics}
}

// runResult is the outcome of one customer turn.
type runResult struct {
	Content   string
	ToolsUsed []string
	// Steps are the assistant tool-call and tool-result messages produced
	// during the turn, in order. Attachment messages are not included.
	Steps []schema.Message
}

// run drives the model until it answers without tool calls or the iteration
// limit is reached. onProgress receives intermediate text only, never tool names.
func (r *LoopRunner) run(ctx context.Context, conversation schema.Messages, tls *tools.ToolList, onProgress func(string)) runResult {
	var res runResult
	attachments := tools.TurnCtx(ctx).Attachments

	for i := 0; i < r.settings.MaxIter; i++ {
		resp, err := r.provider.Chat(ctx,
			conversation,
			tls.Definitions(),
			schema.NewChatOptions(r.settings.Model, r.settings.MaxTokens, r.settings.Temperature),
		)
		if err != nil {
			slog.Error("LLM error", "err", err)
			res.Content = errLLMReply
			return res
		}
		if resp.FinishReason == "error" {
			slog.Error("LLM error response", "content", llmutils.Truncate(deref(resp.Content), 300))
			res.Content = errLLMReply
			return res
		}

		if !resp.HasToolCalls() {
			res.Content = llmutils.StripThink(deref(resp.Content))
			return res
		}

		if onProgress != nil && resp.Content != nil {
			if clean := llmutils.StripThink(*resp.Content); clean != "" {
				onProgress(clean)
			}
		}
		slog.Debug("Tool round", "iteration", i, "calls", llmutils.ToolHint(resp.ToolCalls))

		toolCalls := make([]schema.ToolCall, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			toolCalls = append(toolCalls, schema.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		}
		conversation.AddAssistant(resp.Content, toolCalls, resp.ReasoningContent)
		res.Steps = append(res.Steps, conversation.Messages[conversation.Len()-1])

		for _, tc := range resp.ToolCalls {
			res.ToolsUsed = append(res.ToolsUsed, tc.Name)
			result := r.execute(ctx, tls, tc)
			conversation.AddToolResult(tc.ID, tc.Name, result)
			res.Steps = append(res.Steps, conversation.Messages[conversation.Len()-1])
		}

		if attachments != nil {
			if paths := attachments.Drain(); len(paths) > 0 {
				conversation.AddUser(buildUserContent(attachmentsNote, paths))
			}
		}
	}

	slog.Warn("Max tool iterations reached", "max", r.settings.MaxIter, "tools", strings.Join(res.ToolsUsed, ","))
	res.Content = maxIterReply
	return res
}

// execute runs one tool call. Failures are reported back to the model as text.
func (r *LoopRunner) execute(ctx context.Context, tls *tools.ToolList, tc schema.ToolCallRequest) string {
	argsJSON, _ := json.Marshal(tc.Arguments)
	slog.Info("Tool call", "name", tc.Name, "args", llmutils.Truncate(string(argsJSON), 200))

	t := tls.Get(tc.Name)
	if t == nil {
		r.metrics.observe(tc.Name, "unknown")
		return fmt.Sprintf("Error: Tool '%s' not found", tc.Name)
	}

	result, err := t.Execute(ctx, tc.Arguments)
	if err != nil {
		slog.Warn("Tool failed", "name", tc.Name, "err", err)
		r.metrics.observe(tc.Name, "error")
		return "Error: " + err.Error()
	}
	r.metrics.observe(tc.Name, "ok")
	return result
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
