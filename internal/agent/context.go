package agent

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/monica-concierge/monica/internal/artifact"
	"github.com/monica-concierge/monica/internal/schema"
)

// PromptContext assembles the message list sent to the LLM.
type PromptContext struct {
	def Definition
}

func NewPromptContext(def Definition) *PromptContext {
	return &PromptContext{def: def}
}

// SystemPrompt returns the assistant instruction.
func (pc *PromptContext) SystemPrompt() string {
	return pc.def.Instruction
}

// BuildMessages builds the complete message list for an LLM call:
// system prompt, session history, then the current user message.
func (pc *PromptContext) BuildMessages(history schema.Messages, currentMessage string, media []string) schema.Messages {
	messages := schema.NewMessages()
	messages.AddSystem(pc.SystemPrompt())
	messages.Append(history)
	messages.AddUser(buildUserContent(currentMessage, media))
	return messages
}

// buildUserContent builds user content, embedding base64 images when media is provided.
func buildUserContent(text string, media []string) any {
	if len(media) == 0 {
		return text
	}

	var blocks []map[string]any
	for _, path := range media {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read media", "path", path, "err", err)
			continue
		}
		mimeType := mediaType(path, data)
		if !strings.HasPrefix(mimeType, "image/") {
			slog.Warn("skipping non-image media", "path", path, "type", mimeType)
			continue
		}
		blocks = append(blocks, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))},
		})
	}

	if len(blocks) == 0 {
		return text
	}
	return append(blocks, map[string]any{"type": "text", "text": text})
}

// mediaType prefers the type recorded at upload, then the file extension,
// then the content itself.
func mediaType(path string, data []byte) string {
	if t := artifact.MimeType(path); t != "" {
		return t
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); strings.HasPrefix(t, "image/") {
		return t
	}
	return http.DetectContentType(data)
}
