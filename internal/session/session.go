package session

import (
	"sync"
	"time"

	"github.com/monica-concierge/monica/internal/schema"
)

// Session holds one conversation's messages and metadata.
type Session struct {
	Key       string
	Messages  schema.Messages
	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  map[string]any

	mu sync.Mutex
}

func newSession(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		Messages:  schema.NewMessages(),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]any{},
	}
}

// AddUser appends a user message to the session.
func (s *Session) AddUser(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages.AddUser(content)
	s.UpdatedAt = time.Now()
}

// AddAssistant appends a final assistant reply to the session.
func (s *Session) AddAssistant(content string, toolsUsed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := content
	s.Messages.Add(schema.Message{
		Role:      schema.RoleAssistant,
		Content:   &c,
		ToolsUsed: toolsUsed,
	})
	s.UpdatedAt = time.Now()
}

// AddMessages appends messages produced during a turn (assistant tool calls
// and their results) in order.
func (s *Session) AddMessages(msgs []schema.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.Messages.Add(m)
	}
	s.UpdatedAt = time.Now()
}

// History returns at most maxMessages recent messages for the LLM.
// The window always starts at a user message so that it never opens with
// a tool result whose assistant tool call was cut off.
func (s *Session) History(maxMessages int) schema.Messages {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.Messages.Messages
	if maxMessages > 0 && len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	for len(msgs) > 0 && msgs[0].Role != schema.RoleUser {
		msgs = msgs[1:]
	}

	return schema.NewMessages(msgs...)
}

// Len returns the number of messages in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Messages.Len()
}

// Clear drops all messages.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = schema.NewMessages()
	s.UpdatedAt = time.Now()
}
