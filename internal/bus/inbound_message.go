// Package bus defines the message types that flow between channels and the agent.
package bus

import "time"

// InboundMessage is a message received from a channel.
type InboundMessage struct {
	channel   ChannelType
	senderID  string         // user identifier within the channel
	chatID    string         // conversation identifier
	content   string         // message text
	timestamp time.Time      // when the message was received
	media     []string       // local paths of uploaded images
	metadata  map[string]any // channel-specific extra data
}

// NewInboundMessage creates an InboundMessage with the timestamp set to now.
func NewInboundMessage(channel ChannelType, senderID, chatID, content string) InboundMessage {
	return InboundMessage{
		channel:   channel,
		senderID:  senderID,
		chatID:    chatID,
		content:   content,
		timestamp: time.Now(),
	}
}

func (m InboundMessage) Channel() ChannelType           { return m.channel }
func (m InboundMessage) SenderID() string               { return m.senderID }
func (m InboundMessage) ChatID() string                 { return m.chatID }
func (m InboundMessage) Content() string                { return m.content }
func (m InboundMessage) Timestamp() time.Time           { return m.timestamp }
func (m InboundMessage) Media() []string                { return m.media }
func (m InboundMessage) Metadata() map[string]any       { return m.metadata }
func (m *InboundMessage) SetMedia(media []string)       { m.media = media }
func (m *InboundMessage) SetMetadata(md map[string]any) { m.metadata = md }

// SessionKey returns the key used to look up the conversation session.
// Format: "channel:chat_id".
func (m InboundMessage) SessionKey() string {
	return SessionKey(m.channel, m.chatID)
}

// SessionKey builds the session key for a chat on channel.
func SessionKey(channel ChannelType, chatID string) string {
	return string(channel) + ":" + chatID
}

// Preview returns a short snippet of the message content for logging.
func (m InboundMessage) Preview() string {
	preview := m.content
	if len(preview) > 80 {
		preview = preview[:80] + "..."
	}
	return preview
}
