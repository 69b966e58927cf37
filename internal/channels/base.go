// Package channels connects customers to the agent: the web channel used by
// the storefront and the terminal channel used by `monica agent`.
package channels

import (
	"log/slog"

	"github.com/monica-concierge/monica/internal/bus"
)

// Base holds common state and helper methods shared by all channels.
type Base struct {
	channelName bus.ChannelType
	b           bus.Bus
	allowFrom   []string // empty = allow all
}

// NewBase creates a Base with the given channel name, bus, and allowlist.
func NewBase(name bus.ChannelType, b bus.Bus, allowFrom []string) Base {
	return Base{channelName: name, b: b, allowFrom: allowFrom}
}

// IsAllowed checks whether senderID is on the allowlist.
func (b *Base) IsAllowed(senderID string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	for _, allowed := range b.allowFrom {
		if allowed == senderID {
			return true
		}
	}
	return false
}

// HandleMessage verifies the sender is allowed, then pushes an InboundMessage
// to the bus. It reports whether the message was accepted.
func (b *Base) HandleMessage(
	senderID, chatID, content string,
	media []string,
	metadata map[string]any,
) bool {
	if !b.IsAllowed(senderID) {
		slog.Warn("access denied", "channel", b.channelName, "sender", senderID)
		return false
	}

	msg := bus.NewInboundMessage(b.channelName, senderID, chatID, content)
	msg.SetMedia(media)
	msg.SetMetadata(metadata)
	b.b.PublishInbound(msg)
	return true
}
