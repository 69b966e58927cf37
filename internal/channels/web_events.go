package channels

import (
	"sync"

	"github.com/monica-concierge/monica/internal/bus"
)

// webEvent is one JSON event pushed to the storefront over SSE or WebSocket.
type webEvent struct {
	MimeType     string `json:"mime_type,omitempty"`
	Data         any    `json:"data,omitempty"`
	Role         string `json:"role,omitempty"`
	TurnComplete bool   `json:"turn_complete,omitempty"`
	Interrupted  *bool  `json:"interrupted,omitempty"`
	Error        string `json:"error,omitempty"`
}

const (
	mimeText = "text/plain"
	mimeJSON = "application/json"
)

func turnCompleteEvent() webEvent {
	interrupted := false
	return webEvent{TurnComplete: true, Interrupted: &interrupted}
}

// eventFor converts an outbound agent message to the event the frontend
// expects. Progress messages have no event.
func eventFor(msg bus.OutboundMessage) (webEvent, bool) {
	switch {
	case msg.Flag(bus.MetaProgress):
		return webEvent{}, false
	case msg.Flag(bus.MetaTurnComplete):
		return turnCompleteEvent(), true
	}
	if products, ok := msg.Metadata()[bus.MetaProducts]; ok {
		return webEvent{MimeType: mimeJSON, Data: products}, true
	}
	if msg.Content() == "" {
		return webEvent{}, false
	}
	return webEvent{MimeType: mimeText, Data: msg.Content(), Role: "model"}, true
}

// eventHub fans events out to the open streams of each chat.
type eventHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan webEvent]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[string]map[chan webEvent]struct{})}
}

// subscribe registers a stream for chatID. The returned func unregisters it.
func (h *eventHub) subscribe(chatID string) (<-chan webEvent, func()) {
	ch := make(chan webEvent, 64)

	h.mu.Lock()
	if h.subs[chatID] == nil {
		h.subs[chatID] = make(map[chan webEvent]struct{})
	}
	h.subs[chatID][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[chatID], ch)
		if len(h.subs[chatID]) == 0 {
			delete(h.subs, chatID)
		}
	}
}

// publish delivers ev to every stream of chatID and returns how many got it.
// A stream whose buffer is full misses the event.
func (h *eventHub) publish(chatID string, ev webEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for ch := range h.subs[chatID] {
		select {
		case ch <- ev:
			n++
		default:
		}
	}
	return n
}
