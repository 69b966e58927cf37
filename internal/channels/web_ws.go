package channels

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The storefront is served from its own origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWS is the bidirectional counterpart of /events and /send: it reads
// client frames and writes the chat's events on one connection.
func (c *WebChannel) handleWS(w http.ResponseWriter, r *http.Request) {
	user, session, ok := c.chatParams(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	id := chatID(user, session)
	events, unsubscribe := c.hub.subscribe(id)
	defer unsubscribe()

	c.log.Info("client connected", "transport", "ws", "chat", id)

	// gorilla/websocket allows one concurrent writer, so the reader hands
	// its errors to the write loop.
	rejected := make(chan string, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var f clientFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if err := c.accept(user, session, f); err != nil {
				select {
				case rejected <- err.Error():
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-done:
			c.log.Info("client disconnected", "transport", "ws", "chat", id)
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				c.log.Warn("websocket write failed", "chat", id, "err", err)
				return
			}
		case msg := <-rejected:
			if err := conn.WriteJSON(webEvent{Error: msg}); err != nil {
				return
			}
		}
	}
}
