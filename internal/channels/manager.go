package channels

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/monica-concierge/monica/internal/bus"
	"github.com/monica-concierge/monica/internal/schema"
)

// Manager owns the enabled channels and routes outbound messages to them.
type Manager struct {
	channels map[string]schema.Channel
	bus      bus.Bus
}

// NewManager creates a Manager for the given channels.
func NewManager(b bus.Bus, chans ...schema.Channel) *Manager {
	m := &Manager{
		channels: make(map[string]schema.Channel, len(chans)),
		bus:      b,
	}
	for _, ch := range chans {
		m.channels[ch.Name()] = ch
		slog.Info("channel enabled", "name", ch.Name())
	}
	return m
}

// EnabledChannels returns the names of all enabled channels, sorted.
func (m *Manager) EnabledChannels() []string {
	names := make([]string, 0, len(m.channels))
	for n := range m.channels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// StartAll starts all channels and dispatches outbound messages.
// Blocks until ctx is cancelled or a channel fails; a channel returning nil
// (e.g. the terminal reaching EOF) stops the others too.
func (m *Manager) StartAll(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m.dispatchOutbound(gctx)
		return nil
	})

	for name, ch := range m.channels {
		name, ch := name, ch
		g.Go(func() error {
			slog.Info("starting channel", "name", name)
			err := ch.Start(gctx)
			if err != nil && gctx.Err() == nil {
				slog.Error("channel exited with error", "name", name, "err", err)
				return err
			}
			cancel()
			return nil
		})
	}

	return g.Wait()
}

// dispatchOutbound reads from the outbound bus and routes each message to
// the appropriate channel's Send method.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-m.bus.OutboundChan():
			ch, ok := m.channels[string(msg.Channel())]
			if !ok {
				slog.Debug("unknown channel for outbound message", "channel", msg.Channel())
				continue
			}
			if err := ch.Send(ctx, msg); err != nil {
				slog.Error("send error", "channel", msg.Channel(), "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
