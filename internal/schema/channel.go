package schema

import (
	"context"

	"github.com/monica-concierge/monica/internal/bus"
)

// Channel is the interface every customer-facing transport must implement.
type Channel interface {
	// Name returns the unique channel identifier (e.g. "web").
	Name() string
	// Start begins serving; it blocks until ctx is cancelled.
	Start(ctx context.Context) error
	// Send delivers an outbound message to the customer.
	Send(ctx context.Context, msg bus.OutboundMessage) error
}
