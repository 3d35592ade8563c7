package event

import (
	"context"

	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/provider"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
)

// Snapshot captures the full observable state at subscription time. A
// new subscriber receives one snapshot before any live events so it
// never sees a gap between the replayed state and the event stream.
type Snapshot struct {
	// Config summarizes the active gateway configuration.
	Config map[string]string `json:"config,omitempty"`

	// Messages is the full conversation log in append order.
	Messages []message.Message `json:"messages"`

	// Tools is the full tool catalog.
	Tools []tool.Spec `json:"tools"`

	// Providers is the full provider catalog.
	Providers []provider.Record `json:"providers"`
}

// Publisher emits events to subscribers. Publish never blocks: a
// subscriber that cannot keep up has events dropped rather than
// stalling the publisher.
type Publisher interface {
	Publish(e Event)
}

// Bus fans events out to subscribers with snapshot replay on attach.
type Bus interface {
	Publisher

	// Subscribe registers a new subscriber. The returned snapshot
	// reflects state at the moment of attachment; every event published
	// after that moment is delivered on the channel. The channel is
	// closed when ctx is done or the bus is closed.
	Subscribe(ctx context.Context) (Snapshot, <-chan Event, error)

	// Close shuts the bus down and closes all subscriber channels.
	// Close is idempotent.
	Close() error
}
