// Package event provides the in-process event bus with snapshot replay.
package event

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/gateway-go/domain/event"
	"github.com/felixgeelhaar/gateway-go/infrastructure/logging"
)

// defaultBufferSize is the per-subscriber channel capacity.
const defaultBufferSize = 64

// SnapshotFunc produces the current observable state. It reads the
// stores directly and must not be invoked while holding a lock those
// stores publish under.
type SnapshotFunc func() event.Snapshot

// Bus fans events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses events rather than stalling
// the stores that publish.
type Bus struct {
	mu       sync.Mutex
	snapshot SnapshotFunc
	subs     map[int]*subscriber
	nextID   int
	seq      uint64
	bufSize  int
	closed   bool
	done     chan struct{}
}

type subscriber struct {
	ch      chan event.Event
	dropped uint64
}

// Option configures the bus.
type Option func(*Bus)

// WithBufferSize sets the per-subscriber channel capacity.
func WithBufferSize(size int) Option {
	return func(b *Bus) {
		if size > 0 {
			b.bufSize = size
		}
	}
}

// NewBus creates a bus. The snapshot function may be nil until
// SetSnapshotFunc is called; subscribers attached before then receive
// an empty snapshot.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:    make(map[int]*subscriber),
		bufSize: defaultBufferSize,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetSnapshotFunc installs the state capture used for replay-on-attach.
func (b *Bus) SetSnapshotFunc(fn SnapshotFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = fn
}

// Publish assigns the event its sequence number and delivers it to all
// subscribers without blocking.
func (b *Bus) Publish(e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.seq++
	e.Sequence = b.seq

	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			sub.dropped++
			logging.Warn().
				Add(logging.EventType(string(e.Type))).
				Add(logging.Component("event_bus")).
				Msg("subscriber buffer full, event dropped")
		}
	}
}

// Subscribe attaches a new subscriber. The returned snapshot reflects
// state at the moment of attachment; every event published afterwards
// is delivered on the channel. The channel is closed when ctx is done
// or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (event.Snapshot, <-chan event.Event, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return event.Snapshot{}, nil, event.ErrBusClosed
	}

	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan event.Event, b.bufSize)}
	b.subs[id] = sub
	fn := b.snapshot
	b.mu.Unlock()

	// The snapshot is captured after registration and without holding
	// the bus lock: stores publish while holding their own mutexes, so
	// reading them under b.mu would invert lock order against Publish.
	// A mutation racing the capture appears in the snapshot and again
	// in the buffer; the subscriber never observes a gap.
	var snap event.Snapshot
	if fn != nil {
		snap = fn()
	}

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(id)
		case <-b.done:
		}
	}()

	return snap, sub.ch, nil
}

// SubscriberCount returns the number of attached subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close detaches all subscribers and closes their channels. Close is
// idempotent; publishes after Close are discarded.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)

	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
	return nil
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// Ensure Bus implements event.Bus
var _ event.Bus = (*Bus)(nil)
