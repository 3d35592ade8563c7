// Package memory provides in-memory implementations of the gateway stores.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/gateway-go/domain/event"
	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/infrastructure/logging"
)

// MessageLog is an in-memory implementation of message.Log. Every
// append and clear is published to the event bus while the log lock is
// held, so observers see mutations in log order.
type MessageLog struct {
	messages  []message.Message
	publisher event.Publisher
	mu        sync.RWMutex
}

// NewMessageLog creates an in-memory message log. The publisher may be
// nil, in which case mutations are not observable.
func NewMessageLog(publisher event.Publisher) *MessageLog {
	return &MessageLog{publisher: publisher}
}

// Append adds a message to the end of the log and returns it with its
// assigned identity and timestamp.
func (l *MessageLog) Append(m message.Message) message.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	l.messages = append(l.messages, m)

	l.publish(event.TypeMessageAppended, event.MessageAppendedPayload{Message: m})
	return m
}

// Clear empties the log.
func (l *MessageLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := len(l.messages)
	l.messages = nil

	l.publish(event.TypeLogCleared, event.LogClearedPayload{Dropped: dropped})
}

// Snapshot returns a copy of the log in insertion order.
func (l *MessageLog) Snapshot() []message.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]message.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages in the log.
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// publish emits a store event (must hold lock).
func (l *MessageLog) publish(typ event.Type, payload any) {
	if l.publisher == nil {
		return
	}
	e, err := event.New(typ, payload)
	if err != nil {
		logging.Error().
			Add(logging.Component("message_log")).
			Add(logging.EventType(string(typ))).
			Add(logging.ErrorField(err)).
			Msg("failed to build store event")
		return
	}
	l.publisher.Publish(e)
}

// Ensure MessageLog implements message.Log
var _ message.Log = (*MessageLog)(nil)
