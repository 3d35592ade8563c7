package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/session"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for gateway runtime logging.

// SessionID adds a session ID field.
func SessionID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("session_id", id)
	}
}

// Turn adds a turn counter field.
func Turn(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("turn", n)
	}
}

// State adds a session state field.
func State(s session.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("state", string(s))
	}
}

// Role adds a message role field.
func Role(r message.Role) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("role", string(r))
	}
}

// ToolName adds a tool name field.
func ToolName(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("tool", name)
	}
}

// CallID adds a tool call correlation ID field.
func CallID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("call_id", id)
	}
}

// Provider adds a provider name field.
func Provider(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("provider", name)
	}
}

// Backend adds a model backend field.
func Backend(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("backend", name)
	}
}

// Model adds a model name field.
func Model(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("model", name)
	}
}

// EventType adds a store event type field.
func EventType(t string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("event_type", t)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Count adds a count field with a custom key.
func Count(key string, n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, n)
	}
}

// Failed adds a failed field.
func Failed(failed bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("failed", failed)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
