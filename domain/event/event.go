// Package event provides domain types and interfaces for store observation.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event represents a mutation of one of the gateway's stores.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Type classifies the event.
	Type Type `json:"type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Payload contains the event-specific data.
	Payload json.RawMessage `json:"payload"`

	// Sequence is the ordering number within the bus's event stream.
	Sequence uint64 `json:"sequence"`
}

// New creates a new event with the given type and payload.
func New(eventType Type, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   data,
	}, nil
}

// UnmarshalPayload decodes the event payload into the given value.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}
