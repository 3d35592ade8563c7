package event

import (
	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
)

// Type classifies store mutation events.
type Type string

// Event types for the gateway stores.
const (
	// Message log events
	TypeMessageAppended Type = "message.appended"
	TypeLogCleared      Type = "log.cleared"

	// Tool registry events
	TypeToolAdded   Type = "tool.added"
	TypeToolRemoved Type = "tool.removed"

	// Provider registry events
	TypeProviderAdded   Type = "provider.added"
	TypeProviderRemoved Type = "provider.removed"
)

// Event payload structures

// MessageAppendedPayload contains data for message.appended events.
type MessageAppendedPayload struct {
	Message message.Message `json:"message"`
}

// LogClearedPayload contains data for log.cleared events.
type LogClearedPayload struct {
	// Dropped is the number of messages removed by the clear.
	Dropped int `json:"dropped"`
}

// ToolAddedPayload contains data for tool.added events. Replacement of
// an existing name carries the final definition.
type ToolAddedPayload struct {
	Spec     tool.Spec   `json:"spec"`
	Origin   tool.Origin `json:"origin"`
	Replaced bool        `json:"replaced,omitempty"`
}

// ToolRemovedPayload contains data for tool.removed events.
type ToolRemovedPayload struct {
	Name   string      `json:"name"`
	Origin tool.Origin `json:"origin"`
}

// ProviderAddedPayload contains data for provider.added events.
type ProviderAddedPayload struct {
	Name  string   `json:"name"`
	Tools []string `json:"tools"`
}

// ProviderRemovedPayload contains data for provider.removed events.
type ProviderRemovedPayload struct {
	Name  string   `json:"name"`
	Tools []string `json:"tools"`
}
