// Package backend provides model completion backends. A backend takes
// the conversation history plus the tool catalog and returns either a
// final assistant message or a set of tool-call requests.
package backend

import (
	"context"

	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
)

// Backend defines the interface for model completion backends.
type Backend interface {
	// Complete sends the conversation and tool catalog to the model and
	// returns its next message.
	Complete(ctx context.Context, req Request) (Response, error)

	// Name returns the backend name for logging.
	Name() string
}

// Request is a completion request.
type Request struct {
	// Model overrides the backend's default model when set.
	Model string

	// Messages is the conversation history in log order.
	Messages []message.Message

	// Tools is the catalog the model may call.
	Tools []tool.Spec

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens caps the completion length.
	MaxTokens int
}

// Response is a completion response.
type Response struct {
	// ID is the backend's response identifier.
	ID string

	// Model is the model that produced the response.
	Model string

	// Message is the assistant message. When it carries tool calls the
	// orchestrator executes them before the next request.
	Message message.Message

	// StopReason is the backend's reported stop reason.
	StopReason string

	// Usage is token accounting.
	Usage Usage
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
