// Package message provides the core domain model for conversation history.
package message

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
type Role string

// Canonical message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// IsValid returns true if the role is a recognized canonical role.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ToolCall is an invocation requested by the model within an assistant message.
type ToolCall struct {
	// ID correlates the call with its result message.
	ID string `json:"id"`

	// Name is the tool to invoke.
	Name string `json:"name"`

	// Arguments is the JSON object of named arguments.
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message is a single entry in the conversation log.
// Messages are immutable once appended; the log never reorders them.
type Message struct {
	// ID is the unique identifier for this message.
	ID string `json:"id"`

	// Role is the author of the message.
	Role Role `json:"role"`

	// Content is the textual payload.
	Content string `json:"content,omitempty"`

	// ToolCalls are tool invocations requested by an assistant message.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID correlates a tool-result message with its originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolName is the name of the tool that produced a tool-result message.
	ToolName string `json:"tool_name,omitempty"`

	// Timestamp is when the message was appended.
	Timestamp time.Time `json:"timestamp"`
}

// NewSystem creates a system message.
func NewSystem(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUser creates a user message.
func NewUser(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistant creates an assistant message.
func NewAssistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewAssistantToolCalls creates an assistant message carrying tool-call requests.
func NewAssistantToolCalls(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolResult creates a tool-result message correlated with a call id.
func NewToolResult(callID, toolName string, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: callID,
		ToolName:   toolName,
	}
}

// HasToolCalls returns true if the message requests tool invocations.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// IsToolResult returns true if the message is the result of a tool call.
func (m Message) IsToolResult() bool {
	return m.Role == RoleTool && m.ToolCallID != ""
}
