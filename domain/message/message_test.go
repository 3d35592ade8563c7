package message

import (
	"encoding/json"
	"testing"
)

func TestRoleIsValid(t *testing.T) {
	t.Parallel()

	valid := []Role{RoleSystem, RoleUser, RoleAssistant, RoleTool}
	for _, r := range valid {
		if !r.IsValid() {
			t.Errorf("Role %s should be valid", r)
		}
	}

	if Role("operator").IsValid() {
		t.Error("Role operator should not be valid")
	}
	if Role("").IsValid() {
		t.Error("empty role should not be valid")
	}
}

func TestConstructors(t *testing.T) {
	t.Parallel()

	t.Run("NewUser", func(t *testing.T) {
		t.Parallel()

		m := NewUser("hello")
		if m.Role != RoleUser {
			t.Errorf("Role = %s, want user", m.Role)
		}
		if m.Content != "hello" {
			t.Errorf("Content = %s, want hello", m.Content)
		}
	})

	t.Run("NewToolResult carries correlation", func(t *testing.T) {
		t.Parallel()

		m := NewToolResult("call-1", "echo", `{"ok":true}`)
		if !m.IsToolResult() {
			t.Error("expected IsToolResult to be true")
		}
		if m.ToolCallID != "call-1" {
			t.Errorf("ToolCallID = %s, want call-1", m.ToolCallID)
		}
		if m.ToolName != "echo" {
			t.Errorf("ToolName = %s, want echo", m.ToolName)
		}
	})

	t.Run("NewAssistantToolCalls", func(t *testing.T) {
		t.Parallel()

		calls := []ToolCall{{ID: "c1", Name: "echo", Arguments: json.RawMessage(`{}`)}}
		m := NewAssistantToolCalls("", calls)
		if !m.HasToolCalls() {
			t.Error("expected HasToolCalls to be true")
		}
		if m.ToolCalls[0].Name != "echo" {
			t.Errorf("ToolCalls[0].Name = %s, want echo", m.ToolCalls[0].Name)
		}
	})
}

func TestIsToolResult(t *testing.T) {
	t.Parallel()

	if NewAssistant("hi").IsToolResult() {
		t.Error("assistant message should not be a tool result")
	}

	// Tool role without correlation id is not a valid result.
	m := Message{Role: RoleTool}
	if m.IsToolResult() {
		t.Error("tool message without call id should not be a tool result")
	}
}
