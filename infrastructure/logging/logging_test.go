package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	domaincfg "github.com/felixgeelhaar/gateway-go/domain/config"
	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/session"
)

// testLogger creates a logger that writes to a buffer for testing
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := bolt.NewJSONHandler(buf)
	logger := bolt.New(handler).SetLevel(bolt.TRACE)
	return logger, buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()

	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "console" {
		t.Errorf("Format = %s, want console", config.Format)
	}
	if config.Output != os.Stdout {
		t.Errorf("Output = %v, want os.Stdout", config.Output)
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("empty settings keep defaults", func(t *testing.T) {
		t.Parallel()

		cfg := FromConfig(domaincfg.LoggingConfig{})
		if cfg.Level != "info" || cfg.Format != "console" {
			t.Errorf("FromConfig() = %+v, want defaults", cfg)
		}
	})

	t.Run("overrides applied", func(t *testing.T) {
		t.Parallel()

		cfg := FromConfig(domaincfg.LoggingConfig{Level: "debug", Format: "json"})
		if cfg.Level != "debug" {
			t.Errorf("Level = %s, want debug", cfg.Level)
		}
		if cfg.Format != "json" {
			t.Errorf("Format = %s, want json", cfg.Format)
		}
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"session id", SessionID("sess-123"), `"session_id":"sess-123"`},
		{"turn", Turn(4), `"turn":4`},
		{"state", State(session.StateExecutingTools), `"state":"executing_tools"`},
		{"role", Role(message.RoleAssistant), `"role":"assistant"`},
		{"tool name", ToolName("read_file"), `"tool":"read_file"`},
		{"call id", CallID("call_01"), `"call_id":"call_01"`},
		{"provider", Provider("files"), `"provider":"files"`},
		{"backend", Backend("anthropic"), `"backend":"anthropic"`},
		{"model", Model("claude-sonnet"), `"model":"claude-sonnet"`},
		{"event type", EventType("tool.added"), `"event_type":"tool.added"`},
		{"duration", Duration(100 * time.Millisecond), `"duration_ms":100`},
		{"count", Count("tools", 3), `"tools":3`},
		{"failed", Failed(true), `"failed":true`},
		{"component", Component("orchestrator"), `"component":"orchestrator"`},
		{"operation", Operation("tool_execution"), `"operation":"tool_execution"`},
		{"str", Str("custom_key", "custom_value"), `"custom_key":"custom_value"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := testLogger()
			tt.field(logger.Info()).Msg("test")

			if !bytes.Contains(buf.Bytes(), []byte(tt.want)) {
				t.Errorf("expected %s in output: %s", tt.want, buf.String())
			}
		})
	}
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	t.Run("with error", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		ErrorField(errors.New("test error"))(logger.Info()).Msg("test")

		if !bytes.Contains(buf.Bytes(), []byte(`"error":"test error"`)) {
			t.Errorf("expected error field in output: %s", buf.String())
		}
	})

	t.Run("with nil error", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		ErrorField(nil)(logger.Info()).Msg("test")

		if bytes.Contains(buf.Bytes(), []byte(`"error"`)) {
			t.Errorf("unexpected error field in output: %s", buf.String())
		}
	})
}

func TestGet(t *testing.T) {
	logger := Get()
	if logger == nil {
		t.Fatal("Get() returned nil")
	}
}

func TestLogEvent(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()

	t.Run("Add chains fields", func(t *testing.T) {
		buf.Reset()
		event := NewEvent(logger.Info())
		event.Add(SessionID("sess-1")).Add(Turn(2)).Msg("test")

		if !bytes.Contains(buf.Bytes(), []byte(`"session_id":"sess-1"`)) {
			t.Errorf("expected session_id field in output: %s", buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"turn":2`)) {
			t.Errorf("expected turn field in output: %s", buf.String())
		}
	})

	t.Run("Send without message", func(t *testing.T) {
		buf.Reset()
		event := NewEvent(logger.Info())
		event.Add(SessionID("sess-2")).Send()

		if !bytes.Contains(buf.Bytes(), []byte(`"session_id":"sess-2"`)) {
			t.Errorf("expected session_id field in output: %s", buf.String())
		}
	})
}
