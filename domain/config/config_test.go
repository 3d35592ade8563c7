package config

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDuration(t *testing.T) {
	t.Parallel()

	t.Run("json round-trip", func(t *testing.T) {
		t.Parallel()

		d := Duration(90 * time.Second)
		data, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != `"1m30s"` {
			t.Errorf("Marshal() = %s, want %q", data, "1m30s")
		}

		var got Duration
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if got != d {
			t.Errorf("Unmarshal() = %v, want %v", got, d)
		}
	})

	t.Run("yaml string", func(t *testing.T) {
		t.Parallel()

		var cfg CompilerConfig
		if err := yaml.Unmarshal([]byte("trust: sandboxed\ntimeout: 5s\n"), &cfg); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if cfg.Timeout.Duration() != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", cfg.Timeout.Duration())
		}
	})

	t.Run("rejects malformed duration", func(t *testing.T) {
		t.Parallel()

		var d Duration
		if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
			t.Error("Unmarshal(soon), want error")
		}
	})
}

func TestWasmToolConfig(t *testing.T) {
	t.Parallel()

	t.Run("yaml mapping becomes raw JSON schema", func(t *testing.T) {
		t.Parallel()

		src := `name: lookup
description: queries the index
path: /opt/tools/lookup.wasm
input_schema:
  type: object
  properties:
    q:
      type: string
  required:
    - q
`
		var cfg WasmToolConfig
		if err := yaml.Unmarshal([]byte(src), &cfg); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if cfg.Name != "lookup" || cfg.Path != "/opt/tools/lookup.wasm" {
			t.Errorf("fields = %q, %q, want lookup, /opt/tools/lookup.wasm", cfg.Name, cfg.Path)
		}
		if !json.Valid(cfg.InputSchema) {
			t.Fatalf("InputSchema = %s, not valid JSON", cfg.InputSchema)
		}

		var doc struct {
			Properties map[string]struct {
				Type string `json:"type"`
			} `json:"properties"`
			Required []string `json:"required"`
		}
		if err := json.Unmarshal(cfg.InputSchema, &doc); err != nil {
			t.Fatalf("schema decode error = %v", err)
		}
		if doc.Properties["q"].Type != "string" {
			t.Errorf("properties.q.type = %q, want string", doc.Properties["q"].Type)
		}
		if len(doc.Required) != 1 || doc.Required[0] != "q" {
			t.Errorf("required = %v, want [q]", doc.Required)
		}
	})

	t.Run("json round-trip keeps the schema verbatim", func(t *testing.T) {
		t.Parallel()

		cfg := WasmToolConfig{
			Name:        "lookup",
			Description: "queries the index",
			Path:        "/opt/tools/lookup.wasm",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`),
		}
		data, err := json.Marshal(cfg)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}

		var got WasmToolConfig
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if string(got.InputSchema) != string(cfg.InputSchema) {
			t.Errorf("InputSchema = %s, want %s", got.InputSchema, cfg.InputSchema)
		}
	})

	t.Run("absent schema stays empty", func(t *testing.T) {
		t.Parallel()

		var cfg WasmToolConfig
		if err := yaml.Unmarshal([]byte("name: bare\ndescription: d\npath: /x.wasm\n"), &cfg); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if cfg.InputSchema != nil {
			t.Errorf("InputSchema = %s, want nil", cfg.InputSchema)
		}
	})
}
