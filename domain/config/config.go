// Package config provides domain models for gateway configuration.
package config

import (
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/gateway-go/domain/provider"
)

// GatewayConfig represents the complete gateway configuration.
type GatewayConfig struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Model contains model backend settings.
	Model ModelConfig `json:"model" yaml:"model"`
	// SystemPrompt seeds the conversation log.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	// MaxTurns caps model round-trips per user message (default: 10).
	MaxTurns int `json:"max_turns,omitempty" yaml:"max_turns,omitempty"`

	// Compiler contains dynamic tool compiler settings.
	Compiler CompilerConfig `json:"compiler,omitempty" yaml:"compiler,omitempty"`
	// Providers lists tool provider subprocesses to launch at startup.
	Providers []provider.LaunchSpec `json:"providers,omitempty" yaml:"providers,omitempty"`
	// WasmTools lists sandboxed WebAssembly tools to load at startup.
	WasmTools []WasmToolConfig `json:"wasm_tools,omitempty" yaml:"wasm_tools,omitempty"`

	// Resilience contains tool execution resilience settings.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Logging contains logging settings.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// ModelConfig contains model backend settings.
type ModelConfig struct {
	// Backend selects the completion backend (anthropic, openai, mock).
	Backend string `json:"backend" yaml:"backend"`
	// Name is the model identifier sent to the backend.
	Name string `json:"name" yaml:"name"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	// BaseURL overrides the backend's default endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Temperature controls sampling randomness.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// MaxTokens caps the completion length.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// CompilerConfig contains dynamic tool compiler settings.
type CompilerConfig struct {
	// Trust selects the execution mode (trusted, sandboxed).
	Trust string `json:"trust,omitempty" yaml:"trust,omitempty"`
	// Timeout bounds a single compiled tool invocation.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// WasmToolConfig configures a sandboxed WebAssembly tool.
type WasmToolConfig struct {
	// Name is the tool identifier.
	Name string `json:"name" yaml:"name"`
	// Description describes the tool to the model.
	Description string `json:"description" yaml:"description"`
	// Path is the WebAssembly module path.
	Path string `json:"path" yaml:"path"`
	// InputSchema is the JSON schema for the tool's parameters.
	InputSchema json.RawMessage `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
}

// UnmarshalYAML decodes the tool entry, re-encoding the input_schema
// mapping as JSON.
func (c *WasmToolConfig) UnmarshalYAML(unmarshal func(any) error) error {
	var raw struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Path        string `yaml:"path"`
		InputSchema any    `yaml:"input_schema"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	c.Name = raw.Name
	c.Description = raw.Description
	c.Path = raw.Path
	if raw.InputSchema == nil {
		c.InputSchema = nil
		return nil
	}
	schema, err := json.Marshal(raw.InputSchema)
	if err != nil {
		return err
	}
	c.InputSchema = schema
	return nil
}

// MarshalYAML emits the input_schema as a plain mapping.
func (c WasmToolConfig) MarshalYAML() (any, error) {
	out := map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"path":        c.Path,
	}
	if len(c.InputSchema) > 0 {
		var schema any
		if err := json.Unmarshal(c.InputSchema, &schema); err != nil {
			return nil, err
		}
		out["input_schema"] = schema
	}
	return out, nil
}

// ResilienceConfig contains tool execution resilience settings.
type ResilienceConfig struct {
	// Timeout is the default tool timeout.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// Bulkhead configures bulkhead behavior.
	Bulkhead BulkheadConfig `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Enabled enables circuit breaker.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Threshold is failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// BulkheadConfig configures bulkhead behavior.
type BulkheadConfig struct {
	// Enabled enables bulkhead.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MaxConcurrent is the maximum concurrent tool executions.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is the output format (json, console).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// DefaultMaxTurns is the turn bound applied when MaxTurns is unset.
const DefaultMaxTurns = 10

// EffectiveMaxTurns returns the configured turn bound, or the default.
func (c *GatewayConfig) EffectiveMaxTurns() int {
	if c.MaxTurns > 0 {
		return c.MaxTurns
	}
	return DefaultMaxTurns
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
