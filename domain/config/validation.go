package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates gateway configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *GatewayConfig) ValidationErrors {
	v.errors = nil

	v.validateModel(config)
	v.validateTurns(config)
	v.validateCompiler(config)
	v.validateProviders(config)
	v.validateWasmTools(config)
	v.validateResilience(config)
	v.validateLogging(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateModel(config *GatewayConfig) {
	if config.Model.Backend == "" {
		v.addError("model.backend", "backend is required")
	} else {
		validBackends := map[string]bool{
			"anthropic": true, "openai": true, "mock": true,
		}
		if !validBackends[config.Model.Backend] {
			v.addError("model.backend", fmt.Sprintf("unknown backend: %s", config.Model.Backend))
		}
	}
	if config.Model.Name == "" {
		v.addError("model.name", "model name is required")
	}
	if config.Model.Temperature < 0 || config.Model.Temperature > 2 {
		v.addError("model.temperature", "temperature must be between 0 and 2")
	}
	if config.Model.MaxTokens < 0 {
		v.addError("model.max_tokens", "max_tokens must be non-negative")
	}
}

func (v *Validator) validateTurns(config *GatewayConfig) {
	if config.MaxTurns < 0 {
		v.addError("max_turns", "max_turns must be non-negative")
	}
}

func (v *Validator) validateCompiler(config *GatewayConfig) {
	if config.Compiler.Trust != "" {
		validModes := map[string]bool{
			"trusted": true, "sandboxed": true,
		}
		if !validModes[config.Compiler.Trust] {
			v.addError("compiler.trust", fmt.Sprintf("invalid trust mode: %s", config.Compiler.Trust))
		}
	}
	if config.Compiler.Timeout < 0 {
		v.addError("compiler.timeout", "timeout must be non-negative")
	}
}

func (v *Validator) validateProviders(config *GatewayConfig) {
	seen := make(map[string]bool)
	for i, spec := range config.Providers {
		path := fmt.Sprintf("providers[%d]", i)
		if spec.Name == "" {
			v.addError(path+".name", "provider name is required")
		} else if seen[spec.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate provider name: %s", spec.Name))
		} else {
			seen[spec.Name] = true
		}
		if spec.Command == "" {
			v.addError(path+".command", "provider command is required")
		}
	}
}

func (v *Validator) validateWasmTools(config *GatewayConfig) {
	for i, wt := range config.WasmTools {
		path := fmt.Sprintf("wasm_tools[%d]", i)
		if wt.Name == "" {
			v.addError(path+".name", "tool name is required")
		}
		if wt.Description == "" {
			v.addError(path+".description", "tool description is required")
		}
		if wt.Path == "" {
			v.addError(path+".path", "module path is required")
		}
	}
}

func (v *Validator) validateResilience(config *GatewayConfig) {
	if config.Resilience.CircuitBreaker.Enabled {
		if config.Resilience.CircuitBreaker.Threshold <= 0 {
			v.addError("resilience.circuit_breaker.threshold", "threshold must be positive when enabled")
		}
	}
	if config.Resilience.Bulkhead.Enabled {
		if config.Resilience.Bulkhead.MaxConcurrent <= 0 {
			v.addError("resilience.bulkhead.max_concurrent", "max_concurrent must be positive when enabled")
		}
	}
}

func (v *Validator) validateLogging(config *GatewayConfig) {
	if config.Logging.Level != "" {
		validLevels := map[string]bool{
			"trace": true, "debug": true, "info": true, "warn": true, "error": true,
		}
		if !validLevels[strings.ToLower(config.Logging.Level)] {
			v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
		}
	}
	if config.Logging.Format != "" {
		validFormats := map[string]bool{
			"json": true, "console": true,
		}
		if !validFormats[strings.ToLower(config.Logging.Format)] {
			v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
		}
	}
}
