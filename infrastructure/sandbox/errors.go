package sandbox

import "errors"

var (
	// ErrInvalidModule is returned when module bytes cannot be compiled.
	ErrInvalidModule = errors.New("invalid wasm module")

	// ErrModuleNotLoaded is returned when invoking a module the runner
	// never compiled.
	ErrModuleNotLoaded = errors.New("wasm module not loaded")

	// ErrInvalidSchema is returned when a configured input schema cannot
	// be parsed.
	ErrInvalidSchema = errors.New("invalid input schema")

	// ErrRunnerClosed is returned after Close.
	ErrRunnerClosed = errors.New("sandbox runner closed")
)
