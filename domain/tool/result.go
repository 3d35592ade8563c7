package tool

import (
	"encoding/json"
	"time"
)

// Result contains the output of a tool execution.
type Result struct {
	// Output is the primary result data.
	Output json.RawMessage `json:"output"`

	// Duration is how long the execution took.
	Duration time.Duration `json:"duration"`

	// Failed indicates the output is a structured execution failure.
	Failed bool `json:"failed,omitempty"`
}

// ExecutionFailure is the structured payload returned when a tool's
// execution capability raises any failure. Failures become result
// content; they never abort the orchestration loop.
type ExecutionFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewResult creates a successful result with the given output.
func NewResult(output json.RawMessage) Result {
	return Result{Output: output}
}

// NewResultWithDuration creates a result with timing information.
func NewResultWithDuration(output json.RawMessage, duration time.Duration) Result {
	return Result{Output: output, Duration: duration}
}

// NewFailureResult converts an execution failure into a structured result.
func NewFailureResult(err error) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	output, _ := json.Marshal(ExecutionFailure{Success: false, Error: msg})
	return Result{Output: output, Failed: true}
}

// IsFailure returns true if the result carries a structured failure.
func (r Result) IsFailure() bool {
	return r.Failed
}

// OutputString returns the output as a string for convenience.
func (r Result) OutputString() string {
	return string(r.Output)
}
