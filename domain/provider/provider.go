// Package provider provides domain types for external tool providers.
package provider

// LaunchSpec describes how to start a provider subprocess.
type LaunchSpec struct {
	// Name uniquely identifies the provider within the registry.
	Name string `json:"name" yaml:"name"`

	// Command is the executable to launch.
	Command string `json:"command" yaml:"command"`

	// Args are the arguments passed to the command.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Env is extra environment entries for the subprocess, in KEY=VALUE
	// form, appended to the host environment.
	Env []string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Record is the observer-facing view of a registered provider.
type Record struct {
	// Name is the provider's unique name.
	Name string `json:"name"`

	// Command is the launch command.
	Command string `json:"command"`

	// Args are the launch arguments.
	Args []string `json:"args,omitempty"`

	// Tools are the names of the tools this provider contributed.
	Tools []string `json:"tools"`

	// Alive reports whether the subprocess is still running.
	Alive bool `json:"alive"`
}
