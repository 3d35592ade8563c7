package provider

import "errors"

var (
	// ErrNameRequired is returned when a launch spec has no name.
	ErrNameRequired = errors.New("provider name is required")

	// ErrCommandRequired is returned when a launch spec has no command.
	ErrCommandRequired = errors.New("provider command is required")

	// ErrProviderExists is returned when registering a provider whose
	// name is already taken.
	ErrProviderExists = errors.New("provider already registered")

	// ErrProviderNotFound is returned when a provider name is unknown.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderUnavailable is returned when a provider subprocess has
	// exited or its pipes are closed.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrBootstrap is returned when a provider fails its initial
	// handshake or tool discovery.
	ErrBootstrap = errors.New("provider bootstrap failed")

	// ErrShutdown is returned for requests issued after shutdown began.
	ErrShutdown = errors.New("provider is shutting down")
)
