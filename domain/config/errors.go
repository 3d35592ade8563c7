package config

import "errors"

var (
	// ErrNotFound is returned when the configuration file does not exist.
	ErrNotFound = errors.New("configuration file not found")

	// ErrInvalidFormat is returned when the file cannot be parsed.
	ErrInvalidFormat = errors.New("invalid configuration format")

	// ErrUnsupportedFormat is returned for file extensions the loader
	// does not understand.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")

	// ErrMissingEnvVar is returned when a referenced environment
	// variable is not set.
	ErrMissingEnvVar = errors.New("missing environment variable")

	// ErrValidation is returned when the configuration is structurally
	// valid but semantically invalid.
	ErrValidation = errors.New("configuration validation failed")
)
