package message

import "errors"

// Domain errors for the message log.
var (
	// ErrEmptyContent indicates a user message was submitted with no content.
	ErrEmptyContent = errors.New("message content cannot be empty")

	// ErrInvalidRole indicates a message carried an unrecognized role.
	ErrInvalidRole = errors.New("invalid message role")
)
