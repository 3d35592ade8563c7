package compiler

import "errors"

var (
	// ErrEmptyBody is returned when the source body is blank.
	ErrEmptyBody = errors.New("tool body is empty")

	// ErrInvalidParameter is returned when a schema property name is
	// not a valid Go identifier.
	ErrInvalidParameter = errors.New("invalid parameter name")

	// ErrSyntax is returned when the synthesized source does not parse.
	ErrSyntax = errors.New("tool source has syntax errors")

	// ErrEval is returned when the interpreter rejects the source.
	ErrEval = errors.New("tool source failed evaluation")
)
