package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every *Error via errors.Is.
var ErrConfiguration = errors.New("config: invalid configuration")

// Error reports a configuration that can never render: an unknown strategy
// identifier, a surface edge smaller than one sprite cell, and so on.
//
// Configuration errors are fatal. They surface synchronously from setup and
// are never retried.
type Error struct {
	// Field names the offending option, e.g. "canvas.max_surface_edge".
	Field string

	// Reason is a human-readable explanation.
	Reason string
}

// Errorf builds a configuration error for field.
func Errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *Error) Is(target error) bool {
	return target == ErrConfiguration
}
