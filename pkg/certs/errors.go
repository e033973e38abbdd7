package certs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound         Kind = "NotFound"
	KindLoadFailed       Kind = "LoadFailed"
	KindKeyMismatch      Kind = "KeyMismatch"
	KindGenerationFailed Kind = "GenerationFailed"
)

// Error is returned by every Provider. Path is empty for generated material.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
