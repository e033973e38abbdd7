package session

import (
	"errors"
	"fmt"
)

var ErrClosed = errors.New("session is closed")

type Kind int

const (
	KindHandshakeFailed Kind = iota + 1
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindHandshakeFailed:
		return "handshake failed"
	case KindConfig:
		return "bad session config"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind  Kind
	Role  Role
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s (%s)", e.Kind, e.Role)
	}
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Role, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func IsKind(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
