package exchange

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindReadFailed Kind = iota + 1
	KindWriteFailed
)

func (k Kind) String() string {
	switch k {
	case KindReadFailed:
		return "read failed"
	case KindWriteFailed:
		return "write failed"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func IsKind(err error, kind Kind) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind == kind
	}
	return false
}
