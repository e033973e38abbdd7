package acceptor

import "fmt"

type BindError struct {
	Addr  string
	Cause error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("can't bind %s: %v", e.Addr, e.Cause)
}
func (e *BindError) Unwrap() error { return e.Cause }

type AcceptError struct {
	Cause error
}

func (e *AcceptError) Error() string {
	return fmt.Sprintf("accept failed: %v", e.Cause)
}
func (e *AcceptError) Unwrap() error { return e.Cause }
