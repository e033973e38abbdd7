// Package cryptort holds the process-wide cryptographic state: where entropy comes from and what time it is.
// The entry point Init()s one Runtime and hands it to everything that generates keys or runs handshakes; nothing reaches for crypto/rand or time.Now on its own.
package cryptort

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

var (
	ErrEntropy  = errors.New("entropy source unusable")
	ErrShutdown = errors.New("crypto runtime has been shut down")
)

type Runtime struct {
	rand io.Reader
	now  func() time.Time
	down atomic.Bool
}

type Option func(*Runtime)

func WithRand(r io.Reader) Option {
	return func(rt *Runtime) { rt.rand = r }
}

func WithClock(now func() time.Time) Option {
	return func(rt *Runtime) { rt.now = now }
}

// Init checks the entropy source actually yields bytes before anything depends on it.
func Init(opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		rand: rand.Reader,
		now:  time.Now,
	}
	for _, o := range opts {
		o(rt)
	}

	probe := make([]byte, 16)
	if _, err := io.ReadFull(rt.rand, probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntropy, err)
	}

	return rt, nil
}

// Shutdown is safe to call more than once.
func (rt *Runtime) Shutdown() {
	rt.down.Store(true)
}

func (rt *Runtime) Check() error {
	if rt == nil {
		return errors.New("crypto runtime not initialised")
	}
	if rt.down.Load() {
		return ErrShutdown
	}
	return nil
}

func (rt *Runtime) Rand() io.Reader {
	return rt.rand
}

func (rt *Runtime) Now() time.Time {
	return rt.now()
}
