// Package acceptor binds a TCP port and hands accepted connections, one at a time, to a handler.
package acceptor

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/go-logr/logr"
)

const DefaultPort = 8443

type Config struct {
	// Empty means all interfaces.
	Host string
	Port int
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Handler deals with one connection. The acceptor closes conn once it returns.
type Handler func(ctx context.Context, conn net.Conn) error

type Acceptor struct {
	ln  net.Listener
	log logr.Logger
}

// ListenFunc is the shape of Listen, so callers can substitute it.
type ListenFunc func(ctx context.Context, log logr.Logger, cfg Config) (*Acceptor, error)

var _ ListenFunc = Listen

func Listen(ctx context.Context, log logr.Logger, cfg Config) (*Acceptor, error) {
	lc := net.ListenConfig{Control: reuseAddr}

	ln, err := lc.Listen(ctx, "tcp", cfg.Address())
	if err != nil {
		return nil, &BindError{Addr: cfg.Address(), Cause: err}
	}
	log.Info("Listening", "addr", ln.Addr().String())

	return &Acceptor{ln: ln, log: log}, nil
}

func (a *Acceptor) Addr() net.Addr { return a.ln.Addr() }

func (a *Acceptor) Close() error {
	err := a.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Serve accepts until the listener is closed or ctx is done, running handler for each connection in turn.
// Handler errors are logged and don't stop the loop.
func (a *Acceptor) Serve(ctx context.Context, handler Handler) error {
	stop := context.AfterFunc(ctx, func() { a.ln.Close() })
	defer stop()

	for {
		conn, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				a.log.V(1).Info("Listener closed")
				return nil
			}
			return &AcceptError{Cause: err}
		}

		log := a.log.WithValues("peer", conn.RemoteAddr().String())
		log.V(1).Info("Accepted")

		if err := handler(ctx, conn); err != nil {
			log.Error(err, "Connection failed")
		}
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.V(1).Info("Close failed", "error", err.Error())
		}
	}
}
