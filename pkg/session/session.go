// Package session wraps a stream connection in TLS, in either role, and tracks the result.
package session

import (
	"crypto/tls"
	"errors"
	"net"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/mt-inside/tls-probe/pkg/events"
)

type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

type State int

const (
	StateHandshaking State = iota
	StateEstablished
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateEstablished:
		return "established"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Info is what the handshake agreed. Empty strings mean the value wasn't available.
type Info struct {
	Protocol    string
	Cipher      string
	ALPN        string
	ServerName  string
	PeerSubject string
	PeerIssuer  string
	Verified    bool
	VerifyErr   string
}

type Session struct {
	ID   uuid.UUID
	Role Role

	conn   *tls.Conn
	state  State
	info   Info
	log    logr.Logger
	events events.Emitter
}

func (s *Session) State() State { return s.state }
func (s *Session) Info() Info   { return s.info }

func (s *Session) LocalAddr() net.Addr  { return s.conn.LocalAddr() }
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

func (s *Session) Read(p []byte) (int, error) {
	if s.state == StateClosed {
		return 0, ErrClosed
	}
	n, err := s.conn.Read(p)
	if n > 0 {
		s.events.Data(events.DirIn, n)
	}
	return n, err
}

func (s *Session) Write(p []byte) (int, error) {
	if s.state == StateClosed {
		return 0, ErrClosed
	}
	n, err := s.conn.Write(p)
	if n > 0 {
		s.events.Data(events.DirOut, n)
	}
	return n, err
}

// CloseWrite sends close_notify, telling the peer we're done sending, while leaving the read side open.
func (s *Session) CloseWrite() error {
	if s.state == StateClosed {
		return ErrClosed
	}
	return s.conn.CloseWrite()
}

// Close sends close_notify and closes the underlying connection. Subsequent calls do nothing.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	s.events.Stage(events.StageClose, "")
	s.log.V(1).Info("Session closed")

	err := s.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
