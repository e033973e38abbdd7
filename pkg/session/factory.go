package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/mt-inside/tls-probe/pkg/certs"
	"github.com/mt-inside/tls-probe/pkg/cryptort"
	"github.com/mt-inside/tls-probe/pkg/events"
	"github.com/mt-inside/tls-probe/pkg/utils"
)

type VerifyMode int

const (
	// VerifyObserveOnly records a verification failure and carries on with the handshake.
	VerifyObserveOnly VerifyMode = iota
	VerifyEnforce
)

func (m VerifyMode) String() string {
	if m == VerifyEnforce {
		return "enforce"
	}
	return "observe"
}

func ParseVerifyMode(s string) (VerifyMode, error) {
	switch strings.ToLower(s) {
	case "", "observe", "observe-only":
		return VerifyObserveOnly, nil
	case "enforce":
		return VerifyEnforce, nil
	}
	return VerifyObserveOnly, fmt.Errorf("unknown verify mode %q (want observe or enforce)", s)
}

type Factory struct {
	Runtime *cryptort.Runtime
	Log     logr.Logger
	Verify  VerifyMode
	// Roots to verify servers against; nil means the system pool.
	Roots      *x509.CertPool
	NextProtos []string
	Events     events.Emitter
}

// Establish runs a TLS handshake over conn. Material is required in the server role and ignored in the client role.
// On failure conn is left open; it belongs to the caller.
func (f *Factory) Establish(ctx context.Context, role Role, conn net.Conn, material *certs.Material, hostname string) (*Session, error) {
	if err := f.Runtime.Check(); err != nil {
		return nil, &Error{Kind: KindConfig, Role: role, Cause: err}
	}

	s := &Session{
		ID:     uuid.New(),
		Role:   role,
		state:  StateHandshaking,
		events: f.Events,
	}
	s.log = f.Log.WithValues("session", s.ID.String(), "role", role.String(), "peer", conn.RemoteAddr().String())

	var tlsConn *tls.Conn
	switch role {
	case RoleClient:
		tlsConn = tls.Client(conn, f.clientConfig(s, hostname))
		s.events.Stage(events.StageClientHello, fmt.Sprintf("SNI %q", s.info.ServerName))
	case RoleServer:
		if material == nil {
			return nil, &Error{Kind: KindConfig, Role: role, Cause: errors.New("server role needs certificate material")}
		}
		tlsConn = tls.Server(conn, f.serverConfig(s, material))
	default:
		return nil, &Error{Kind: KindConfig, Role: role, Cause: fmt.Errorf("unknown role %d", role)}
	}
	s.conn = tlsConn

	s.log.V(1).Info("Handshaking")
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		s.log.V(1).Info("Handshake failed", "error", err.Error())
		return nil, &Error{Kind: KindHandshakeFailed, Role: role, Cause: err}
	}

	cs := tlsConn.ConnectionState()
	s.info.Protocol = tls.VersionName(cs.Version)
	s.info.Cipher = tls.CipherSuiteName(cs.CipherSuite)
	s.info.ALPN = cs.NegotiatedProtocol
	if role == RoleServer {
		s.info.ServerName = cs.ServerName
	}
	if len(cs.PeerCertificates) > 0 {
		s.info.PeerSubject = cs.PeerCertificates[0].Subject.String()
		s.info.PeerIssuer = cs.PeerCertificates[0].Issuer.String()
	}
	s.state = StateEstablished

	s.events.Stage(events.StageHandshakeDone, s.info.Protocol+" "+s.info.Cipher)
	if s.info.ALPN != "" {
		s.events.Stage(events.StageALPN, s.info.ALPN)
	}
	s.log.Info("Established", "protocol", s.info.Protocol, "cipher", s.info.Cipher, "alpn", s.info.ALPN)

	return s, nil
}

func (f *Factory) clientConfig(s *Session, hostname string) *tls.Config {
	s.info.ServerName = utils.ServerName(hostname)
	verifyName := strings.TrimSuffix(hostname, ".")

	return &tls.Config{
		Rand:       f.Runtime.Rand(),
		Time:       f.Runtime.Now,
		ServerName: s.info.ServerName,
		NextProtos: f.NextProtos,
		// Verification is done by hand below, so that a failure can be observed without ending the handshake.
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			err := f.verify(cs, verifyName)
			if err == nil {
				s.info.Verified = true
				s.events.Stage(events.StageVerify, "ok")
				s.log.V(1).Info("Certificate verified")
				return nil
			}

			s.info.VerifyErr = err.Error()
			s.events.Stage(events.StageVerify, "failed")
			s.events.Text("certificate verification failed: %v", err)
			if f.Verify == VerifyEnforce {
				return err
			}
			s.log.Info("Certificate verification failed; continuing", "error", err.Error())
			return nil
		},
	}
}

func (f *Factory) verify(cs tls.ConnectionState, name string) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("peer presented no certificates")
	}

	opts := x509.VerifyOptions{
		Roots:         f.Roots,
		DNSName:       name,
		Intermediates: x509.NewCertPool(),
		CurrentTime:   f.Runtime.Now(),
	}
	for _, c := range cs.PeerCertificates[1:] {
		opts.Intermediates.AddCert(c)
	}

	_, err := cs.PeerCertificates[0].Verify(opts)
	return err
}

func (f *Factory) serverConfig(s *Session, material *certs.Material) *tls.Config {
	return &tls.Config{
		Rand:         f.Runtime.Rand(),
		Time:         f.Runtime.Now,
		Certificates: []tls.Certificate{material.Pair},
		NextProtos:   f.NextProtos,
		GetConfigForClient: func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
			s.events.Stage(events.StageClientHello, fmt.Sprintf("SNI %q", hello.ServerName))
			return nil, nil
		},
	}
}
