package probes

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/quic-go/logging"

	"github.com/mt-inside/tls-probe/pkg/events"
)

func (c *Client) http3Transport(obs *observer) *http3.RoundTripper {
	return &http3.RoundTripper{
		TLSClientConfig: &tls.Config{
			RootCAs: c.Roots,
		},
		QuicConfig: &quic.Config{
			Tracer: func(ctx context.Context, p logging.Perspective, id quic.ConnectionID) *logging.ConnectionTracer {
				return quicTracer(obs)
			},
		},
	}
}

// httptrace doesn't see inside quic-go, so the same stages come from its connection tracer instead.
func quicTracer(obs *observer) *logging.ConnectionTracer {
	return &logging.ConnectionTracer{
		StartedConnection: func(local, remote net.Addr, srcConnID, destConnID logging.ConnectionID) {
			obs.setRemote(remote)
			obs.stage(events.StageConnect, "udp "+remote.String())
		},
		NegotiatedVersion: func(chosen logging.VersionNumber, clientVersions, serverVersions []logging.VersionNumber) {
			obs.text("QUIC version %s negotiated", chosen)
		},
		UpdatedKeyFromTLS: func(level logging.EncryptionLevel, p logging.Perspective) {
			if level == logging.Encryption1RTT && p == logging.PerspectiveServer {
				obs.stage(events.StageHandshakeDone, "QUIC 1-RTT keys installed")
			}
		},
		ClosedConnection: func(err error) {
			if err == nil {
				obs.stage(events.StageClose, "")
				return
			}
			obs.stage(events.StageClose, err.Error())
		},
	}
}
