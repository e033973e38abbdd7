package probes

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/MarshallWace/go-spnego"
	"github.com/go-logr/logr"

	"github.com/mt-inside/tls-probe/internal/build"
	"github.com/mt-inside/tls-probe/pkg/events"
	"github.com/mt-inside/tls-probe/pkg/utils"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultTimeout        = 30 * time.Second
)

type Request struct {
	URL     string
	Method  string
	Body    []byte
	Headers http.Header
	Family  Family
}

type Response struct {
	Status  int
	Proto   string
	Headers http.Header
	Body    []byte
	Elapsed time.Duration
	// Host part of the address last dialed; "" if the transport never got that far.
	RemoteAddr string
	TLSVersion string
	Err        error
}

// HTTPClient performs one request and reports what happened; failures are in Response.Err.
type HTTPClient interface {
	Do(ctx context.Context, req Request) Response
}

type Client struct {
	Log            logr.Logger
	Events         events.Emitter
	ConnectTimeout time.Duration
	Timeout        time.Duration
	// nil means the system pool.
	Roots        *x509.CertPool
	AuthKerberos bool
	ForceHTTP3   bool
	UserAgent    string
}

var _ HTTPClient = (*Client)(nil)

// observer collects what the transport hooks see. The hooks can fire on transport goroutines.
type observer struct {
	mu         sync.Mutex
	events     events.Emitter
	remoteAddr string
}

func (o *observer) stage(s events.Stage, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events.Stage(s, text)
}

func (o *observer) text(format string, args ...interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events.Text(format, args...)
}

func (o *observer) setRemote(a net.Addr) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.remoteAddr = utils.HostOnly(a.String())
}

func (o *observer) remote() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remoteAddr
}

func (c *Client) timeouts() (connect, overall time.Duration) {
	connect, overall = c.ConnectTimeout, c.Timeout
	if connect == 0 {
		connect = DefaultConnectTimeout
	}
	if overall == 0 {
		overall = DefaultTimeout
	}
	return
}

// Do builds a fresh transport per request, so nothing is pooled between attempts and each dials under its own family.
func (c *Client) Do(ctx context.Context, req Request) Response {
	_, overall := c.timeouts()
	ctx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	obs := &observer{events: c.Events}
	log := c.Log.WithValues("url", req.URL, "family", req.Family.String())

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hr, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, c.trace(obs)), method, req.URL, body)
	if err != nil {
		return Response{Err: err}
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			hr.Header.Add(k, v)
		}
	}
	if hr.Header.Get("User-Agent") == "" {
		ua := c.UserAgent
		if ua == "" {
			ua = build.UserAgent()
		}
		hr.Header.Set("User-Agent", ua)
	}

	var client *http.Client
	if c.ForceHTTP3 {
		if req.Family != Unspecified {
			log.Info("Address family can't be forced over HTTP/3; using the system's choice")
		}
		rt := c.http3Transport(obs)
		defer rt.Close()
		client = &http.Client{Transport: rt}
	} else {
		client = c.tcpClient(req.Family, obs)
	}

	log.V(1).Info("Requesting", "method", method)
	start := time.Now()
	resp, err := client.Do(hr)
	if err != nil {
		return Response{Elapsed: time.Since(start), RemoteAddr: obs.remote(), Err: err}
	}
	defer resp.Body.Close()

	out := Response{
		Status:  resp.StatusCode,
		Proto:   resp.Proto,
		Headers: resp.Header,
	}
	if resp.TLS != nil {
		out.TLSVersion = tls.VersionName(resp.TLS.Version)
	}
	obs.stage(events.StageProtocol, resp.Proto)

	out.Body, out.Err = io.ReadAll(resp.Body)
	out.Elapsed = time.Since(start)
	out.RemoteAddr = obs.remote()

	log.V(1).Info("Response", "status", out.Status, "proto", out.Proto, "bytes", len(out.Body), "elapsed", out.Elapsed, "remote", out.RemoteAddr)
	return out
}

func (c *Client) tcpClient(family Family, obs *observer) *http.Client {
	connect, _ := c.timeouts()

	// Always make a krb transport, becuase if we make a plain HTTP one and try to wrap it later, we have to copy the bytes (because spnego.Transport embeds http.Transport) and that copies a sync.Mutex.
	tr := &spnego.Transport{
		NoCanonicalize: true,
		Transport: http.Transport{
			DialContext: func(ctx context.Context, _, address string) (net.Conn, error) {
				dialer := &net.Dialer{Timeout: connect}
				conn, err := dialer.DialContext(ctx, family.Network(), address)
				if err != nil {
					return nil, err
				}
				obs.setRemote(conn.RemoteAddr())
				return conn, nil
			},
			TLSHandshakeTimeout: connect,
			DisableKeepAlives:   true,
			DisableCompression:  true,
			TLSClientConfig: &tls.Config{
				RootCAs: c.Roots,
			},
			ForceAttemptHTTP2: true, // Because we provide our own TLSClientConfig, golang defaults to no ALPN, we have to insist.
		},
	}

	// Assuming we don't want krb, just point to the non-spnego parts of the struct (hack)
	if c.AuthKerberos {
		return &http.Client{Transport: tr}
	}
	return &http.Client{Transport: &tr.Transport}
}

func (c *Client) trace(obs *observer) *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(i httptrace.DNSStartInfo) {
			obs.stage(events.StageDNSStart, i.Host)
		},
		DNSDone: func(i httptrace.DNSDoneInfo) {
			if i.Err != nil {
				obs.stage(events.StageDNSDone, i.Err.Error())
				return
			}
			obs.stage(events.StageDNSDone, fmt.Sprintf("%v", i.Addrs))
		},
		ConnectStart: func(network, addr string) {
			obs.stage(events.StageConnect, network+" "+addr)
		},
		ConnectDone: func(network, addr string, err error) {
			if err != nil {
				obs.text("connect to %s failed: %v", addr, err)
				return
			}
			obs.stage(events.StageConnected, network+" "+addr)
		},
		TLSHandshakeStart: func() {
			obs.stage(events.StageClientHello, "")
		},
		TLSHandshakeDone: func(cs tls.ConnectionState, err error) {
			if err != nil {
				obs.text("TLS handshake failed: %v", err)
				return
			}
			obs.stage(events.StageHandshakeDone, tls.VersionName(cs.Version)+" "+tls.CipherSuiteName(cs.CipherSuite))
			if cs.NegotiatedProtocol != "" {
				obs.stage(events.StageALPN, cs.NegotiatedProtocol)
			}
		},
	}
}
