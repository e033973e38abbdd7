package exchange

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mt-inside/tls-probe/pkg/certs"
	"github.com/mt-inside/tls-probe/pkg/cryptort"
	"github.com/mt-inside/tls-probe/pkg/parser"
	"github.com/mt-inside/tls-probe/pkg/session"
)

type fakeStream struct {
	in       io.Reader
	out      bytes.Buffer
	writeErr error
}

func (f *fakeStream) Read(p []byte) (int, error) { return f.in.Read(p) }
func (f *fakeStream) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.out.Write(p)
}

func TestCannedResponseHeaderOrder(t *testing.T) {
	got := string(CannedResponse("hi"))
	require.Equal(t,
		"HTTP/1.1 200 OK\r\nContent-Type: text/html; charset=utf-8\r\nContent-Length: 2\r\nConnection: close\r\n\r\nhi",
		got,
	)
}

func TestServeOneNothingRead(t *testing.T) {
	fs := &fakeStream{in: bytes.NewReader(nil)}
	res := ServeOne(fs, Options{Log: logr.Discard()})
	require.Nil(t, res.Err)
	require.Nil(t, res.Request)
	require.Zero(t, fs.out.Len())
}

func TestServeOneWriteFails(t *testing.T) {
	fs := &fakeStream{in: bytes.NewReader([]byte("GET / HTTP/1.1\r\n\r\n")), writeErr: errors.New("broken pipe")}
	res := ServeOne(fs, Options{Log: logr.Discard()})
	require.True(t, IsKind(res.Err, KindWriteFailed))
	require.Equal(t, "GET / HTTP/1.1\r\n\r\n", string(res.Request))
}

func TestServeOneGarbageStillAnswered(t *testing.T) {
	fs := &fakeStream{in: bytes.NewReader([]byte("\x00\x01junk"))}
	res := ServeOne(fs, Options{Log: logr.Discard(), Body: "ok"})
	require.NoError(t, res.Err)
	require.Equal(t, string(CannedResponse("ok")), fs.out.String())
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestRequestOnceReadFails(t *testing.T) {
	fs := &fakeStream{in: io.MultiReader(bytes.NewReader([]byte("HTTP/1.1 200 OK\r\n")), errReader{})}
	res := RequestOnce(fs, "example.com", "/x", Options{Log: logr.Discard(), UserAgent: "test/1"})
	require.True(t, IsKind(res.Err, KindReadFailed))
	require.Equal(t, "HTTP/1.1 200 OK\r\n", string(res.Raw))
	require.Equal(t,
		"GET /x HTTP/1.1\r\nHost: example.com\r\nUser-Agent: test/1\r\nConnection: close\r\n\r\n",
		fs.out.String(),
	)
}

// tlsPair handshakes client and server sessions over loopback TCP.
func tlsPair(t *testing.T) (client *session.Session, server <-chan *session.Session) {
	rt, err := cryptort.Init()
	require.NoError(t, err)
	m, err := certs.NewGenerateProvider(rt).Obtain(context.Background())
	require.NoError(t, err)
	log := zapr.NewLogger(zaptest.NewLogger(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	srvCh := make(chan *session.Session, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(srvCh)
			return
		}
		f := &session.Factory{Runtime: rt, Log: log}
		s, err := f.Establish(ctx, session.RoleServer, c, m, "")
		if err != nil {
			c.Close()
			close(srvCh)
			return
		}
		srvCh <- s
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	f := &session.Factory{Runtime: rt, Log: log}
	cs, err := f.Establish(ctx, session.RoleClient, conn, nil, "localhost")
	require.NoError(t, err)

	return cs, srvCh
}

func TestLoopbackRoundTrip(t *testing.T) {
	log := zapr.NewLogger(zaptest.NewLogger(t))
	cs, srvCh := tlsPair(t)

	served := make(chan Result, 1)
	go func() {
		ss, ok := <-srvCh
		if !ok {
			served <- Result{Err: errors.New("server handshake failed")}
			return
		}
		res := ServeOne(ss, Options{Log: log})
		ss.Close()
		served <- res
	}()

	res := RequestOnce(cs, "localhost", "/", Options{Log: log})
	require.NoError(t, res.Err)
	require.Equal(t, 200, res.Status)
	require.Equal(t, DefaultBody, string(res.Body))

	resp, err := parser.ParseResponse(res.Raw)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(len(resp.Body)), resp.Header.Get("Content-Length"))
	require.True(t, resp.Close)
	require.True(t, bytes.Contains(res.Raw, []byte("\r\nConnection: close\r\n")))

	srv := <-served
	require.NoError(t, srv.Err)
	req, ok := parser.RequestLine(srv.Request)
	require.True(t, ok)
	require.Equal(t, "GET", req.Method)

	cs.Close()
}

func TestLoopbackZeroByteRequest(t *testing.T) {
	log := zapr.NewLogger(zaptest.NewLogger(t))
	cs, srvCh := tlsPair(t)

	served := make(chan Result, 1)
	go func() {
		ss, ok := <-srvCh
		if !ok {
			served <- Result{Err: errors.New("server handshake failed")}
			return
		}
		res := ServeOne(ss, Options{Log: log})
		ss.Close()
		served <- res
	}()

	require.NoError(t, cs.CloseWrite())

	got, err := io.ReadAll(cs)
	require.NoError(t, err)
	require.Empty(t, got)

	srv := <-served
	require.NoError(t, srv.Err)
	require.Empty(t, srv.Request)
	require.Nil(t, srv.Raw)

	cs.Close()
}
