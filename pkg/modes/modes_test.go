package modes

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mt-inside/tls-probe/pkg/acceptor"
	"github.com/mt-inside/tls-probe/pkg/certs"
	"github.com/mt-inside/tls-probe/pkg/cryptort"
	"github.com/mt-inside/tls-probe/pkg/dualstack"
	"github.com/mt-inside/tls-probe/pkg/exchange"
	"github.com/mt-inside/tls-probe/pkg/probes"
	"github.com/mt-inside/tls-probe/pkg/session"
	"github.com/mt-inside/tls-probe/pkg/state"
)

func testEnv(t *testing.T) Env {
	rt, err := cryptort.Init()
	require.NoError(t, err)
	return Env{Log: zapr.NewLogger(zaptest.NewLogger(t)), Runtime: rt}
}

func TestServerMissingKeyNeverBinds(t *testing.T) {
	env := testEnv(t)
	dir := t.TempDir()

	m, err := certs.NewGenerateProvider(env.Runtime).Obtain(context.Background())
	require.NoError(t, err)
	require.NoError(t, certs.WritePEM(dir, m))
	require.NoError(t, os.Remove(filepath.Join(dir, certs.KeyFile)))

	bound := false
	listen := func(ctx context.Context, log logr.Logger, cfg acceptor.Config) (*acceptor.Acceptor, error) {
		bound = true
		return nil, errors.New("should not be called")
	}

	err = RunServer(context.Background(), env, &state.ServerData{CertSource: state.CertSourceFile, CertDir: dir, Port: 8443}, listen, nil)
	require.Error(t, err)
	require.True(t, certs.IsKind(err, certs.KindNotFound))
	require.Contains(t, err.Error(), filepath.Join(dir, certs.KeyFile))
	require.False(t, bound)
}

func TestServerBindErrorReturned(t *testing.T) {
	env := testEnv(t)
	listen := func(ctx context.Context, log logr.Logger, cfg acceptor.Config) (*acceptor.Acceptor, error) {
		return nil, &acceptor.BindError{Addr: cfg.Address(), Cause: errors.New("address in use")}
	}

	err := RunServer(context.Background(), env, &state.ServerData{CertSource: state.CertSourceGenerate, Port: 8443}, listen, nil)
	var be *acceptor.BindError
	require.ErrorAs(t, err, &be)
}

func TestClientAgainstServer(t *testing.T) {
	env := testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan net.Addr, 1)
	listen := func(ctx context.Context, log logr.Logger, cfg acceptor.Config) (*acceptor.Acceptor, error) {
		cfg.Host, cfg.Port = "127.0.0.1", 0
		a, err := acceptor.Listen(ctx, log, cfg)
		if err == nil {
			addrCh <- a.Addr()
		}
		return a, err
	}

	servedCh := make(chan exchange.Result, 1)
	served := func(s *session.Session, res exchange.Result) { servedCh <- res }

	done := make(chan error, 1)
	go func() {
		done <- RunServer(ctx, env, &state.ServerData{CertSource: state.CertSourceGenerate}, listen, served)
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	}

	report, err := RunClient(context.Background(), env, &state.ClientData{
		Timeout:  10 * time.Second,
		Host:     "localhost",
		Port:     addr.(*net.TCPAddr).Port,
		Path:     "/hello",
		Family:   probes.ForcedV4,
		Resolver: "system",
		Verify:   session.VerifyObserveOnly,
	})
	require.NoError(t, err)
	require.Equal(t, 200, report.Result.Status)
	require.Equal(t, exchange.DefaultBody, string(report.Result.Body))
	require.NotEmpty(t, report.Session.Info().VerifyErr)
	require.Equal(t, session.StateClosed, report.Session.State())
	for _, ip := range report.Addrs {
		require.NotNil(t, ip.To4())
	}

	res := <-servedCh
	require.Contains(t, string(res.Request), "GET /hello HTTP/1.1\r\n")

	cancel()
	require.NoError(t, <-done)
}

func TestClientResolutionError(t *testing.T) {
	env := testEnv(t)
	_, err := RunClient(context.Background(), env, &state.ClientData{Host: "::1", Port: 443, Family: probes.ForcedV4, Resolver: "system"})
	var re *probes.ResolutionError
	require.ErrorAs(t, err, &re)
}

type fakeClient struct{ n int }

func (f *fakeClient) Do(ctx context.Context, req probes.Request) probes.Response {
	f.n++
	return probes.Response{Status: 200, RemoteAddr: "192.0.2.1", Elapsed: time.Millisecond}
}

func TestDualStack(t *testing.T) {
	env := testEnv(t)
	fc := &fakeClient{}

	cs, err := RunDualStack(context.Background(), env, &state.ProbeData{URLs: []string{"https://a", "https://b"}}, fc)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	require.Equal(t, 6, fc.n)
	require.Equal(t, dualstack.FamilyV4, cs[0].InferredFamily)

	_, err = RunDualStack(context.Background(), env, &state.ProbeData{GeoIPDB: filepath.Join(t.TempDir(), "missing.mmdb")}, fc)
	require.Error(t, err)
}
