package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/logrusorgru/aurora/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mt-inside/http-log/pkg/output"

	"github.com/mt-inside/tls-probe/pkg/acceptor"
	"github.com/mt-inside/tls-probe/pkg/certs"
	"github.com/mt-inside/tls-probe/pkg/cryptort"
	"github.com/mt-inside/tls-probe/pkg/modes"
	"github.com/mt-inside/tls-probe/pkg/state"
)

func TestAnnounceSilentWhenKeyMissing(t *testing.T) {
	rt, err := cryptort.Init()
	require.NoError(t, err)
	env := modes.Env{Log: zapr.NewLogger(zaptest.NewLogger(t)), Runtime: rt}

	dir := t.TempDir()
	m, err := certs.NewGenerateProvider(rt).Obtain(context.Background())
	require.NoError(t, err)
	require.NoError(t, certs.WritePEM(dir, m))
	require.NoError(t, os.Remove(filepath.Join(dir, certs.KeyFile)))

	var out bytes.Buffer
	listen := announce(&out, output.NewTtyStyler(aurora.NewAurora(false)), state.CertSourceFile, acceptor.Listen)

	err = modes.RunServer(context.Background(), env, &state.ServerData{Host: "127.0.0.1", CertSource: state.CertSourceFile, CertDir: dir}, listen, nil)
	require.True(t, certs.IsKind(err, certs.KindNotFound))
	require.Empty(t, out.String())
}

func TestAnnounceAfterBind(t *testing.T) {
	log := zapr.NewLogger(zaptest.NewLogger(t))
	var out bytes.Buffer
	listen := announce(&out, output.NewTtyStyler(aurora.NewAurora(false)), state.CertSourceGenerate, acceptor.Listen)

	a, err := listen(context.Background(), log, acceptor.Config{Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, "Serving TLS on "+a.Addr().String()+" (certificate: generate)\n", out.String())
}

func TestAnnounceSilentOnBindError(t *testing.T) {
	var out bytes.Buffer
	failing := func(ctx context.Context, log logr.Logger, cfg acceptor.Config) (*acceptor.Acceptor, error) {
		return nil, &acceptor.BindError{Addr: cfg.Address()}
	}
	listen := announce(&out, output.NewTtyStyler(aurora.NewAurora(false)), state.CertSourceGenerate, failing)

	_, err := listen(context.Background(), logr.Discard(), acceptor.Config{Port: 8443})
	require.Error(t, err)
	require.Empty(t, out.String())
}
