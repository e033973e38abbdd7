package certs

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mt-inside/tls-probe/pkg/cryptort"
)

func testRuntime(t *testing.T) *cryptort.Runtime {
	rt, err := cryptort.Init()
	require.NoError(t, err)
	return rt
}

func generate(t *testing.T, rt *cryptort.Runtime) *Material {
	m, err := NewGenerateProvider(rt).Obtain(context.Background())
	require.NoError(t, err)
	return m
}

func TestGenerate(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rt, err := cryptort.Init(cryptort.WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	m := generate(t, rt)

	require.Equal(t, SourceGenerated, m.Source)
	require.Equal(t, big.NewInt(1), m.Leaf.SerialNumber)
	require.Equal(t, "localhost", m.Leaf.Subject.CommonName)
	require.Equal(t, m.Leaf.Subject.String(), m.Leaf.Issuer.String())
	require.Equal(t, x509.SHA256WithRSA, m.Leaf.SignatureAlgorithm)
	require.True(t, m.Leaf.NotBefore.Equal(fixed))
	require.True(t, m.Leaf.NotAfter.Equal(fixed.Add(365*24*time.Hour)))
	require.NoError(t, m.Leaf.CheckSignatureFrom(m.Leaf))

	pub, ok := m.Leaf.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	require.GreaterOrEqual(t, pub.N.BitLen(), 2048)
}

func TestGenerateRejectsSmallKeys(t *testing.T) {
	p := NewGenerateProvider(testRuntime(t))
	p.RSABits = 1024
	_, err := p.Obtain(context.Background())
	require.True(t, IsKind(err, KindGenerationFailed))
}

func TestGenerateAfterShutdown(t *testing.T) {
	rt := testRuntime(t)
	rt.Shutdown()
	_, err := NewGenerateProvider(rt).Obtain(context.Background())
	require.True(t, IsKind(err, KindGenerationFailed))
}

func TestFileRoundTrip(t *testing.T) {
	rt := testRuntime(t)
	dir := t.TempDir()
	orig := generate(t, rt)
	require.NoError(t, WritePEM(dir, orig))

	info, err := os.Stat(filepath.Join(dir, KeyFile))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	m, err := NewFileProvider(rt, dir).Obtain(context.Background())
	require.NoError(t, err)
	require.Equal(t, SourceLoaded, m.Source)
	require.Equal(t, orig.Leaf.Raw, m.Leaf.Raw)
}

func TestFileMissing(t *testing.T) {
	rt := testRuntime(t)
	orig := generate(t, rt)

	t.Run("cert", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, KeyFile), orig.KeyPEM, 0o600))

		m, err := NewFileProvider(rt, dir).Obtain(context.Background())
		require.Nil(t, m)
		require.True(t, IsKind(err, KindNotFound))
		require.Contains(t, err.Error(), filepath.Join(dir, CertFile))
		require.Contains(t, err.Error(), "gen-cert")
	})

	t.Run("key", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, CertFile), orig.CertPEM, 0o644))

		m, err := NewFileProvider(rt, dir).Obtain(context.Background())
		require.Nil(t, m)
		require.True(t, IsKind(err, KindNotFound))
		require.Contains(t, err.Error(), filepath.Join(dir, KeyFile))
	})
}

func TestFileMalformed(t *testing.T) {
	rt := testRuntime(t)
	orig := generate(t, rt)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CertFile), []byte("not a pem"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyFile), orig.KeyPEM, 0o600))

	m, err := NewFileProvider(rt, dir).Obtain(context.Background())
	require.Nil(t, m)
	require.True(t, IsKind(err, KindLoadFailed))
}

func TestFileKeyMismatch(t *testing.T) {
	rt := testRuntime(t)
	a := generate(t, rt)
	b := generate(t, rt)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CertFile), a.CertPEM, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyFile), b.KeyPEM, 0o600))

	m, err := NewFileProvider(rt, dir).Obtain(context.Background())
	require.Nil(t, m)
	require.True(t, IsKind(err, KindKeyMismatch))
}
