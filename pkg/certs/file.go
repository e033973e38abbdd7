package certs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mt-inside/tls-probe/pkg/cryptort"
)

const (
	DefaultDir = "certs"
	CertFile   = "server.crt"
	KeyFile    = "server.key"

	provisionHint = "run gen-cert to provision a certificate and key first"
)

type FileProvider struct {
	Runtime *cryptort.Runtime
	Dir     string
}

func NewFileProvider(rt *cryptort.Runtime, dir string) *FileProvider {
	if dir == "" {
		dir = DefaultDir
	}
	return &FileProvider{Runtime: rt, Dir: dir}
}

func (p *FileProvider) CertPath() string { return filepath.Join(p.Dir, CertFile) }
func (p *FileProvider) KeyPath() string  { return filepath.Join(p.Dir, KeyFile) }

func (p *FileProvider) Obtain(ctx context.Context) (*Material, error) {
	if err := p.Runtime.Check(); err != nil {
		return nil, &Error{Kind: KindLoadFailed, Message: "can't load certificate material", Cause: err}
	}

	certPEM, err := readPEM(p.CertPath(), "certificate")
	if err != nil {
		return nil, err
	}
	keyPEM, err := readPEM(p.KeyPath(), "private key")
	if err != nil {
		return nil, err
	}

	return newMaterial(certPEM, keyPEM, SourceLoaded, p.CertPath(), p.KeyPath())
}

func readPEM(path, what string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: KindNotFound, Path: path, Message: fmt.Sprintf("%s file not found: %s; %s", what, path, provisionHint)}
		}
		return nil, &Error{Kind: KindLoadFailed, Path: path, Message: fmt.Sprintf("can't stat %s file %s", what, path), Cause: err}
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindLoadFailed, Path: path, Message: fmt.Sprintf("can't read %s file %s", what, path), Cause: err}
	}
	return bs, nil
}

// WritePEM is the provisioning step FileProvider expects to have been run. The key file is written owner-only.
func WritePEM(dir string, m *Material) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("can't create certificate directory %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, CertFile), m.CertPEM, 0o644); err != nil {
		return fmt.Errorf("can't write certificate: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, KeyFile), m.KeyPEM, 0o600); err != nil {
		return fmt.Errorf("can't write private key: %w", err)
	}
	return nil
}
