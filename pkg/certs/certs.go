// Package certs supplies the certificate and private key a TLS server presents, either read from PEM files or minted as a self-signed pair at startup.
package certs

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

type Source int

const (
	SourceLoaded Source = iota
	SourceGenerated
)

func (s Source) String() string {
	switch s {
	case SourceLoaded:
		return "loaded"
	case SourceGenerated:
		return "generated"
	default:
		return "unknown"
	}
}

// Material is built once per process and never mutated, so it's shared by every accepted connection without locking.
type Material struct {
	CertPEM []byte
	KeyPEM  []byte
	Source  Source

	Pair tls.Certificate
	Leaf *x509.Certificate
}

type Provider interface {
	Obtain(ctx context.Context) (*Material, error)
}

// newMaterial parses and cross-checks a cert/key pair. path is only used to annotate errors.
func newMaterial(certPEM, keyPEM []byte, source Source, certPath, keyPath string) (*Material, error) {
	leaf, err := parseLeaf(certPEM)
	if err != nil {
		return nil, &Error{Kind: KindLoadFailed, Path: certPath, Message: fmt.Sprintf("can't parse certificate %s", certPath), Cause: err}
	}

	key, err := parseKey(keyPEM)
	if err != nil {
		return nil, &Error{Kind: KindLoadFailed, Path: keyPath, Message: fmt.Sprintf("can't parse private key %s", keyPath), Cause: err}
	}

	if !publicKeysMatch(leaf.PublicKey, key.Public()) {
		return nil, &Error{Kind: KindKeyMismatch, Path: keyPath, Message: fmt.Sprintf("private key %s does not match the public key of certificate %s", keyPath, certPath)}
	}

	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, &Error{Kind: KindLoadFailed, Path: certPath, Message: "can't assemble key pair", Cause: err}
	}
	pair.Leaf = leaf

	return &Material{
		CertPEM: bytes.Clone(certPEM),
		KeyPEM:  bytes.Clone(keyPEM),
		Source:  source,
		Pair:    pair,
		Leaf:    leaf,
	}, nil
}

func parseLeaf(certPEM []byte) (*x509.Certificate, error) {
	for rest := certPEM; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, errors.New("no CERTIFICATE block found")
		}
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
}

func parseKey(keyPEM []byte) (crypto.Signer, error) {
	for rest := keyPEM; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, errors.New("no private key block found")
		}

		switch block.Type {
		case "RSA PRIVATE KEY":
			return x509.ParsePKCS1PrivateKey(block.Bytes)
		case "EC PRIVATE KEY":
			return x509.ParseECPrivateKey(block.Bytes)
		case "PRIVATE KEY":
			k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			signer, ok := k.(crypto.Signer)
			if !ok {
				return nil, fmt.Errorf("unsupported PKCS#8 key type %T", k)
			}
			return signer, nil
		}
	}
}

func publicKeysMatch(certKey, privKeyPub crypto.PublicKey) bool {
	switch pub := certKey.(type) {
	case *rsa.PublicKey:
		return pub.Equal(privKeyPub)
	case *ecdsa.PublicKey:
		return pub.Equal(privKeyPub)
	case ed25519.PublicKey:
		return pub.Equal(privKeyPub)
	default:
		return false
	}
}
