package certs

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/mt-inside/tls-probe/pkg/cryptort"
)

const (
	DefaultRSABits = 2048
	Validity       = 365 * 24 * time.Hour
	CommonName     = "localhost"
)

type GenerateProvider struct {
	Runtime *cryptort.Runtime
	RSABits int
}

func NewGenerateProvider(rt *cryptort.Runtime) *GenerateProvider {
	return &GenerateProvider{Runtime: rt, RSABits: DefaultRSABits}
}

func (p *GenerateProvider) Obtain(ctx context.Context) (*Material, error) {
	if err := p.Runtime.Check(); err != nil {
		return nil, genErr("crypto runtime unavailable", err)
	}

	bits := p.RSABits
	if bits == 0 {
		bits = DefaultRSABits
	}
	if bits < DefaultRSABits {
		return nil, genErr(fmt.Sprintf("refusing to generate a %d-bit RSA key; minimum is %d", bits, DefaultRSABits), nil)
	}

	key, err := rsa.GenerateKey(p.Runtime.Rand(), bits)
	if err != nil {
		return nil, genErr("RSA key generation failed", err)
	}

	// Subject mirrors the classic openssl test-server identity; SANs are added so Go clients can verify against it when told to trust it.
	name := pkix.Name{
		Country:            []string{"KR"},
		Province:           []string{"Seoul"},
		Locality:           []string{"Seoul"},
		Organization:       []string{"Test Organization"},
		OrganizationalUnit: []string{"Test Unit"},
		CommonName:         CommonName,
	}
	notBefore := p.Runtime.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               name,
		Issuer:                name,
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(Validity),
		SignatureAlgorithm:    x509.SHA256WithRSA,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{CommonName},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(p.Runtime.Rand(), tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, genErr("self-signing failed", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	m, err := newMaterial(certPEM, keyPEM, SourceGenerated, "<generated>", "<generated>")
	if err != nil {
		return nil, genErr("generated material failed its own checks", err)
	}
	return m, nil
}

func genErr(msg string, cause error) error {
	return &Error{Kind: KindGenerationFailed, Message: msg, Cause: cause}
}
