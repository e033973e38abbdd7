package state

import (
	"crypto/x509"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/mt-inside/http-log/pkg/codec"

	"github.com/mt-inside/tls-probe/pkg/probes"
	"github.com/mt-inside/tls-probe/pkg/session"
)

const (
	DefaultClientPort = 443
	DefaultPath       = "/"
)

// ClientData configures one TLS client test: resolve, connect, handshake, GET.
type ClientData struct {
	Timeout time.Duration

	Host string
	Port int
	Path string

	Family   probes.Family
	Resolver string // "system" or "dns"
	DNSSEC   bool

	Verify session.VerifyMode
	// nil means the system pool.
	Roots *x509.CertPool
}

// ClientDataFromViper takes hostname [port] [path] positionally, the rest from flags.
func ClientDataFromViper(args []string) (*ClientData, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("hostname is required")
	}

	clientData := &ClientData{
		Timeout:  viper.GetDuration("timeout"),
		Host:     args[0],
		Port:     DefaultClientPort,
		Path:     DefaultPath,
		Resolver: viper.GetString("resolver"),
		DNSSEC:   viper.GetBool("dnssec"),
	}

	if len(args) > 1 {
		port, err := parsePort(args[1])
		if err != nil {
			return nil, err
		}
		clientData.Port = port
	}
	if len(args) > 2 {
		clientData.Path = args[2]
	}

	var err error
	clientData.Family, err = probes.ParseFamily(viper.GetString("family"))
	if err != nil {
		return nil, err
	}
	clientData.Verify, err = session.ParseVerifyMode(viper.GetString("verify"))
	if err != nil {
		return nil, err
	}
	switch clientData.Resolver {
	case "", "system":
		clientData.Resolver = "system"
	case "dns":
	default:
		return nil, fmt.Errorf("unknown resolver %q (want system or dns)", clientData.Resolver)
	}

	clientData.Roots, err = loadRoots(viper.GetStringSlice("ca"))
	if err != nil {
		return nil, err
	}

	return clientData, nil
}

func loadRoots(paths []string) (*x509.CertPool, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	pool := x509.NewCertPool()
	for _, caPath := range paths {
		bytes, err := os.ReadFile(caPath)
		if err != nil {
			return nil, err
		}
		ca, err := codec.ParseCertificate(bytes)
		if err != nil {
			return nil, fmt.Errorf("can't parse CA %s: %w", caPath, err)
		}
		pool.AddCert(ca)
	}
	return pool, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}
