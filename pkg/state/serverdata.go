package state

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/mt-inside/tls-probe/pkg/acceptor"
	"github.com/mt-inside/tls-probe/pkg/certs"
)

const (
	CertSourceGenerate = "generate"
	CertSourceFile     = "file"
)

type ServerData struct {
	Timeout time.Duration

	Host string
	Port int

	CertSource string
	CertDir    string
}

// ServerDataFromViper takes an optional port positionally.
func ServerDataFromViper(args []string) (*ServerData, error) {
	serverData := &ServerData{
		Timeout:    viper.GetDuration("timeout"),
		Host:       viper.GetString("host"),
		Port:       acceptor.DefaultPort,
		CertSource: viper.GetString("cert-source"),
		CertDir:    viper.GetString("cert-dir"),
	}

	if len(args) > 0 {
		port, err := parsePort(args[0])
		if err != nil {
			return nil, err
		}
		serverData.Port = port
	}

	switch serverData.CertSource {
	case "":
		serverData.CertSource = CertSourceGenerate
	case CertSourceGenerate, CertSourceFile:
	default:
		return nil, fmt.Errorf("unknown certificate source %q (want %s or %s)", serverData.CertSource, CertSourceGenerate, CertSourceFile)
	}
	if serverData.CertDir == "" {
		serverData.CertDir = certs.DefaultDir
	}

	return serverData, nil
}
