package state

import (
	"time"

	"github.com/spf13/viper"

	"github.com/mt-inside/tls-probe/pkg/dualstack"
	"github.com/mt-inside/tls-probe/pkg/probes"
)

type ProbeData struct {
	Timeout        time.Duration
	ConnectTimeout time.Duration

	URLs  []string
	Pause time.Duration

	GeoIPDB      string
	PrintBody    bool
	AuthKerberos bool
}

// ProbeDataFromViper always uses the built-in URL list.
func ProbeDataFromViper() *ProbeData {
	probeData := &ProbeData{
		Timeout:        viper.GetDuration("timeout"),
		ConnectTimeout: viper.GetDuration("connect-timeout"),
		URLs:           dualstack.DefaultURLs,
		Pause:          viper.GetDuration("pause"),
		GeoIPDB:        viper.GetString("geoip-db"),
		PrintBody:      viper.GetBool("print-body"),
		AuthKerberos:   viper.GetBool("auth-kerberos"),
	}
	if probeData.Timeout == 0 {
		probeData.Timeout = probes.DefaultTimeout
	}
	if probeData.ConnectTimeout == 0 {
		probeData.ConnectTimeout = probes.DefaultConnectTimeout
	}
	return probeData
}
