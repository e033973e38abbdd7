package modes

import (
	"context"

	"github.com/mt-inside/tls-probe/pkg/dualstack"
	"github.com/mt-inside/tls-probe/pkg/probes"
	"github.com/mt-inside/tls-probe/pkg/state"
)

// NewProbeClient is the HTTP client dual-stack and the verb tests use.
func NewProbeClient(env Env, probeData *state.ProbeData) *probes.Client {
	return &probes.Client{
		Log:            env.Log,
		Events:         env.Events,
		ConnectTimeout: probeData.ConnectTimeout,
		Timeout:        probeData.Timeout,
		AuthKerberos:   probeData.AuthKerberos,
	}
}

func RunDualStack(ctx context.Context, env Env, probeData *state.ProbeData, client probes.HTTPClient) ([]dualstack.Comparison, error) {
	p := &dualstack.Prober{
		Client: client,
		Log:    env.Log,
		Pause:  probeData.Pause,
	}

	if probeData.GeoIPDB != "" {
		geo, err := dualstack.OpenGeoIP(env.Log, probeData.GeoIPDB)
		if err != nil {
			return nil, err
		}
		defer geo.Close()
		p.GeoIP = geo
	}

	return p.ProbeAll(ctx, probeData.URLs), nil
}
