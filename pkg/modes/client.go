package modes

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/mt-inside/tls-probe/pkg/events"
	"github.com/mt-inside/tls-probe/pkg/exchange"
	"github.com/mt-inside/tls-probe/pkg/probes"
	"github.com/mt-inside/tls-probe/pkg/session"
	"github.com/mt-inside/tls-probe/pkg/state"
)

type ClientReport struct {
	Addrs  []net.IP
	DNSSEC error
	// Closed by the time RunClient returns; Info() remains readable.
	Session *session.Session
	Result  exchange.Result
}

func resolver(env Env, clientData *state.ClientData) probes.Resolver {
	if clientData.Resolver == "dns" {
		return probes.DNSResolver{Log: env.Log, Timeout: clientData.Timeout}
	}
	return probes.SystemResolver{}
}

// RunClient resolves under the configured family, connects to the first address that answers, handshakes, and does one GET.
func RunClient(ctx context.Context, env Env, clientData *state.ClientData) (*ClientReport, error) {
	if clientData.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, clientData.Timeout)
		defer cancel()
	}

	report := &ClientReport{}

	ips, err := resolver(env, clientData).Resolve(ctx, clientData.Host, clientData.Family)
	if err != nil {
		return nil, err
	}
	report.Addrs = ips

	if clientData.DNSSEC && net.ParseIP(clientData.Host) == nil {
		report.DNSSEC = probes.CheckDNSSEC("", clientData.Host)
	}

	conn, err := dialFirst(ctx, env, clientData, ips)
	if err != nil {
		return report, err
	}
	defer conn.Close()

	factory := &session.Factory{
		Runtime: env.Runtime,
		Log:     env.Log,
		Verify:  clientData.Verify,
		Roots:   clientData.Roots,
		Events:  env.Events,
	}
	sess, err := factory.Establish(ctx, session.RoleClient, conn, nil, clientData.Host)
	if err != nil {
		return report, err
	}
	report.Session = sess
	defer sess.Close()

	report.Result = exchange.RequestOnce(sess, hostHeader(clientData), clientData.Path, exchange.Options{Log: env.Log.WithValues("session", sess.ID.String())})
	return report, report.Result.Err
}

func dialFirst(ctx context.Context, env Env, clientData *state.ClientData, ips []net.IP) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: probes.DefaultConnectTimeout}
	port := strconv.Itoa(clientData.Port)

	var lastErr error
	for _, ip := range ips {
		addr := net.JoinHostPort(ip.String(), port)
		env.Events.Stage(events.StageConnect, clientData.Family.Network()+" "+addr)

		conn, err := dialer.DialContext(ctx, clientData.Family.Network(), addr)
		if err != nil {
			env.Log.V(1).Info("Connect failed", "addr", addr, "error", err.Error())
			lastErr = err
			continue
		}
		env.Log.V(1).Info("Connected", "to", conn.RemoteAddr().String(), "from", conn.LocalAddr().String())
		return conn, nil
	}
	return nil, fmt.Errorf("can't connect to %s on port %s: %w", clientData.Host, port, lastErr)
}

// The Host header carries the port only when it isn't the default.
func hostHeader(clientData *state.ClientData) string {
	if clientData.Port == state.DefaultClientPort {
		return clientData.Host
	}
	return net.JoinHostPort(clientData.Host, strconv.Itoa(clientData.Port))
}
