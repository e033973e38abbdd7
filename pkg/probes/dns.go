package probes

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/miekg/dns"
	"github.com/peterzen/goresolver"
)

// DNSResolver talks DNS directly to the servers in resolv.conf, asking only for the record types the family allows.
// Unlike SystemResolver it never consults /etc/hosts.
type DNSResolver struct {
	Log        logr.Logger
	ConfigPath string
	Timeout    time.Duration
}

func (r DNSResolver) config() (resolvConf, error) {
	path := r.ConfigPath
	if path == "" {
		path = ResolvConfPath
	}
	fd, err := os.Open(path)
	if err != nil {
		return resolvConf{}, err
	}
	defer fd.Close()

	h, _ := os.Hostname()
	return parseResolvConf(fd, h)
}

func qtypes(family Family) []uint16 {
	switch family {
	case ForcedV4:
		return []uint16{dns.TypeA}
	case ForcedV6:
		return []uint16{dns.TypeAAAA}
	default:
		return []uint16{dns.TypeA, dns.TypeAAAA}
	}
}

func (r DNSResolver) Resolve(ctx context.Context, host string, family Family) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return literal(host, ip, family)
	}

	rc, err := r.config()
	if err != nil {
		return nil, &ResolutionError{Host: host, Family: family, Cause: err}
	}
	if len(rc.servers) == 0 {
		return nil, &ResolutionError{Host: host, Family: family, Cause: errors.New("no nameservers configured")}
	}

	timeout := r.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	c := dns.Client{
		Dialer: &net.Dialer{Timeout: timeout},
	}

	var lastErr error
serversLoop:
	for _, server := range rc.servers {
		r.Log.V(1).Info("Trying DNS server", "addr", server)

		for _, name := range rc.nameList(host) {
			r.Log.V(1).Info("Trying search path item", "fqdn", name)

			var ips []net.IP
			for _, qt := range qtypes(family) {
				m := new(dns.Msg)
				// Asks the server to recurse for us.
				m.SetQuestion(name, qt)

				in, _, err := c.ExchangeContext(ctx, m, server)
				if err != nil {
					lastErr = err
					continue serversLoop
				}
				ips = append(ips, addresses(in.Answer)...)
			}

			if len(ips) > 0 {
				return ips, nil
			}
		}

		// Server answered every name without any records; another won't know better.
		return nil, &ResolutionError{Host: host, Family: family, Cause: errors.New("NXDOMAIN")}
	}

	return nil, &ResolutionError{Host: host, Family: family, Cause: fmt.Errorf("all DNS servers failed: %w", lastErr)}
}

// addresses pulls the A and AAAA records out of an answer; any CNAME chain leading to them is skipped over.
func addresses(answers []dns.RR) []net.IP {
	var ips []net.IP
	for _, ans := range answers {
		switch t := ans.(type) {
		case *dns.A:
			ips = append(ips, t.A)
		case *dns.AAAA:
			ips = append(ips, t.AAAA)
		}
	}
	return ips
}

/* Validating DNSSEC ourselves means walking RRSIG, DNSKEY, and DS right up to the root.
 * goresolver is known to do that properly; recursive resolvers are known to strip the records, let alone validate them.
 */
func CheckDNSSEC(resolvConfPath, host string) error {
	if resolvConfPath == "" {
		resolvConfPath = ResolvConfPath
	}
	resolver, err := goresolver.NewResolver(resolvConfPath)
	if err != nil {
		return err
	}

	_, err = resolver.StrictNSQuery(dns.Fqdn(host), dns.TypeA)
	return err
}
