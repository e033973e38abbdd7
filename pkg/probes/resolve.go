package probes

import (
	"context"
	"fmt"
	"net"
)

type ResolutionError struct {
	Host   string
	Family Family
	Cause  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("can't resolve %s (%s): %v", e.Host, e.Family, e.Cause)
}
func (e *ResolutionError) Unwrap() error { return e.Cause }

type Resolver interface {
	Resolve(ctx context.Context, host string, family Family) ([]net.IP, error)
}

// SystemResolver asks the platform resolver (see DnsResolverName), so /etc/hosts and friends are honoured.
type SystemResolver struct {
	Resolver *net.Resolver
}

func (r SystemResolver) Resolve(ctx context.Context, host string, family Family) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return literal(host, ip, family)
	}

	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}
	ips, err := res.LookupIP(ctx, family.IPNetwork(), host)
	if err != nil {
		return nil, &ResolutionError{Host: host, Family: family, Cause: err}
	}
	if len(ips) == 0 {
		return nil, &ResolutionError{Host: host, Family: family, Cause: fmt.Errorf("no addresses")}
	}
	return ips, nil
}

func literal(host string, ip net.IP, family Family) ([]net.IP, error) {
	if !family.Admits(ip) {
		return nil, &ResolutionError{Host: host, Family: family, Cause: fmt.Errorf("literal address is the wrong family")}
	}
	return []net.IP{ip}, nil
}
