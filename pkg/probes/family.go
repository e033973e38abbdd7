package probes

import (
	"fmt"
	"net"
	"strings"
)

// Family is an address-family policy for resolution and dialing.
type Family int

const (
	Unspecified Family = iota
	ForcedV4
	ForcedV6
)

func (f Family) String() string {
	switch f {
	case ForcedV4:
		return "IPv4"
	case ForcedV6:
		return "IPv6"
	default:
		return "unspecified"
	}
}

// Network is the net.Dial network for this policy.
func (f Family) Network() string {
	switch f {
	case ForcedV4:
		return "tcp4"
	case ForcedV6:
		return "tcp6"
	default:
		return "tcp"
	}
}

// IPNetwork is the net.Resolver.LookupIP network for this policy.
func (f Family) IPNetwork() string {
	switch f {
	case ForcedV4:
		return "ip4"
	case ForcedV6:
		return "ip6"
	default:
		return "ip"
	}
}

func (f Family) Admits(ip net.IP) bool {
	switch f {
	case ForcedV4:
		return ip.To4() != nil
	case ForcedV6:
		return ip.To4() == nil && ip.To16() != nil
	default:
		return ip != nil
	}
}

func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(s) {
	case "4", "v4", "ipv4":
		return ForcedV4, nil
	case "6", "v6", "ipv6":
		return ForcedV6, nil
	case "", "any", "unspecified":
		return Unspecified, nil
	}
	return Unspecified, fmt.Errorf("unknown address family %q (want 4, 6, or any)", s)
}
