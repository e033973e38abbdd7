package utils

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// RFC 6066 §3 (https://www.rfc-editor.org/rfc/rfc6066)
// - DNS names only
// - No ports
// - No literal IPs
func ServerNameConformant(sn string) bool {
	if sn == "" {
		return false
	}
	// No IPs
	if ip := net.ParseIP(sn); ip != nil {
		return false
	}
	// No ports
	if _, _, err := net.SplitHostPort(sn); err == nil {
		return false
	}
	return true
}

// ServerName returns the value to send as SNI for hostname, or "" if none should be sent.
// Names are converted to their ASCII (punycode) form; a trailing dot is dropped.
func ServerName(hostname string) string {
	hostname = strings.TrimSuffix(hostname, ".")
	if !ServerNameConformant(hostname) {
		return ""
	}
	ascii, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		return ""
	}
	return ascii
}

// HostOnly strips any port from an address as printed by net.Addr.String().
func HostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
