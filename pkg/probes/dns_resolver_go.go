//go:build !cgo || netgo

package probes

const DnsResolverName = "Go (native resolver, reading /etc/hosts and /etc/resolv.conf itself)"
