package probes

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

const ResolvConfPath = "/etc/resolv.conf"

type resolvConf struct {
	servers []string
	search  []string
	ndots   int
}

// Heavily inspired by https://cs.opensource.google/go/go/+/refs/tags/go1.18:src/net/dnsconfig_unix.go;l=67;drc=refs%2Ftags%2Fgo1.18
// hostname seeds the default search domain, as libc does.
func parseResolvConf(r io.Reader, hostname string) (resolvConf, error) {
	rc := resolvConf{search: defaultSearch(hostname), ndots: 1}

	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanLines)

	for scanner.Scan() {
		line := scanner.Text()

		if len(line) > 0 && (line[0] == ';' || line[0] == '#') {
			// comment
			continue
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return strings.ContainsRune(" \r\t\n", r)
		})
		if len(fields) < 2 {
			continue
		}

		switch fields[0] {
		case "nameserver":
			if net.ParseIP(fields[1]) != nil {
				rc.servers = append(rc.servers, net.JoinHostPort(fields[1], "53"))
			}

		case "domain": // search path is just this domain
			rc.search = []string{dns.Fqdn(fields[1])}

		case "search": // search path is all these domains
			rc.search = nil // clear default search domain
			for _, d := range fields[1:] {
				rc.search = append(rc.search, dns.Fqdn(d))
			}

		case "options":
			for _, str := range fields[1:] {
				if strings.HasPrefix(str, "ndots:") {
					n, err := strconv.Atoi(str[len("ndots:"):])
					if err != nil || n < 0 {
						return rc, fmt.Errorf("bad resolv.conf option %q", str)
					}
					rc.ndots = n
				}
				// Other options don't affect which names we ask for.
			}
		}
	}

	return rc, scanner.Err()
}

func defaultSearch(hostname string) []string {
	if i := strings.IndexByte(hostname, '.'); i >= 0 && i < len(hostname)-1 {
		return []string{dns.Fqdn(hostname[i+1:])}
	}
	return nil
}

// nameList is the order of fully-qualified names to try for name.
func (rc resolvConf) nameList(name string) []string {
	if dns.IsFqdn(name) {
		return []string{name}
	}

	var names []string
	withSearch := func() {
		for _, s := range rc.search {
			if s == "." {
				continue
			}
			names = append(names, dns.Fqdn(name+"."+strings.TrimSuffix(s, ".")))
		}
	}

	if dns.CountLabel(name) >= rc.ndots {
		names = append(names, dns.Fqdn(name))
		withSearch()
	} else {
		withSearch()
		names = append(names, dns.Fqdn(name))
	}
	return names
}
