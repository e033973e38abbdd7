package probes

import (
	"context"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseResolvConf(t *testing.T) {
	conf := `# generated
nameserver 10.0.0.53
nameserver fd00::53
nameserver not-an-ip
search corp.example lab.example
options ndots:2 edns0
`
	rc, err := parseResolvConf(strings.NewReader(conf), "box.home.example")
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.53:53", "[fd00::53]:53"}, rc.servers)
	require.Equal(t, []string{"corp.example.", "lab.example."}, rc.search)
	require.Equal(t, 2, rc.ndots)

	require.Equal(t, []string{"www.corp.example.", "www.lab.example.", "www."}, rc.nameList("www"))
	require.Equal(t, []string{"a.b.c.", "a.b.c.corp.example.", "a.b.c.lab.example."}, rc.nameList("a.b.c"))
	require.Equal(t, []string{"example.com."}, rc.nameList("example.com."))
}

func TestParseResolvConfDefaults(t *testing.T) {
	rc, err := parseResolvConf(strings.NewReader("nameserver 1.1.1.1\n"), "box.home.example")
	require.NoError(t, err)
	require.Equal(t, []string{"home.example."}, rc.search)
	require.Equal(t, 1, rc.ndots)

	_, err = parseResolvConf(strings.NewReader("options ndots:lots\n"), "")
	require.Error(t, err)
}

func TestFamily(t *testing.T) {
	require.Equal(t, "tcp", Unspecified.Network())
	require.Equal(t, "tcp4", ForcedV4.Network())
	require.Equal(t, "tcp6", ForcedV6.Network())
	require.Equal(t, "ip4", ForcedV4.IPNetwork())

	require.True(t, ForcedV4.Admits(net.ParseIP("93.184.216.34")))
	require.False(t, ForcedV6.Admits(net.ParseIP("93.184.216.34")))
	require.True(t, ForcedV6.Admits(net.ParseIP("2606:2800:220:1:248:1893:25c8:1946")))

	f, err := ParseFamily("6")
	require.NoError(t, err)
	require.Equal(t, ForcedV6, f)
	_, err = ParseFamily("7")
	require.Error(t, err)
}

func TestSystemResolverLiterals(t *testing.T) {
	ips, err := SystemResolver{}.Resolve(context.Background(), "127.0.0.1", ForcedV4)
	require.NoError(t, err)
	require.Len(t, ips, 1)

	_, err = SystemResolver{}.Resolve(context.Background(), "127.0.0.1", ForcedV6)
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	require.Equal(t, ForcedV6, re.Family)
}

func TestDNSResolverNoServers(t *testing.T) {
	path := t.TempDir() + "/resolv.conf"
	require.NoError(t, os.WriteFile(path, []byte("search example\n"), 0o644))

	_, err := DNSResolver{ConfigPath: path}.Resolve(context.Background(), "www", ForcedV4)
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	require.Equal(t, "www", re.Host)
}
