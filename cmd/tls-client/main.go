package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mt-inside/tls-probe/internal/cli"
	"github.com/mt-inside/tls-probe/pkg/modes"
	"github.com/mt-inside/tls-probe/pkg/probes"
	"github.com/mt-inside/tls-probe/pkg/state"
)

func main() {
	cmd := &cobra.Command{
		Use:   "tls-client hostname [port] [path]",
		Short: "Minimal TLS client: one GET over a hand-driven TLS session, printing what was negotiated",
		Args:  cobra.RangeArgs(1, 3),
		RunE:  appMain,
	}

	cmd.Flags().String("family", "4", "Address family to resolve and connect with: 4, 6, or any")
	cmd.Flags().String("resolver", "system", "How to resolve the hostname: system (platform resolver) or dns (query resolv.conf's servers directly)")
	cmd.Flags().Bool("dnssec", false, "Also check the name validates under DNSSEC")
	cmd.Flags().String("verify", "observe", "Certificate verification: observe (report failures, carry on) or enforce (abort the handshake)")
	cmd.Flags().StringSliceP("ca", "C", nil, "Path to a CA certificate to trust instead of the system pool; repeatable")
	cli.AddCommonFlags(cmd, probes.DefaultTimeout)
	cli.Bind(cmd)

	cli.Execute(cmd)
}

func appMain(cmd *cobra.Command, args []string) error {
	t, err := cli.Setup()
	if err != nil {
		return err
	}
	defer t.Close()

	clientData, err := state.ClientDataFromViper(args)
	if err != nil {
		return err
	}

	if clientData.Resolver == "system" {
		t.Log.V(1).Info("System resolver", "implementation", probes.DnsResolverName)
	}
	fmt.Printf("Connecting to %s port %s, %s only, verification %s\n",
		t.S.Addr(clientData.Host), t.S.Addr(fmt.Sprint(clientData.Port)), t.S.Noun(clientData.Family.String()), t.S.Noun(clientData.Verify.String()),
	)

	start := time.Now()
	report, err := modes.RunClient(context.Background(), t.Env(), clientData)
	if report != nil {
		if len(report.Addrs) > 0 {
			state.Banner(t.S, "DNS")
			state.PrintResolution(t.S, clientData.Host, clientData.Resolver, clientData.Family, report.Addrs)
			if viper.GetBool("dnssec") {
				state.PrintDNSSEC(t.S, clientData.Host, report.DNSSEC)
			}
		}
		if report.Session != nil {
			state.Banner(t.S, "TLS")
			state.PrintSession(t.S, t.B, report.Session)
			state.Banner(t.S, "Response")
			state.PrintExchange(t.S, t.B, report.Result, true)
		}
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nDone in %s\n", time.Since(start))
	return nil
}
