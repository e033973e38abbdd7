package main

import (
	"context"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/mt-inside/tls-probe/internal/cli"
	"github.com/mt-inside/tls-probe/pkg/dualstack"
	"github.com/mt-inside/tls-probe/pkg/modes"
	"github.com/mt-inside/tls-probe/pkg/probes"
	"github.com/mt-inside/tls-probe/pkg/state"
)

func init() {
	spew.Config.DisableMethods = true
	spew.Config.DisablePointerMethods = true
}

func main() {
	cmd := &cobra.Command{
		Use:   "dual-stack",
		Short: "Fetch a fixed set of URLs over IPv4, IPv6, and the system default, and compare",
		Args:  cobra.NoArgs,
		RunE:  appMain,
	}

	cmd.Flags().Duration("pause", dualstack.DefaultPause, "Pause between URLs")
	cmd.Flags().Duration("connect-timeout", probes.DefaultConnectTimeout, "Timeout for each TCP connect")
	cmd.Flags().String("geoip-db", "", "Path to a MaxMind country database, to annotate addresses")
	cmd.Flags().BoolP("print-body", "b", false, "Print (the start of) each response body")
	cmd.Flags().BoolP("auth-kerberos", "n", false, "Negotiate Kerberos auth")
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

	probeData := state.ProbeDataFromViper()
	env := t.Env()

	comparisons, err := modes.RunDualStack(context.Background(), env, probeData, modes.NewProbeClient(env, probeData))
	if err != nil {
		return err
	}

	allOK := true
	for _, c := range comparisons {
		state.PrintComparison(t.S, t.B, c, probeData.PrintBody, t.Verbosity)
		allOK = allOK && c.BothSucceeded
	}

	fmt.Println()
	if !allOK {
		t.B.PrintWarn("not every URL worked over both IPv4 and IPv6")
	}
	return nil
}
