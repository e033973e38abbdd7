package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mt-inside/tls-probe/internal/cli"
	"github.com/mt-inside/tls-probe/pkg/certs"
	"github.com/mt-inside/tls-probe/pkg/cryptort"
)

func main() {
	cli.Execute(newCommand())
}

func newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen-cert [dir]",
		Short: "Generate a self-signed localhost certificate and key for tls-server --cert-source=file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  appMain,
	}
	cmd.Flags().Int("bits", certs.DefaultRSABits, "RSA key size")
	cli.AddCommonFlags(cmd, 0)
	cli.Bind(cmd)
	return cmd
}

func appMain(cmd *cobra.Command, args []string) error {
	t, err := cli.Setup()
	if err != nil {
		return err
	}
	defer t.Close()

	dir := certs.DefaultDir
	if len(args) > 0 {
		dir = args[0]
	}

	m, fp, err := generate(context.Background(), t.Runtime, dir, viper.GetInt("bits"))
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s and %s\n", t.S.Addr(fp.CertPath()), t.S.Addr(fp.KeyPath()))
	fmt.Printf("\tSubject %s\n", t.S.Noun(m.Leaf.Subject.String()))
	fmt.Printf("\tValid until %s\n", t.S.Noun(m.Leaf.NotAfter.String()))
	return nil
}

func generate(ctx context.Context, rt *cryptort.Runtime, dir string, bits int) (*certs.Material, *certs.FileProvider, error) {
	p := certs.NewGenerateProvider(rt)
	p.RSABits = bits
	m, err := p.Obtain(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := certs.WritePEM(dir, m); err != nil {
		return nil, nil, err
	}

	// Read it back the way tls-server will.
	fp := certs.NewFileProvider(rt, dir)
	if _, err := fp.Obtain(ctx); err != nil {
		return nil, nil, err
	}
	return m, fp, nil
}
