package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mt-inside/http-log/pkg/output"

	"github.com/mt-inside/tls-probe/internal/cli"
	"github.com/mt-inside/tls-probe/pkg/acceptor"
	"github.com/mt-inside/tls-probe/pkg/certs"
	"github.com/mt-inside/tls-probe/pkg/exchange"
	"github.com/mt-inside/tls-probe/pkg/modes"
	"github.com/mt-inside/tls-probe/pkg/session"
	"github.com/mt-inside/tls-probe/pkg/state"
)

func main() {
	cmd := &cobra.Command{
		Use:   "tls-server [port]",
		Short: "Minimal TLS server: answers each connection's request with a fixed HTML page",
		Args:  cobra.MaximumNArgs(1),
		RunE:  appMain,
	}

	cmd.Flags().String("cert-source", state.CertSourceGenerate, "Where the serving certificate comes from: generate (self-signed at startup) or file")
	cmd.Flags().String("cert-dir", certs.DefaultDir, "Directory holding server.crt and server.key, for --cert-source=file")
	cmd.Flags().String("host", "", "Address to bind (default all interfaces)")
	cli.AddCommonFlags(cmd, 0)
	cli.Bind(cmd)

	cli.Execute(cmd)
}

func appMain(cmd *cobra.Command, args []string) error {
	t, err := cli.Setup()
	if err != nil {
		return err
	}
	defer t.Close()

	serverData, err := state.ServerDataFromViper(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if d := viper.GetDuration("timeout"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	listen := announce(os.Stdout, t.S, serverData.CertSource, acceptor.Listen)
	return modes.RunServer(ctx, t.Env(), serverData, listen, func(sess *session.Session, res exchange.Result) {
		state.Banner(t.S, time.Now().Format(time.RFC3339))
		state.PrintSession(t.S, t.B, sess)
		state.PrintExchange(t.S, t.B, res, false)
	})
}

// announce prints the serving line once listen has actually bound.
func announce(w io.Writer, s output.TtyStyler, certSource string, listen acceptor.ListenFunc) acceptor.ListenFunc {
	return func(ctx context.Context, log logr.Logger, cfg acceptor.Config) (*acceptor.Acceptor, error) {
		a, err := listen(ctx, log, cfg)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "Serving TLS on %s (certificate: %s)\n", s.Addr(a.Addr().String()), s.Noun(certSource))
		return a, nil
	}
}
