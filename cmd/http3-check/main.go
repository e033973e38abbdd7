package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mt-inside/tls-probe/internal/cli"
	"github.com/mt-inside/tls-probe/pkg/events"
	"github.com/mt-inside/tls-probe/pkg/probes"
)

const defaultURL = "https://cloudflare.com"

func main() {
	cmd := &cobra.Command{
		Use:   "http3-check [url]",
		Short: "Fetch a URL over HTTP/3 (QUIC) and show the handshake and protocol events",
		Args:  cobra.MaximumNArgs(1),
		RunE:  appMain,
	}
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

	url := defaultURL
	if len(args) > 0 {
		url = args[0]
	}

	// Only what says something about the connection and protocol; data events are noise here.
	filter := events.Or(
		events.Stages(events.StageConnect, events.StageHandshakeDone, events.StageALPN, events.StageProtocol, events.StageClose),
		events.Only(events.KindText),
	)
	rec := &events.Recorder{}

	client := &probes.Client{
		Log:        t.Log,
		Events:     events.Emitter{Sink: rec.Sink, Filter: filter},
		Timeout:    viper.GetDuration("timeout"),
		ForceHTTP3: true,
	}

	fmt.Printf("Requesting %s over HTTP/3\n", t.S.Addr(url))
	resp := client.Do(context.Background(), probes.Request{URL: url})

	for _, e := range rec.Events {
		fmt.Printf("\t%s %s\n", e.Time.Format("15:04:05.000"), e.String())
	}

	if resp.Err != nil {
		return resp.Err
	}
	fmt.Printf("Negotiated %s from %s, status %s, %d bytes in %s\n",
		t.S.Noun(resp.Proto), t.S.Addr(resp.RemoteAddr), t.S.Ok(fmt.Sprint(resp.Status)), len(resp.Body), resp.Elapsed,
	)
	return nil
}
