package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mt-inside/tls-probe/internal/cli"
	"github.com/mt-inside/tls-probe/pkg/probes"
)

const defaultBase = "https://jsonplaceholder.typicode.com"

type verbCase struct {
	method string
	path   string
	body   string
}

var cases = []verbCase{
	{http.MethodGet, "/posts/1", ""},
	{http.MethodPost, "/posts", `{"title":"foo","body":"bar","userId":1}`},
	{http.MethodPut, "/posts/1", `{"id":1,"title":"updated","body":"updated body","userId":1}`},
	{http.MethodDelete, "/posts/1", ""},
}

func main() {
	cmd := &cobra.Command{
		Use:   "http-verbs [base-url]",
		Short: "Exercise GET, POST, PUT, and DELETE against a JSON API",
		Args:  cobra.MaximumNArgs(1),
		RunE:  appMain,
	}
	cmd.Flags().String("family", "any", "Address family: 4, 6, or any")
	cmd.Flags().BoolP("auth-kerberos", "n", false, "Negotiate Kerberos auth")
	cmd.Flags().Duration("connect-timeout", probes.DefaultConnectTimeout, "Timeout for each TCP connect")
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

	base := defaultBase
	if len(args) > 0 {
		base = args[0]
	}
	family, err := probes.ParseFamily(viper.GetString("family"))
	if err != nil {
		return err
	}

	env := t.Env()
	client := &probes.Client{
		Log:            env.Log,
		Events:         env.Events,
		ConnectTimeout: viper.GetDuration("connect-timeout"),
		Timeout:        viper.GetDuration("timeout"),
		AuthKerberos:   viper.GetBool("auth-kerberos"),
	}

	failed := 0
	for _, c := range cases {
		req := probes.Request{URL: base + c.path, Method: c.method, Family: family}
		if c.body != "" {
			req.Body = []byte(c.body)
			req.Headers = http.Header{"Content-Type": []string{"application/json; charset=UTF-8"}}
		}

		fmt.Printf("%s %s\n", t.S.Verb(c.method), t.S.Addr(req.URL))
		resp := client.Do(context.Background(), req)
		if resp.Err != nil {
			t.B.PrintWarn(resp.Err.Error())
			failed++
			continue
		}

		status := strconv.Itoa(resp.Status)
		if resp.Status >= 400 {
			fmt.Printf("\t%s %s in %s\n", t.S.Fail(status), t.S.Noun(resp.Proto), resp.Elapsed)
			failed++
		} else {
			fmt.Printf("\t%s %s in %s\n", t.S.Ok(status), t.S.Noun(resp.Proto), resp.Elapsed)
		}
		if len(resp.Body) > 0 {
			fmt.Printf("\t%s\n", string(resp.Body))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(cases))
	}
	return nil
}
