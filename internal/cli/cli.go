// Package cli is the scaffolding every tls-probe binary shares: common flags, terminal output, logging, and the crypto runtime.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/logrusorgru/aurora/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mt-inside/http-log/pkg/bios"
	"github.com/mt-inside/http-log/pkg/output"

	"github.com/mt-inside/tls-probe/internal/logging"
	"github.com/mt-inside/tls-probe/pkg/cryptort"
	"github.com/mt-inside/tls-probe/pkg/events"
	"github.com/mt-inside/tls-probe/pkg/modes"
)

type Tools struct {
	S         output.TtyStyler
	B         bios.Bios
	Log       logr.Logger
	Runtime   *cryptort.Runtime
	Verbosity int

	sync func()
}

func (t *Tools) Env() modes.Env {
	return modes.Env{Log: t.Log, Runtime: t.Runtime, Events: t.Events(events.All)}
}

// Events sends everything filter admits to the log at V(2).
func (t *Tools) Events(filter events.Filter) events.Emitter {
	log := t.Log.V(2)
	return events.Emitter{
		Filter: filter,
		Sink: func(e events.Event) {
			log.Info("Event", "kind", e.Kind.String(), "detail", e.String())
		},
	}
}

func (t *Tools) Close() {
	t.Runtime.Shutdown()
	t.sync()
}

// AddCommonFlags adds the flags every binary has. Call before Bind.
func AddCommonFlags(cmd *cobra.Command, timeout time.Duration) {
	cmd.Flags().CountP("verbosity", "v", "Log verbosity; repeat for more")
	cmd.Flags().DurationP("timeout", "t", timeout, "Timeout for the whole operation")
}

func Bind(cmd *cobra.Command) {
	err := viper.BindPFlags(cmd.Flags())
	if err != nil {
		panic(errors.New("can't set up flags"))
	}
}

func Setup() (*Tools, error) {
	s := output.NewTtyStyler(aurora.NewAurora(true))
	b := bios.NewTtyBios(s)

	verbosity := viper.GetInt("verbosity")
	log, sync, err := logging.New(verbosity)
	if err != nil {
		return nil, err
	}

	rt, err := cryptort.Init()
	if err != nil {
		sync()
		return nil, err
	}

	return &Tools{S: s, B: b, Log: log, Runtime: rt, Verbosity: verbosity, sync: sync}, nil
}

// Execute runs cmd and exits 1 on any error, including bad arguments (for which cobra prints usage).
func Execute(cmd *cobra.Command) {
	// Usage is for argument errors only; once RunE starts, failures are operational.
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		cmd.SilenceUsage = true
	}
	cmd.SilenceErrors = true

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
