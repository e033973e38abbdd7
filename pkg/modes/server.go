// Package modes runs the tools' top-level flows: TLS server, TLS client, and dual-stack probe.
package modes

import (
	"context"
	"net"

	"github.com/go-logr/logr"

	"github.com/mt-inside/tls-probe/pkg/acceptor"
	"github.com/mt-inside/tls-probe/pkg/certs"
	"github.com/mt-inside/tls-probe/pkg/cryptort"
	"github.com/mt-inside/tls-probe/pkg/events"
	"github.com/mt-inside/tls-probe/pkg/exchange"
	"github.com/mt-inside/tls-probe/pkg/session"
	"github.com/mt-inside/tls-probe/pkg/state"
)

type Env struct {
	Log     logr.Logger
	Runtime *cryptort.Runtime
	Events  events.Emitter
}

// ServedFunc is told about each completed exchange, while the session is still open.
type ServedFunc func(*session.Session, exchange.Result)

func Provider(env Env, serverData *state.ServerData) certs.Provider {
	if serverData.CertSource == state.CertSourceFile {
		return certs.NewFileProvider(env.Runtime, serverData.CertDir)
	}
	return certs.NewGenerateProvider(env.Runtime)
}

// RunServer obtains certificate material, then binds and serves until ctx is done.
// Any certificate problem is returned before anything is bound.
func RunServer(ctx context.Context, env Env, serverData *state.ServerData, listen acceptor.ListenFunc, served ServedFunc) error {
	material, err := Provider(env, serverData).Obtain(ctx)
	if err != nil {
		return err
	}
	env.Log.Info("Certificate ready", "source", material.Source.String(), "subject", material.Leaf.Subject.String(), "expires", material.Leaf.NotAfter)

	a, err := listen(ctx, env.Log, acceptor.Config{Host: serverData.Host, Port: serverData.Port})
	if err != nil {
		return err
	}
	defer a.Close()

	factory := &session.Factory{
		Runtime: env.Runtime,
		Log:     env.Log,
		Events:  env.Events,
	}

	return a.Serve(ctx, func(ctx context.Context, conn net.Conn) error {
		sess, err := factory.Establish(ctx, session.RoleServer, conn, material, "")
		if err != nil {
			return err
		}
		defer sess.Close()

		res := exchange.ServeOne(sess, exchange.Options{Log: env.Log.WithValues("session", sess.ID.String())})
		if served != nil {
			served(sess, res)
		}
		return res.Err
	})
}
