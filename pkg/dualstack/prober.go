// Package dualstack fetches a URL once under each address-family policy and compares the results.
package dualstack

import (
	"context"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/mt-inside/tls-probe/pkg/probes"
)

// Policies is the order attempts are made and reported in.
var Policies = []probes.Family{probes.Unspecified, probes.ForcedV4, probes.ForcedV6}

var DefaultURLs = []string{
	"https://httpbin.org/ip",
	"https://api.ipify.org?format=json",
	"https://jsonplaceholder.typicode.com/posts/1",
	"https://httpbin.org/get",
}

const DefaultPause = 3 * time.Second

type Annotator interface {
	Country(addr string) string
}

type Prober struct {
	Client probes.HTTPClient
	Log    logr.Logger
	// Optional
	GeoIP Annotator
	// Between URLs in ProbeAll, so as not to hammer public test services.
	Pause time.Duration
}

// Probe makes one attempt per policy, in order, each run to completion before the next starts.
// A failed attempt doesn't stop the others.
func (p *Prober) Probe(ctx context.Context, url string) Comparison {
	attempts := make([]Attempt, 0, len(Policies))

	for _, policy := range Policies {
		log := p.Log.WithValues("url", url, "policy", policy.String())

		resp := p.Client.Do(ctx, probes.Request{URL: url, Method: http.MethodGet, Family: policy})

		a := Attempt{
			Policy:          policy,
			Success:         resp.Err == nil,
			HTTPStatus:      resp.Status,
			ResolvedAddress: resp.RemoteAddr,
			Elapsed:         resp.Elapsed,
			ResponseLength:  len(resp.Body),
			Proto:           resp.Proto,
			Body:            resp.Body,
		}
		if resp.Err != nil {
			a.Err = resp.Err.Error()
			log.V(1).Info("Attempt failed", "error", a.Err, "elapsed", a.Elapsed)
		} else {
			log.V(1).Info("Attempt succeeded", "status", a.HTTPStatus, "addr", a.ResolvedAddress, "elapsed", a.Elapsed)
		}
		if p.GeoIP != nil && a.ResolvedAddress != "" {
			a.Country = p.GeoIP.Country(a.ResolvedAddress)
		}

		attempts = append(attempts, a)
	}

	return Compare(url, attempts)
}

// ProbeAll probes each url in turn, pausing between them. It stops early only if ctx is done.
func (p *Prober) ProbeAll(ctx context.Context, urls []string) []Comparison {
	var cs []Comparison
	for i, url := range urls {
		if i > 0 && p.Pause > 0 {
			select {
			case <-ctx.Done():
				return cs
			case <-time.After(p.Pause):
			}
		}
		cs = append(cs, p.Probe(ctx, url))
	}
	return cs
}
