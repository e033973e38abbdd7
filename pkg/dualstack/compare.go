package dualstack

import (
	"strings"
	"time"
	"unicode/utf8"

	dmp "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mt-inside/tls-probe/pkg/probes"
)

// AddrFamily is what an address looks like, as opposed to the policy that was asked for.
type AddrFamily int

const (
	FamilyUnknown AddrFamily = iota
	FamilyV4
	FamilyV6
)

func (f AddrFamily) String() string {
	switch f {
	case FamilyV4:
		return "IPv4"
	case FamilyV6:
		return "IPv6"
	default:
		return "unknown"
	}
}

// InferFamily goes purely on syntax: any colon means IPv6.
func InferFamily(addr string) AddrFamily {
	switch {
	case addr == "":
		return FamilyUnknown
	case strings.Contains(addr, ":"):
		return FamilyV6
	default:
		return FamilyV4
	}
}

type Attempt struct {
	Policy          probes.Family
	Success         bool
	HTTPStatus      int    // 0 if no response
	ResolvedAddress string // "" if the transport never connected
	Elapsed         time.Duration
	ResponseLength  int
	Err             string

	Proto   string
	Body    []byte
	Country string
}

type Comparison struct {
	URL            string
	Attempts       []Attempt
	BothSucceeded  bool
	LatencyDelta   *time.Duration // v4 - v6; positive means IPv6 was faster
	StatusMatch    *bool
	LengthMatch    *bool
	InferredFamily AddrFamily

	BodiesEqual *bool
	BodyDiff    string
	// Set if a body isn't utf-8, in which case the diff may be odd.
	BodyNotText bool
}

func find(attempts []Attempt, p probes.Family) *Attempt {
	for i := range attempts {
		if attempts[i].Policy == p {
			return &attempts[i]
		}
	}
	return nil
}

// Compare derives a Comparison from attempts, which should hold one Attempt per policy.
func Compare(url string, attempts []Attempt) Comparison {
	c := Comparison{URL: url, Attempts: attempts}

	if un := find(attempts, probes.Unspecified); un != nil {
		c.InferredFamily = InferFamily(un.ResolvedAddress)
	}

	v4, v6 := find(attempts, probes.ForcedV4), find(attempts, probes.ForcedV6)
	if v4 == nil || v6 == nil {
		return c
	}
	c.BothSucceeded = v4.Success && v6.Success
	if !c.BothSucceeded {
		return c
	}

	delta := v4.Elapsed - v6.Elapsed
	statusMatch := v4.HTTPStatus == v6.HTTPStatus
	lengthMatch := v4.ResponseLength == v6.ResponseLength
	c.LatencyDelta = &delta
	c.StatusMatch = &statusMatch
	c.LengthMatch = &lengthMatch

	c.BodyNotText = !utf8.Valid(v4.Body) || !utf8.Valid(v6.Body)
	differ := dmp.New()
	diffs := differ.DiffMain(string(v4.Body), string(v6.Body), true)
	equal := len(diffs) == 0 || (len(diffs) == 1 && diffs[0].Type == dmp.DiffEqual)
	c.BodiesEqual = &equal
	if !equal {
		c.BodyDiff = differ.DiffPrettyText(diffs)
	}

	return c
}
