package state

import (
	"fmt"
	"net"
	"strconv"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"

	"github.com/mt-inside/go-usvc"

	"github.com/mt-inside/http-log/pkg/bios"
	"github.com/mt-inside/http-log/pkg/output"

	"github.com/mt-inside/tls-probe/pkg/dualstack"
	"github.com/mt-inside/tls-probe/pkg/exchange"
	"github.com/mt-inside/tls-probe/pkg/session"
)

const BodyPreview = 500

func Banner(s output.TtyStyler, title string) {
	fmt.Println()
	fmt.Printf("== %s ==\n", s.Bright(title))
}

func PrintResolution(s output.TtyStyler, host, resolver string, family fmt.Stringer, ips []net.IP) {
	strs := make([]string, 0, len(ips))
	for _, ip := range ips {
		strs = append(strs, ip.String())
	}
	fmt.Printf("%s (%s, %s resolver) -> %s\n", s.Addr(host), s.Noun(family.String()), s.Noun(resolver), s.List(strs, output.AddrStyle))
}

func PrintDNSSEC(s output.TtyStyler, host string, err error) {
	if err != nil {
		fmt.Printf("DNSSEC for %s: %s (%v)\n", s.Addr(host), s.Fail("not validated"), err)
		return
	}
	fmt.Printf("DNSSEC for %s: %s\n", s.Addr(host), s.Ok("validated"))
}

func PrintSession(s output.TtyStyler, b bios.Bios, sess *session.Session) {
	info := sess.Info()

	fmt.Printf("Session %s (%s) %s -> %s\n", s.Noun(sess.ID.String()), s.Noun(sess.Role.String()), s.Addr(sess.LocalAddr().String()), s.Addr(sess.RemoteAddr().String()))
	fmt.Printf("\t%s with %s\n", s.Noun(info.Protocol), s.Noun(info.Cipher))
	fmt.Printf("\tSNI ServerName %s\n", s.Addr(info.ServerName))
	fmt.Printf("\tALPN proto %s\n", s.Noun(info.ALPN))

	if sess.Role == session.RoleClient {
		fmt.Printf("\tSubject: %s\n", s.Noun(info.PeerSubject))
		fmt.Printf("\tIssuer: %s\n", s.Noun(info.PeerIssuer))
		fmt.Printf("\tVerified? %s\n", s.YesNo(info.Verified))
		if info.VerifyErr != "" {
			b.PrintWarn(fmt.Sprintf("certificate verification failed: %s", info.VerifyErr))
		}
	}
}

// PrintExchange prints what was sent and received; bodies past BodyPreview are elided unless full.
func PrintExchange(s output.TtyStyler, b bios.Bios, res exchange.Result, full bool) {
	if res.Err != nil {
		b.PrintWarn(res.Err.Error())
	}
	if len(res.Request) == 0 {
		fmt.Println("Nothing exchanged")
		return
	}

	fmt.Printf("%s bytes sent, %s bytes received\n", s.Bright(strconv.Itoa(len(res.Request))), s.Bright(strconv.Itoa(len(res.Raw))))
	if res.Status != 0 {
		fmt.Printf("Status %s\n", statusStyled(s, res.Status))
	}

	printBody(s, res.Raw, full)
}

func statusStyled(s output.TtyStyler, status int) string {
	str := strconv.Itoa(status)
	switch {
	case status < 300:
		return fmt.Sprint(s.Ok(str))
	case status < 400:
		return fmt.Sprint(s.Warn(str))
	default:
		return fmt.Sprint(s.Fail(str))
	}
}

func printBody(s output.TtyStyler, body []byte, full bool) {
	bodyLen := len(body)
	printLen := usvc.MinInt(bodyLen, BodyPreview)
	if full {
		printLen = bodyLen
	}

	fmt.Printf("%v", string(body[0:printLen])) // assumes utf8
	if bodyLen > printLen {
		fmt.Printf("<%d bytes elided>", bodyLen-printLen)
	}
	if bodyLen > 0 {
		fmt.Println()
	}
	if !utf8.Valid(body) {
		fmt.Printf("Valid utf-8? %s\n", s.YesNo(false))
	}
}

func PrintComparison(s output.TtyStyler, b bios.Bios, c dualstack.Comparison, showBody bool, verbosity int) {
	Banner(s, c.URL)

	for _, a := range c.Attempts {
		fmt.Printf("%-12s ", a.Policy.String())
		if !a.Success {
			fmt.Printf("%s after %s: %s\n", s.Fail("failed"), a.Elapsed, a.Err)
			continue
		}
		fmt.Printf("%s %s from %s", statusStyled(s, a.HTTPStatus), s.Noun(a.Proto), s.Addr(a.ResolvedAddress))
		if a.Country != "" {
			fmt.Printf(" [%s]", s.Noun(a.Country))
		}
		fmt.Printf(", %s bytes in %s\n", s.Bright(strconv.Itoa(a.ResponseLength)), a.Elapsed)

		if showBody {
			printBody(s, a.Body, false)
		}
	}

	fmt.Printf("Default connection used %s\n", s.Noun(c.InferredFamily.String()))
	fmt.Printf("Both IPv4 and IPv6 work? %s\n", s.YesNo(c.BothSucceeded))
	if c.LatencyDelta != nil {
		d := *c.LatencyDelta
		switch {
		case d > 0:
			fmt.Printf("IPv6 faster by %s\n", s.Bright(d.String()))
		case d < 0:
			fmt.Printf("IPv4 faster by %s\n", s.Bright((-d).String()))
		default:
			fmt.Println("IPv4 and IPv6 equally fast")
		}
	}
	if c.StatusMatch != nil {
		fmt.Printf("Status codes match? %s\n", s.YesNo(*c.StatusMatch))
	}
	if c.LengthMatch != nil {
		fmt.Printf("Lengths match? %s\n", s.YesNo(*c.LengthMatch))
	}
	if c.BodiesEqual != nil && !*c.BodiesEqual {
		if c.BodyNotText {
			b.PrintWarn("one or more response bodies aren't valid utf-8; diff engine might do unexpected things")
		}
		b.PrintWarn("response bodies differ")
		fmt.Println(c.BodyDiff)
	}

	if verbosity >= 2 {
		spew.Dump(c)
	}
}
