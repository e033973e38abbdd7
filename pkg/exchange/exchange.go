// Package exchange does a single HTTP/1.1 request or response over an established session.
package exchange

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"

	"github.com/mt-inside/tls-probe/internal/build"
	"github.com/mt-inside/tls-probe/pkg/parser"
)

const BufferSize = 4096

const DefaultBody = `<!DOCTYPE html>
<html>
<head><title>TLS Test Server</title></head>
<body>
<h1>Hello over TLS</h1>
<p>This response was served over an encrypted connection.</p>
</body>
</html>
`

// Stream is the part of a session the exchanger needs.
type Stream interface {
	io.Reader
	io.Writer
}

type Options struct {
	Log logr.Logger
	// Body of the canned server response; DefaultBody if empty.
	Body      string
	UserAgent string
}

type Result struct {
	Request []byte
	Status  int
	Body    []byte
	Raw     []byte
	Err     error
}

// CannedResponse renders the fixed 200 response for body. Header order is part of the contract.
func CannedResponse(body string) []byte {
	var b bytes.Buffer
	b.WriteString("HTTP/1.1 200 OK\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.Bytes()
}

// ServeOne reads one request and answers it with the canned response.
// If the peer sends nothing before closing, nothing is written.
func ServeOne(s Stream, opts Options) Result {
	buf := make([]byte, BufferSize)
	n, err := s.Read(buf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			opts.Log.V(1).Info("Nothing read", "error", err.Error())
		}
		return Result{}
	}
	res := Result{Request: buf[:n]}

	if req, ok := parser.RequestLine(res.Request); ok {
		opts.Log.Info("Request", "line", req.String())
	} else {
		opts.Log.Info("Request without a recognisable request line", "bytes", n)
	}

	body := opts.Body
	if body == "" {
		body = DefaultBody
	}
	resp := CannedResponse(body)
	if _, err := s.Write(resp); err != nil {
		res.Err = &Error{Kind: KindWriteFailed, Cause: err}
		return res
	}
	res.Status = 200
	res.Body = []byte(body)
	res.Raw = resp

	return res
}

// RequestOnce sends a GET for path and reads the response to end of stream.
func RequestOnce(s Stream, host, path string, opts Options) Result {
	if path == "" {
		path = "/"
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = build.UserAgent()
	}

	var req bytes.Buffer
	fmt.Fprintf(&req, "GET %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&req, "Host: %s\r\n", host)
	fmt.Fprintf(&req, "User-Agent: %s\r\n", ua)
	req.WriteString("Connection: close\r\n")
	req.WriteString("\r\n")

	res := Result{Request: req.Bytes()}
	if _, err := s.Write(res.Request); err != nil {
		res.Err = &Error{Kind: KindWriteFailed, Cause: err}
		return res
	}

	var raw bytes.Buffer
	_, err := io.Copy(&raw, s)
	res.Raw = raw.Bytes()
	opts.Log.V(1).Info("Response read", "bytes", raw.Len())
	if err != nil {
		res.Err = &Error{Kind: KindReadFailed, Cause: err}
		return res
	}

	resp, err := parser.ParseResponse(res.Raw)
	if resp != nil {
		res.Status = resp.Status
		res.Body = resp.Body
	}
	if err != nil {
		opts.Log.Info("Response didn't parse", "error", err.Error())
	}

	return res
}
