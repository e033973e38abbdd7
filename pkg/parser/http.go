// Package parser picks apart raw HTTP/1.1 bytes as they come off a TLS session.
package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Request struct {
	Method string
	Target string
	Proto  string
}

func (r Request) String() string {
	return r.Method + " " + r.Target + " " + r.Proto
}

// RequestLine parses the first line of raw. ok is false if there isn't a well-formed request line;
// nothing else about the request is looked at.
func RequestLine(raw []byte) (req Request, ok bool) {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	fields := strings.Fields(strings.TrimRight(string(line), "\r"))
	if len(fields) != 3 {
		return Request{}, false
	}
	if !strings.HasPrefix(fields[2], "HTTP/") {
		return Request{}, false
	}
	return Request{Method: fields[0], Target: fields[1], Proto: fields[2]}, true
}

type Response struct {
	Proto  string
	Status int
	Reason string
	Header http.Header
	Body   []byte
	// Close is set by "Connection: close"; net/http strips that header from Header.
	Close bool
}

// ParseResponse splits a complete (read-to-EOF) HTTP/1.1 response into its parts.
// A body cut short by the peer is returned as far as it got, along with an error.
func ParseResponse(raw []byte) (*Response, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty response")
	}

	hr, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		return nil, fmt.Errorf("can't parse response head: %w", err)
	}
	defer hr.Body.Close()

	resp := &Response{
		Proto:  hr.Proto,
		Status: hr.StatusCode,
		Reason: strings.TrimSpace(strings.TrimPrefix(hr.Status, fmt.Sprintf("%d", hr.StatusCode))),
		Header: hr.Header,
		Close:  hr.Close,
	}

	body, err := io.ReadAll(hr.Body)
	resp.Body = body
	if err != nil {
		return resp, fmt.Errorf("response body truncated: %w", err)
	}
	return resp, nil
}
