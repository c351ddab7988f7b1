// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import (
	"io"
	"net"
	"net/textproto"
	"strings"

	"github.com/z5labs/cgibridge/env"
	"github.com/z5labs/cgibridge/message"
)

// CGI request variables.
const (
	VarRequestMethod  = "REQUEST_METHOD"
	VarRequestURI     = "REQUEST_URI"
	VarContentLength  = "CONTENT_LENGTH"
	VarRemoteAddr     = "REMOTE_ADDR"
	VarRemotePort     = "REMOTE_PORT"
	VarServerProtocol = "SERVER_PROTOCOL"

	// HeaderPrefix marks variables which carry request headers.
	HeaderPrefix = "HTTP_"
)

// Decoder builds a [message.Request] from a CGI environment and the
// request body stream.
type Decoder struct {
	// MaxBodySize defaults to DefaultMaxBodySize when zero. A negative
	// value disables the guard.
	MaxBodySize int64
}

// Decode validates the structural variables in snap before reading
// the body from r, so a malformed environment never consumes input.
func (d Decoder) Decode(snap env.Snapshot, r io.Reader) (*message.Request, error) {
	method, ok := snap.Lookup(VarRequestMethod)
	if !ok || method == "" {
		return nil, MissingFieldError{Field: VarRequestMethod}
	}
	target, ok := snap.Lookup(VarRequestURI)
	if !ok {
		return nil, MissingFieldError{Field: VarRequestURI}
	}
	n, err := ContentLength(snap)
	if err != nil {
		return nil, err
	}

	body, err := ReadBody(r, n, d.maxBodySize())
	if err != nil {
		return nil, err
	}

	req := &message.Request{
		Method:     message.ParseMethod(method),
		Target:     target,
		Header:     HeaderFromEnv(snap),
		Body:       body,
		RemoteAddr: remoteAddr(snap),
		Protocol:   message.Unknown,
	}
	if proto, ok := snap.Lookup(VarServerProtocol); ok && proto != "" {
		req.Protocol = proto
	}
	return req, nil
}

func (d Decoder) maxBodySize() int64 {
	if d.MaxBodySize == 0 {
		return DefaultMaxBodySize
	}
	return d.MaxBodySize
}

// ContentLength returns the declared body length. A missing or empty
// CONTENT_LENGTH means there is no body.
func ContentLength(snap env.Snapshot) (int64, error) {
	v, ok := snap.Lookup(VarContentLength)
	if !ok || v == "" {
		return 0, nil
	}
	return parseContentLength(v)
}

// HeaderFromEnv translates every HTTP_ variable into a header field,
// in enumeration order. HTTP_USER_AGENT becomes User-Agent.
func HeaderFromEnv(snap env.Snapshot) message.Header {
	var h message.Header
	snap.Each(func(name, value string) {
		suffix, ok := strings.CutPrefix(name, HeaderPrefix)
		if !ok || suffix == "" {
			return
		}
		h.Add(HeaderName(suffix), value)
	})
	return h
}

// HeaderName converts the variable suffix of a header into its
// canonical header name.
func HeaderName(suffix string) string {
	return textproto.CanonicalMIMEHeaderKey(strings.ReplaceAll(suffix, "_", "-"))
}

// VarName converts a header name into the variable which carries it.
func VarName(header string) string {
	return HeaderPrefix + strings.ToUpper(strings.ReplaceAll(header, "-", "_"))
}

// HeaderEnviron is the inverse of [HeaderFromEnv]. It returns the
// fields of h as "HTTP_NAME=value" pairs in order.
func HeaderEnviron(h message.Header) []string {
	environ := make([]string, 0, len(h))
	for _, f := range h {
		environ = append(environ, VarName(f.Name)+"="+f.Value)
	}
	return environ
}

func remoteAddr(snap env.Snapshot) string {
	addr := snap.Get(VarRemoteAddr)
	if addr == "" {
		return message.Unknown
	}
	port := snap.Get(VarRemotePort)
	if port == "" {
		return addr
	}
	return net.JoinHostPort(addr, port)
}
