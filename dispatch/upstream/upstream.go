// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package upstream provides a Dispatcher which relays requests to an
// HTTP service.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/z5labs/cgibridge/codec"
	"github.com/z5labs/cgibridge/internal/otelslog"
	"github.com/z5labs/cgibridge/internal/slogfield"
	"github.com/z5labs/cgibridge/internal/try"
	"github.com/z5labs/cgibridge/message"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type options struct {
	timeout     time.Duration
	transport   http.RoundTripper
	maxBodySize int64
	logHandler  slog.Handler
	circuit     circuitOptions
}

// Option configures a [Forwarder].
type Option func(*options)

// Timeout bounds each upstream exchange, reading the response body included.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Transport sets the underlying [http.RoundTripper].
func Transport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// MaxBodySize limits how much of an upstream response body is accepted.
func MaxBodySize(n int64) Option {
	return func(o *options) {
		o.maxBodySize = n
	}
}

// LogHandler sets where circuit state changes and request traces are logged.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// CircuitName names the circuit breaker in its state change logs.
func CircuitName(name string) Option {
	return func(o *options) {
		o.circuit.name = name
	}
}

// CircuitMaxRequests is the maximum number of requests allowed to pass through
// while the circuit is half-open.
func CircuitMaxRequests(n uint32) Option {
	return func(o *options) {
		o.circuit.maxRequests = n
	}
}

// CircuitInterval is the cyclic period of the closed state after which
// failure counts are cleared. Zero never clears them.
func CircuitInterval(d time.Duration) Option {
	return func(o *options) {
		o.circuit.interval = d
	}
}

// CircuitTimeout is the period of the open state, after which the circuit
// becomes half-open.
func CircuitTimeout(d time.Duration) Option {
	return func(o *options) {
		o.circuit.timeout = d
	}
}

// CircuitTripCount is the number of consecutive failures which opens the circuit.
func CircuitTripCount(n uint32) Option {
	return func(o *options) {
		o.circuit.tripCount = n
	}
}

// InvalidURLError is returned for a base URL or request target which
// cannot be forwarded.
type InvalidURLError struct {
	URL   string
	Cause error
}

// Error implements the [error] interface.
func (e InvalidURLError) Error() string {
	return fmt.Sprintf("invalid upstream url: %q: %s", e.URL, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InvalidURLError) Unwrap() error {
	return e.Cause
}

// Forwarder implements dispatch.Dispatcher by sending every request
// to a base URL. Requests are never retried.
type Forwarder struct {
	base        *url.URL
	client      *http.Client
	maxBodySize int64
	log         *slog.Logger
}

// New returns a Forwarder for baseURL, which must be an absolute
// http or https URL.
func New(baseURL string, opts ...Option) (*Forwarder, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, InvalidURLError{URL: baseURL, Cause: err}
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, InvalidURLError{URL: baseURL, Cause: fmt.Errorf("unsupported scheme: %q", base.Scheme)}
	}
	if base.Host == "" {
		return nil, InvalidURLError{URL: baseURL, Cause: errors.New("missing host")}
	}

	o := &options{
		timeout:     30 * time.Second,
		transport:   http.DefaultTransport,
		maxBodySize: codec.DefaultMaxBodySize,
		logHandler:  otelslog.Discard{},
		circuit: circuitOptions{
			name:        base.Host,
			maxRequests: 1,
			timeout:     60 * time.Second,
			tripCount:   5,
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	log := otelslog.New(o.logHandler)
	rt := newCircuitRoundTripper(o.transport, log, o.circuit)

	f := &Forwarder{
		base: base,
		client: &http.Client{
			Timeout:   o.timeout,
			Transport: otelhttp.NewTransport(rt),
		},
		maxBodySize: o.maxBodySize,
		log:         log,
	}
	return f, nil
}

var skipRequestHeaders = map[string]bool{
	"Connection":        true,
	"Content-Length":    true,
	"Host":              true,
	"Transfer-Encoding": true,
}

var skipResponseHeaders = map[string]bool{
	"Connection":        true,
	"Content-Length":    true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
}

// Dispatch implements the dispatch.Dispatcher interface.
func (f *Forwarder) Dispatch(ctx context.Context, req *message.Request) (_ *message.Response, err error) {
	u, err := f.resolve(req.Target)
	if err != nil {
		return nil, err
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method.String(), u.String(), bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	for _, field := range req.Header {
		name := http.CanonicalHeaderKey(field.Name)
		if name == "Host" {
			hreq.Host = field.Value
		}
		if skipRequestHeaders[name] {
			continue
		}
		hreq.Header.Add(name, field.Value)
	}
	if req.RemoteAddr != "" && req.RemoteAddr != message.Unknown {
		hreq.Header.Add("X-Forwarded-For", req.RemoteAddr)
	}

	f.log.DebugContext(
		ctx,
		"forwarding request",
		slogfield.Method(req.Method.String()),
		slogfield.String("url", u.String()),
	)

	resp, err := f.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer try.Close(&err, resp.Body)

	body, err := f.readBody(resp)
	if err != nil {
		return nil, err
	}

	f.log.DebugContext(
		ctx,
		"received upstream response",
		slogfield.String("url", u.String()),
		slogfield.StatusCode(resp.StatusCode),
	)

	return &message.Response{
		StatusCode: resp.StatusCode,
		Header:     responseHeader(resp.Header),
		Body:       message.Bytes(body),
	}, nil
}

func (f *Forwarder) readBody(resp *http.Response) ([]byte, error) {
	if resp.ContentLength >= 0 {
		return codec.ReadBody(resp.Body, resp.ContentLength, f.maxBodySize)
	}
	if f.maxBodySize <= 0 {
		return io.ReadAll(resp.Body)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > f.maxBodySize {
		return nil, codec.BodyTooLargeError{Length: int64(len(b)), Max: f.maxBodySize}
	}
	return b, nil
}

func (f *Forwarder) resolve(target string) (*url.URL, error) {
	ref, err := url.ParseRequestURI(target)
	if err != nil {
		return nil, InvalidURLError{URL: target, Cause: err}
	}

	u := *f.base
	u.Path = strings.TrimSuffix(f.base.Path, "/") + ref.Path
	u.RawPath = ""
	u.RawQuery = ref.RawQuery
	return &u, nil
}

func responseHeader(h http.Header) message.Header {
	names := make([]string, 0, len(h))
	for name := range h {
		if skipResponseHeaders[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var header message.Header
	for _, name := range names {
		for _, v := range h[name] {
			header.Add(name, v)
		}
	}
	return header
}
