// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package oneshot serves exactly one CGI request per process.
package oneshot

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/z5labs/cgibridge/boundary"
	"github.com/z5labs/cgibridge/codec"
	"github.com/z5labs/cgibridge/dispatch"
	"github.com/z5labs/cgibridge/env"
	"github.com/z5labs/cgibridge/internal/otelslog"
	"github.com/z5labs/cgibridge/internal/slogfield"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type options struct {
	environ     *env.Snapshot
	stdin       io.Reader
	stdout      io.Writer
	maxBodySize int64
	logHandler  slog.Handler
}

// Option configures a [Runtime].
type Option func(*options)

// Environment overrides the snapshot otherwise captured from the
// process environment when Run is called.
func Environment(snap env.Snapshot) Option {
	return func(o *options) {
		o.environ = &snap
	}
}

// Stdin sets the stream the request body is read from.
func Stdin(r io.Reader) Option {
	return func(o *options) {
		o.stdin = r
	}
}

// Stdout sets the stream the response is written to.
func Stdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// MaxBodySize limits the declared request body length.
func MaxBodySize(n int64) Option {
	return func(o *options) {
		o.maxBodySize = n
	}
}

// LogHandler sets where the runtime logs. Records must not go to stdout.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// Runtime decodes a request from the environment and standard input,
// dispatches it and writes a CGI response to standard output.
type Runtime struct {
	d        dispatch.Dispatcher
	environ  *env.Snapshot
	stdin    io.Reader
	stdout   io.Writer
	dec      codec.Decoder
	boundary *boundary.Boundary
	log      *slog.Logger
}

// New returns a Runtime which dispatches to d.
func New(d dispatch.Dispatcher, opts ...Option) *Runtime {
	o := &options{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		logHandler: otelslog.Discard{},
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Runtime{
		d:        d,
		environ:  o.environ,
		stdin:    o.stdin,
		stdout:   o.stdout,
		dec:      codec.Decoder{MaxBodySize: o.maxBodySize},
		boundary: boundary.New(codec.CGIEncoder{}, boundary.LogHandler(o.logHandler)),
		log:      otelslog.New(o.logHandler),
	}
}

// Run handles the single request. A delivered error response is not
// an error; only a failure which kept a complete response from being
// written is returned.
func (rt *Runtime) Run(ctx context.Context) error {
	snap := env.FromOS()
	if rt.environ != nil {
		snap = *rt.environ
	}

	spanCtx, span := otel.Tracer("github.com/z5labs/cgibridge/runtime/oneshot").Start(ctx, "Runtime.Run")
	defer span.End()

	out := bufio.NewWriter(rt.stdout)

	var res boundary.Result
	req, err := rt.dec.Decode(snap, rt.stdin)
	if err != nil {
		res = rt.boundary.Fail(spanCtx, out, err)
	} else {
		res = rt.boundary.Respond(spanCtx, out, req, rt.d)
	}
	span.SetAttributes(attribute.String("cgi.outcome", res.Outcome.String()))

	err = out.Flush()
	if err != nil {
		rt.log.ErrorContext(spanCtx, "failed to flush response", slogfield.Error(err))
		return codec.OutputWriteError{Cause: err}
	}
	if res.Outcome == boundary.Terminated {
		return res.Err
	}
	return nil
}
