// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package persistent serves a sequence of request frames over one
// long lived connection, such as a pair of stdio streams.
package persistent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/z5labs/cgibridge/boundary"
	"github.com/z5labs/cgibridge/codec"
	"github.com/z5labs/cgibridge/dispatch"
	"github.com/z5labs/cgibridge/internal/otelslog"
	"github.com/z5labs/cgibridge/internal/slogfield"
	"github.com/z5labs/cgibridge/message"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// ConnState describes where a connection is in its lifecycle.
type ConnState int32

const (
	StateNew ConnState = iota
	StateActive
	StateIdle
	StateClosed
)

// String implements the [fmt.Stringer] interface.
func (s ConnState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateActive:
		return "active"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

// DefaultReadBufferSize is the minimum free space reserved for each read.
const DefaultReadBufferSize = 4096

type options struct {
	name           string
	maxBodySize    int64
	maxHeaderBytes int
	protocol       string
	readBufferSize int
	logHandler     slog.Handler
}

// Option configures a [Runtime] or [Group].
type Option func(*options)

// Name identifies the connection in logs and spans.
func Name(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// MaxBodySize limits the declared length of each request body.
func MaxBodySize(n int64) Option {
	return func(o *options) {
		o.maxBodySize = n
	}
}

// MaxHeaderBytes limits the size of each request head.
func MaxHeaderBytes(n int) Option {
	return func(o *options) {
		o.maxHeaderBytes = n
	}
}

// Protocol is written in the status line of every response frame.
func Protocol(proto string) Option {
	return func(o *options) {
		o.protocol = proto
	}
}

// ReadBufferSize sets the minimum number of bytes requested per read.
func ReadBufferSize(n int) Option {
	return func(o *options) {
		o.readBufferSize = n
	}
}

// LogHandler sets where the runtime logs. Records must not go to the connection.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		name:           "stdio",
		maxBodySize:    codec.DefaultMaxBodySize,
		maxHeaderBytes: codec.DefaultMaxHeaderBytes,
		protocol:       codec.DefaultProtocol,
		readBufferSize: DefaultReadBufferSize,
		logHandler:     otelslog.Discard{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Runtime owns one connection and its FrameCodec. Frames are handled
// strictly in order: request N+1 is not decoded until the response to
// request N has been written and flushed.
type Runtime struct {
	d      dispatch.Dispatcher
	conn   io.ReadWriter
	opts   *options
	log    *slog.Logger
	tracer trace.Tracer

	state  *atomic.Int32
	frames *atomic.Uint64
}

// New returns a Runtime serving conn with d.
func New(d dispatch.Dispatcher, conn io.ReadWriter, opts ...Option) *Runtime {
	o := newOptions(opts)
	return &Runtime{
		d:      d,
		conn:   conn,
		opts:   o,
		log:    otelslog.New(o.logHandler).With(slogfield.String("conn", o.name)),
		tracer: otel.Tracer("github.com/z5labs/cgibridge/runtime/persistent"),
		state:  atomic.NewInt32(int32(StateNew)),
		frames: atomic.NewUint64(0),
	}
}

// State returns the current connection state. It is safe to call
// from any goroutine.
func (rt *Runtime) State() ConnState {
	return ConnState(rt.state.Load())
}

// Frames returns the number of request frames decoded so far.
func (rt *Runtime) Frames() uint64 {
	return rt.frames.Load()
}

// Run serves frames until the input ends, ctx is cancelled between
// frames or a failure forces the connection closed. Closing after a
// delivered error response is not an error.
func (rt *Runtime) Run(ctx context.Context) error {
	defer rt.state.Store(int32(StateClosed))

	fc := codec.NewFrameCodec(
		codec.MaxBodySize(rt.opts.maxBodySize),
		codec.MaxHeaderBytes(rt.opts.maxHeaderBytes),
		codec.Protocol(rt.opts.protocol),
	)
	b := boundary.New(fc, boundary.CloseOnError(true), boundary.LogHandler(rt.opts.logHandler))
	out := bufio.NewWriter(rt.conn)

	eof := false
	for {
		if ctx.Err() != nil {
			rt.log.InfoContext(ctx, "closing connection", slogfield.Error(ctx.Err()))
			return nil
		}

		req, ok, err := fc.Decode()
		if err != nil {
			res := b.Fail(ctx, out, err)
			return rt.finish(ctx, out, res)
		}
		if ok {
			rt.state.Store(int32(StateActive))
			res := rt.serve(ctx, b, out, req)
			if res.Outcome != boundary.Success {
				return rt.finish(ctx, out, res)
			}
			if err := flush(out); err != nil {
				return err
			}
			rt.state.Store(int32(StateIdle))
			continue
		}

		if eof {
			if fc.Buffered() > 0 {
				rt.log.WarnContext(
					ctx,
					"input ended inside a frame",
					slogfield.String("state", fc.State().String()),
					slogfield.Int("buffered_bytes", fc.Buffered()),
				)
			}
			return nil
		}

		_, err = fc.Fill(rt.conn, rt.opts.readBufferSize)
		if errors.Is(err, io.EOF) {
			eof = true
			continue
		}
		if err != nil {
			rt.log.ErrorContext(ctx, "failed to read from connection", slogfield.Error(err))
			return err
		}
	}
}

func (rt *Runtime) serve(ctx context.Context, b *boundary.Boundary, w io.Writer, req *message.Request) boundary.Result {
	n := rt.frames.Inc()

	spanCtx, span := rt.tracer.Start(ctx, "Runtime.serve", trace.WithAttributes(
		attribute.String("conn.name", rt.opts.name),
		attribute.Int64("conn.frame", int64(n)),
	))
	defer span.End()

	return b.Respond(spanCtx, w, req, rt.d)
}

// finish flushes whatever was written for the final frame and reports
// the failure which closed the connection.
func (rt *Runtime) finish(ctx context.Context, out *bufio.Writer, res boundary.Result) error {
	err := flush(out)
	if err != nil {
		return err
	}
	if res.Outcome == boundary.Terminated {
		return res.Err
	}

	rt.log.WarnContext(
		ctx,
		"closing connection after error response",
		slogfield.Uint64("frames", rt.frames.Load()),
		slogfield.Error(res.Err),
	)
	return nil
}

func flush(w *bufio.Writer) error {
	err := w.Flush()
	if err != nil {
		return codec.OutputWriteError{Cause: err}
	}
	return nil
}
