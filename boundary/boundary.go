// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package boundary wraps the processing of a single request so that
// every failure ends in either an error response or a terminated stream.
package boundary

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/z5labs/cgibridge/codec"
	"github.com/z5labs/cgibridge/dispatch"
	"github.com/z5labs/cgibridge/internal/otelslog"
	"github.com/z5labs/cgibridge/internal/slogfield"
	"github.com/z5labs/cgibridge/internal/try"
	"github.com/z5labs/cgibridge/message"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Outcome classifies how a single request ended.
type Outcome int

const (
	// Success means the Dispatcher's response was fully written.
	Success Outcome = iota

	// ErrorResponse means a synthesized 500 response was fully written.
	ErrorResponse

	// Terminated means output had already started when a failure
	// occurred, or no response could be written at all.
	Terminated
)

// String implements the [fmt.Stringer] interface.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ErrorResponse:
		return "error_response"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// TerminatedError reports a failure which could not be turned into a
// response. Written is the number of bytes already sent when it occurred.
type TerminatedError struct {
	Written int64
	Cause   error
}

// Error implements the [error] interface.
func (e TerminatedError) Error() string {
	return fmt.Sprintf("terminated after writing %d bytes: %s", e.Written, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e TerminatedError) Unwrap() error {
	return e.Cause
}

// Result is the outcome of a single request. Err is nil only for [Success].
type Result struct {
	Outcome    Outcome
	StatusCode int
	Err        error
}

type options struct {
	logHandler   slog.Handler
	closeOnError bool
}

// Option configures a [Boundary].
type Option func(*options)

// LogHandler sets where failures and request timings are logged.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// CloseOnError marks synthesized error responses with "Connection: close".
func CloseOnError(enabled bool) Option {
	return func(o *options) {
		o.closeOnError = enabled
	}
}

// Boundary delivers responses through an Encoder.
type Boundary struct {
	enc          codec.Encoder
	closeOnError bool
	log          *slog.Logger
	tracer       trace.Tracer
}

// New returns a Boundary which writes every response with enc.
func New(enc codec.Encoder, opts ...Option) *Boundary {
	o := &options{
		logHandler: otelslog.Discard{},
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Boundary{
		enc:          enc,
		closeOnError: o.closeOnError,
		log:          otelslog.New(o.logHandler),
		tracer:       otel.Tracer("github.com/z5labs/cgibridge/boundary"),
	}
}

// Respond dispatches req to d and writes the response to w.
func (b *Boundary) Respond(ctx context.Context, w io.Writer, req *message.Request, d dispatch.Dispatcher) Result {
	spanCtx, span := b.tracer.Start(ctx, "Boundary.Respond", trace.WithAttributes(
		attribute.String("request.method", req.Method.String()),
		attribute.String("request.target", req.Target),
	))
	defer span.End()

	start := time.Now()
	res := dispatch.Call(spanCtx, d, req)

	var result Result
	if res.Failed() {
		b.log.ErrorContext(spanCtx, "dispatcher failed", slogfield.Error(res.Err))
		result = b.fail(spanCtx, w, res.Err)
	} else {
		result = b.deliver(spanCtx, w, res.Response)
	}

	record(span, result)
	b.log.InfoContext(
		spanCtx,
		"handled request",
		slogfield.Method(req.Method.String()),
		slogfield.Target(req.Target),
		slogfield.StatusCode(result.StatusCode),
		slogfield.Outcome(result.Outcome.String()),
		slogfield.Duration("elapsed", time.Since(start)),
	)
	return result
}

// Fail writes an error response for cause, typically a decode failure
// which happened before any Dispatcher was involved.
func (b *Boundary) Fail(ctx context.Context, w io.Writer, cause error) Result {
	spanCtx, span := b.tracer.Start(ctx, "Boundary.Fail")
	defer span.End()

	b.log.ErrorContext(spanCtx, "failed to decode request", slogfield.Error(cause))

	result := b.fail(spanCtx, w, cause)
	record(span, result)
	return result
}

func (b *Boundary) deliver(ctx context.Context, w io.Writer, resp *message.Response) Result {
	cw := &countingWriter{w: w}
	err := b.encode(cw, resp)
	if err == nil {
		return Result{Outcome: Success, StatusCode: resp.StatusCode}
	}
	if cw.n > 0 {
		return b.terminate(ctx, resp.StatusCode, cw.n, err)
	}

	b.log.ErrorContext(ctx, "failed to encode response", slogfield.Error(err))
	return b.fail(ctx, w, err)
}

func (b *Boundary) fail(ctx context.Context, w io.Writer, cause error) Result {
	resp := errorResponse(cause)
	if b.closeOnError {
		resp.Header.Add("Connection", "close")
	}

	cw := &countingWriter{w: w}
	err := b.encode(cw, resp)
	if err != nil {
		return b.terminate(ctx, http.StatusInternalServerError, cw.n, errors.Join(cause, err))
	}
	return Result{
		Outcome:    ErrorResponse,
		StatusCode: http.StatusInternalServerError,
		Err:        cause,
	}
}

func (b *Boundary) terminate(ctx context.Context, code int, written int64, cause error) Result {
	b.log.ErrorContext(
		ctx,
		"terminating response stream",
		slogfield.StatusCode(code),
		slogfield.Int64("bytes_written", written),
		slogfield.Error(cause),
	)
	return Result{
		Outcome:    Terminated,
		StatusCode: code,
		Err:        TerminatedError{Written: written, Cause: cause},
	}
}

func (b *Boundary) encode(w io.Writer, resp *message.Response) (err error) {
	defer try.Recover(&err)

	return b.enc.Encode(w, resp)
}

func errorResponse(cause error) *message.Response {
	body := "<h1>Internal Server Error</h1><p>" + html.EscapeString(cause.Error()) + "</p>"
	return message.HTML(http.StatusInternalServerError, body)
}

func record(span trace.Span, result Result) {
	span.SetAttributes(
		attribute.Int("response.status_code", result.StatusCode),
		attribute.String("response.outcome", result.Outcome.String()),
	)
	if result.Err == nil {
		return
	}
	span.RecordError(result.Err)
	span.SetStatus(codes.Error, result.Err.Error())
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
