// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package dispatch defines how application handlers are plugged in
// and invoked.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/z5labs/cgibridge/internal/try"
	"github.com/z5labs/cgibridge/message"
)

// Dispatcher maps a decoded request to a response.
type Dispatcher interface {
	Dispatch(context.Context, *message.Request) (*message.Response, error)
}

// DispatcherFunc is a func variant of the [Dispatcher] interface.
type DispatcherFunc func(context.Context, *message.Request) (*message.Response, error)

// Dispatch implements the [Dispatcher] interface.
func (f DispatcherFunc) Dispatch(ctx context.Context, req *message.Request) (*message.Response, error) {
	return f(ctx, req)
}

// UpstreamHandlerFailure wraps anything which kept a Dispatcher from
// producing a response: a returned error, a panic or a nil response.
type UpstreamHandlerFailure struct {
	Cause error
}

// Error implements the [error] interface.
func (e UpstreamHandlerFailure) Error() string {
	return fmt.Sprintf("handler failed: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e UpstreamHandlerFailure) Unwrap() error {
	return e.Cause
}

// ErrNilResponse is the cause of an [UpstreamHandlerFailure] when a
// Dispatcher returns neither a response nor an error.
var ErrNilResponse = errors.New("dispatcher returned a nil response")

// Result is the tagged outcome of a single [Call].
// Exactly one of Response and Err is set.
type Result struct {
	Response *message.Response
	Err      error
}

// Failed reports whether the Dispatcher did not produce a response.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Call invokes d and captures every abnormal termination, panics
// included, in the returned Result.
func Call(ctx context.Context, d Dispatcher, req *message.Request) Result {
	resp, err := invoke(ctx, d, req)
	if err != nil {
		return Result{Err: UpstreamHandlerFailure{Cause: err}}
	}
	if resp == nil {
		return Result{Err: UpstreamHandlerFailure{Cause: ErrNilResponse}}
	}
	return Result{Response: resp}
}

func invoke(ctx context.Context, d Dispatcher, req *message.Request) (_ *message.Response, err error) {
	defer try.Recover(&err)

	return d.Dispatch(ctx, req)
}

// UnsupportedMethodError describes a request whose method is outside
// the supported set.
type UnsupportedMethodError struct {
	Method message.Method
}

// Error implements the [error] interface.
func (e UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported method: %s", e.Method)
}

// NotFound responds with 404 to every request.
func NotFound() Dispatcher {
	return DispatcherFunc(func(ctx context.Context, req *message.Request) (*message.Response, error) {
		return message.Text(http.StatusNotFound, "Not Found"), nil
	})
}

// SupportedMethodsOnly answers requests with an unsupported method
// with 405 instead of passing them on to d.
func SupportedMethodsOnly(d Dispatcher) Dispatcher {
	return DispatcherFunc(func(ctx context.Context, req *message.Request) (*message.Response, error) {
		if req.Method.Supported() {
			return d.Dispatch(ctx, req)
		}

		resp := message.Text(http.StatusMethodNotAllowed, UnsupportedMethodError{Method: req.Method}.Error())
		resp.Header.Add("Allow", "GET, POST")
		return resp, nil
	})
}
