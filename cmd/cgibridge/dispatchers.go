// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/z5labs/cgibridge/dispatch"
	"github.com/z5labs/cgibridge/dispatch/upstream"
	"github.com/z5labs/cgibridge/env"
	"github.com/z5labs/cgibridge/message"
	"github.com/z5labs/cgibridge/store"
)

const (
	dispatcherEnv      = "env"
	dispatcherKV       = "kv"
	dispatcherUpstream = "upstream"
	dispatcherNotFound = "not_found"
)

// UnknownDispatcherError is returned for a dispatcher name which is not built in.
type UnknownDispatcherError struct {
	Name string
}

// Error implements the [error] interface.
func (e UnknownDispatcherError) Error() string {
	return fmt.Sprintf("unknown dispatcher: %q", e.Name)
}

// dispatchers builds each built-in dispatcher at most once so every
// route naming "kv" shares the same store.
type dispatchers struct {
	cfg        Config
	environ    env.Snapshot
	logHandler slog.Handler

	built map[string]dispatch.Dispatcher
}

func (ds *dispatchers) get(name string) (dispatch.Dispatcher, error) {
	if d, ok := ds.built[name]; ok {
		return d, nil
	}

	var d dispatch.Dispatcher
	switch name {
	case dispatcherEnv:
		d = envPage(ds.environ)
	case dispatcherKV:
		d = store.Handler(store.New())
	case dispatcherNotFound:
		d = dispatch.NotFound()
	case dispatcherUpstream:
		up := ds.cfg.Upstream
		f, err := upstream.New(
			up.URL,
			upstream.Timeout(up.Timeout),
			upstream.MaxBodySize(up.MaxBodySize),
			upstream.LogHandler(ds.logHandler),
			upstream.CircuitMaxRequests(up.Circuit.MaxRequests),
			upstream.CircuitInterval(up.Circuit.Interval),
			upstream.CircuitTimeout(up.Circuit.Timeout),
			upstream.CircuitTripCount(up.Circuit.TripCount),
		)
		if err != nil {
			return nil, err
		}
		d = f
	default:
		return nil, UnknownDispatcherError{Name: name}
	}

	if ds.built == nil {
		ds.built = make(map[string]dispatch.Dispatcher)
	}
	ds.built[name] = d
	return d, nil
}

// buildDispatcher returns the router described by cfg. Requests with a
// method other than GET or POST are answered with 405 before routing.
func buildDispatcher(cfg Config, environ env.Snapshot, logHandler slog.Handler) (dispatch.Dispatcher, error) {
	ds := &dispatchers{
		cfg:        cfg,
		environ:    environ,
		logHandler: logHandler,
	}

	fallback, err := ds.get(cfg.Dispatcher)
	if err != nil {
		return nil, err
	}

	r, err := dispatch.NewRouter(fallback)
	if err != nil {
		return nil, err
	}
	for _, route := range cfg.Routes {
		d, err := ds.get(route.Dispatcher)
		if err != nil {
			return nil, err
		}

		method := message.ParseMethod(strings.ToUpper(route.Method))
		if route.Method == "" {
			method = dispatch.AnyMethod
		}
		err = r.Handle(method, route.Pattern, d)
		if err != nil {
			return nil, err
		}
	}
	return dispatch.SupportedMethodsOnly(r), nil
}

// envPage renders a greeting, the process environment and the request
// body as HTML.
func envPage(environ env.Snapshot) dispatch.Dispatcher {
	return dispatch.DispatcherFunc(func(ctx context.Context, req *message.Request) (*message.Response, error) {
		var sb strings.Builder
		sb.WriteString("<p>Hello, world!</p>\n<ul>\n")
		environ.Each(func(name, value string) {
			fmt.Fprintf(&sb, "<li>%s=%s</li>\n", html.EscapeString(name), html.EscapeString(value))
		})
		sb.WriteString("</ul>\n")
		fmt.Fprintf(&sb, "<p>Body: %s</p>\n", html.EscapeString(string(req.Body)))

		return message.HTML(http.StatusOK, sb.String()), nil
	})
}
