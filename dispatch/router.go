// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package dispatch

import (
	"context"
	"fmt"
	"path"

	"github.com/z5labs/cgibridge/message"
)

// AnyMethod matches every request method in a [Route].
const AnyMethod message.Method = "*"

// Route maps a method and path pattern to a Dispatcher. Pattern is
// either an exact path or a [path.Match] glob, e.g. "/items/*".
type Route struct {
	Method     message.Method
	Pattern    string
	Dispatcher Dispatcher
}

// InvalidRouteError is returned for a route which can never match.
type InvalidRouteError struct {
	Pattern string
	Cause   error
}

// Error implements the [error] interface.
func (e InvalidRouteError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("invalid route pattern: %q", e.Pattern)
	}
	return fmt.Sprintf("invalid route pattern: %q: %s", e.Pattern, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InvalidRouteError) Unwrap() error {
	return e.Cause
}

// Router evaluates its routes in registration order and dispatches to
// the first match. Requests matching no route go to the default.
type Router struct {
	routes   []Route
	fallback Dispatcher
}

// NewRouter returns a Router whose default entry is fallback.
func NewRouter(fallback Dispatcher, routes ...Route) (*Router, error) {
	if fallback == nil {
		return nil, InvalidRouteError{Pattern: "default route must not be nil"}
	}

	r := &Router{fallback: fallback}
	for _, route := range routes {
		err := r.Handle(route.Method, route.Pattern, route.Dispatcher)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Handle appends a route.
func (r *Router) Handle(method message.Method, pattern string, d Dispatcher) error {
	if d == nil || pattern == "" {
		return InvalidRouteError{Pattern: pattern}
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return InvalidRouteError{Pattern: pattern, Cause: err}
	}

	r.routes = append(r.routes, Route{
		Method:     method,
		Pattern:    pattern,
		Dispatcher: d,
	})
	return nil
}

// Dispatch implements the [Dispatcher] interface.
func (r *Router) Dispatch(ctx context.Context, req *message.Request) (*message.Response, error) {
	p := req.Path()
	for _, route := range r.routes {
		if route.Method != AnyMethod && route.Method != req.Method {
			continue
		}
		if !matchPath(route.Pattern, p) {
			continue
		}
		return route.Dispatcher.Dispatch(ctx, req)
	}
	return r.fallback.Dispatch(ctx, req)
}

func matchPath(pattern, p string) bool {
	if pattern == p {
		return true
	}
	ok, err := path.Match(pattern, p)
	return err == nil && ok
}
