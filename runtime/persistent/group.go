// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package persistent

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"

	"github.com/z5labs/cgibridge/dispatch"
	"github.com/z5labs/cgibridge/internal/try"

	"golang.org/x/sync/errgroup"
)

// ConnError reports the failure of a single connection in a [Group].
type ConnError struct {
	Name  string
	Cause error
}

// Error implements the [error] interface.
func (e ConnError) Error() string {
	return "connection " + e.Name + ": " + e.Cause.Error()
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConnError) Unwrap() error {
	return e.Cause
}

// Group serves several independent connections concurrently. Each
// connection gets its own Runtime and FrameCodec; nothing is shared
// between them except what d shares.
type Group struct {
	d     dispatch.Dispatcher
	limit int
	opts  []Option
}

// NewGroup returns a Group serving at most limit connections at once.
// A limit below one means no limit.
func NewGroup(d dispatch.Dispatcher, limit int, opts ...Option) *Group {
	return &Group{
		d:     d,
		limit: limit,
		opts:  opts,
	}
}

// Serve runs every connection to completion. A connection implementing
// [io.Closer] is closed once its Runtime returns. The failures of
// individual connections do not stop the others and are joined.
func (g *Group) Serve(ctx context.Context, conns ...io.ReadWriter) error {
	var eg errgroup.Group
	if g.limit > 0 {
		eg.SetLimit(g.limit)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	for i, conn := range conns {
		name := strconv.Itoa(i)
		conn := conn
		eg.Go(func() error {
			err := g.serve(ctx, name, conn)
			if err == nil {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			errs = append(errs, ConnError{Name: name, Cause: err})
			return nil
		})
	}
	eg.Wait()

	return errors.Join(errs...)
}

func (g *Group) serve(ctx context.Context, name string, conn io.ReadWriter) (err error) {
	defer try.Close(&err, conn)
	defer try.Recover(&err)

	opts := append(append([]Option{}, g.opts...), Name(name))
	rt := New(g.d, conn, opts...)
	return rt.Run(ctx)
}
