// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app provides middleware for [cgibridge.App] implementations.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/z5labs/cgibridge"
	"github.com/z5labs/cgibridge/internal/try"
)

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Recover wraps app with panic recovery. A recovered panic is
// returned as a [try.PanicError].
func Recover(app cgibridge.App) cgibridge.App {
	return runFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)

		return app.Run(ctx)
	})
}

// WithSignalNotifications cancels the [context.Context] passed to
// app.Run when one of signals is received. The persistent runtime
// observes the cancellation between frames.
func WithSignalNotifications(app cgibridge.App, signals ...os.Signal) cgibridge.App {
	return runFunc(func(ctx context.Context) error {
		sigCtx, cancel := signal.NotifyContext(ctx, signals...)
		defer cancel()

		return app.Run(sigCtx)
	})
}

// Hook is an action run relative to app.Run, e.g. flushing spans.
type Hook interface {
	Run(context.Context) error
}

// HookFunc is a func variant of the [Hook] interface.
type HookFunc func(context.Context) error

// Run implements the [Hook] interface.
func (f HookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// PostRun runs every hook after app.Run returns, even if it returned
// an error or panicked. Each hook runs irregardless of the others
// failing and all errors are joined with the one from app.Run.
func PostRun(app cgibridge.App, hooks ...Hook) cgibridge.App {
	return runFunc(func(ctx context.Context) (err error) {
		defer runHooks(context.WithoutCancel(ctx), hooks, &err)

		return app.Run(ctx)
	})
}

func runHooks(ctx context.Context, hooks []Hook, err *error) {
	errs := []error{*err}
	for _, hook := range hooks {
		errs = append(errs, hook.Run(ctx))
	}

	// errors.Join discards nils
	*err = errors.Join(errs...)
}
