// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/z5labs/cgibridge/internal/try"

	"github.com/stretchr/testify/assert"
)

func TestRecover(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the underlying App returns an error", func(t *testing.T) {
			appErr := errors.New("failed to run")
			app := Recover(runFunc(func(ctx context.Context) error {
				return appErr
			}))

			err := app.Run(context.Background())
			if !assert.Equal(t, appErr, err) {
				return
			}
		})

		t.Run("if the underlying App panics with an error value", func(t *testing.T) {
			appErr := errors.New("failed to run")
			app := Recover(runFunc(func(ctx context.Context) error {
				panic(appErr)
			}))

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, appErr) {
				return
			}
		})

		t.Run("if the underlying App panics with a non-error value", func(t *testing.T) {
			app := Recover(runFunc(func(ctx context.Context) error {
				panic("hello world")
			}))

			err := app.Run(context.Background())

			var perr try.PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "hello world", perr.Value) {
				return
			}
		})
	})
}

func TestWithSignalNotifications(t *testing.T) {
	t.Run("will cancel the context", func(t *testing.T) {
		t.Run("if the signal is received", func(t *testing.T) {
			app := WithSignalNotifications(runFunc(func(ctx context.Context) error {
				p, err := os.FindProcess(os.Getpid())
				if err != nil {
					return err
				}
				err = p.Signal(syscall.SIGUSR1)
				if err != nil {
					return err
				}

				<-ctx.Done()
				return ctx.Err()
			}), syscall.SIGUSR1)

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, context.Canceled) {
				return
			}
		})
	})
}

func TestPostRun(t *testing.T) {
	t.Run("will run every hook", func(t *testing.T) {
		t.Run("if the underlying App succeeds", func(t *testing.T) {
			var calls []string
			app := PostRun(
				runFunc(func(ctx context.Context) error {
					calls = append(calls, "app")
					return nil
				}),
				HookFunc(func(ctx context.Context) error {
					calls = append(calls, "first")
					return nil
				}),
				HookFunc(func(ctx context.Context) error {
					calls = append(calls, "second")
					return nil
				}),
			)

			err := app.Run(context.Background())
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, []string{"app", "first", "second"}, calls) {
				return
			}
		})

		t.Run("if the underlying App panics", func(t *testing.T) {
			called := false
			app := Recover(PostRun(
				runFunc(func(ctx context.Context) error {
					panic("boom")
				}),
				HookFunc(func(ctx context.Context) error {
					called = true
					return nil
				}),
			))

			err := app.Run(context.Background())
			if !assert.Error(t, err) {
				return
			}
			if !assert.True(t, called) {
				return
			}
		})

		t.Run("if a previous hook fails", func(t *testing.T) {
			appErr := errors.New("app failed")
			hookErr := errors.New("hook failed")
			called := false
			app := PostRun(
				runFunc(func(ctx context.Context) error {
					return appErr
				}),
				HookFunc(func(ctx context.Context) error {
					return hookErr
				}),
				HookFunc(func(ctx context.Context) error {
					called = true
					return nil
				}),
			)

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, appErr) {
				return
			}
			if !assert.ErrorIs(t, err, hookErr) {
				return
			}
			if !assert.True(t, called) {
				return
			}
		})
	})

	t.Run("will pass an uncancelled context to hooks", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var hookCtxErr error
		app := PostRun(
			runFunc(func(ctx context.Context) error { return nil }),
			HookFunc(func(ctx context.Context) error {
				hookCtxErr = ctx.Err()
				return nil
			}),
		)

		err := app.Run(ctx)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Nil(t, hookCtxErr) {
			return
		}
	})
}
