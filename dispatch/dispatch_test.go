// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package dispatch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/z5labs/cgibridge/internal/try"
	"github.com/z5labs/cgibridge/message"

	"github.com/stretchr/testify/assert"
)

func TestCall(t *testing.T) {
	t.Run("will return the response", func(t *testing.T) {
		d := DispatcherFunc(func(ctx context.Context, req *message.Request) (*message.Response, error) {
			return message.Text(http.StatusOK, "hi"), nil
		})

		res := Call(context.Background(), d, &message.Request{Method: message.MethodGet, Target: "/"})
		if !assert.False(t, res.Failed()) {
			return
		}
		if !assert.Equal(t, http.StatusOK, res.Response.StatusCode) {
			return
		}
	})

	t.Run("will wrap a returned error in UpstreamHandlerFailure", func(t *testing.T) {
		errBoom := errors.New("boom")
		d := DispatcherFunc(func(ctx context.Context, req *message.Request) (*message.Response, error) {
			return nil, errBoom
		})

		res := Call(context.Background(), d, &message.Request{})
		if !assert.True(t, res.Failed()) {
			return
		}
		if !assert.Nil(t, res.Response) {
			return
		}

		var hf UpstreamHandlerFailure
		if !assert.ErrorAs(t, res.Err, &hf) {
			return
		}
		if !assert.ErrorIs(t, res.Err, errBoom) {
			return
		}
	})

	t.Run("will recover a panic", func(t *testing.T) {
		d := DispatcherFunc(func(ctx context.Context, req *message.Request) (*message.Response, error) {
			panic("oops")
		})

		res := Call(context.Background(), d, &message.Request{})

		var hf UpstreamHandlerFailure
		if !assert.ErrorAs(t, res.Err, &hf) {
			return
		}

		var pe try.PanicError
		if !assert.ErrorAs(t, res.Err, &pe) {
			return
		}
		if !assert.Equal(t, "oops", pe.Value) {
			return
		}
	})

	t.Run("will keep the panic value when it is an error", func(t *testing.T) {
		d := DispatcherFunc(func(ctx context.Context, req *message.Request) (*message.Response, error) {
			panic(io.ErrClosedPipe)
		})

		res := Call(context.Background(), d, &message.Request{})
		if !assert.ErrorIs(t, res.Err, io.ErrClosedPipe) {
			return
		}
	})

	t.Run("will treat a nil response as a failure", func(t *testing.T) {
		d := DispatcherFunc(func(ctx context.Context, req *message.Request) (*message.Response, error) {
			return nil, nil
		})

		res := Call(context.Background(), d, &message.Request{})
		if !assert.ErrorIs(t, res.Err, ErrNilResponse) {
			return
		}
	})
}

func TestSupportedMethodsOnly(t *testing.T) {
	next := DispatcherFunc(func(ctx context.Context, req *message.Request) (*message.Response, error) {
		return message.Text(http.StatusOK, "ok"), nil
	})
	d := SupportedMethodsOnly(next)

	t.Run("will pass supported methods through", func(t *testing.T) {
		for _, m := range []message.Method{message.MethodGet, message.MethodPost} {
			resp, err := d.Dispatch(context.Background(), &message.Request{Method: m, Target: "/"})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}
		}
	})

	t.Run("will respond 405 to any other method", func(t *testing.T) {
		resp, err := d.Dispatch(context.Background(), &message.Request{Method: "DELETE", Target: "/"})
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode) {
			return
		}

		allow, ok := resp.Header.Get("Allow")
		if !assert.True(t, ok) {
			return
		}
		if !assert.Equal(t, "GET, POST", allow) {
			return
		}
	})
}

func TestNotFound(t *testing.T) {
	resp, err := NotFound().Dispatch(context.Background(), &message.Request{Method: message.MethodGet, Target: "/x"})
	if !assert.Nil(t, err) {
		return
	}
	if !assert.Equal(t, http.StatusNotFound, resp.StatusCode) {
		return
	}

	b, err := io.ReadAll(resp.Body)
	if !assert.Nil(t, err) {
		return
	}
	if !assert.Equal(t, "Not Found", string(b)) {
		return
	}
}
