// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package message

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	testCases := []struct {
		token     string
		supported bool
	}{
		{token: "GET", supported: true},
		{token: "POST", supported: true},
		{token: "DELETE", supported: false},
		{token: "get", supported: false},
		{token: "", supported: false},
	}

	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			m := ParseMethod(tc.token)
			require.Equal(t, tc.token, m.String())
			require.Equal(t, tc.supported, m.Supported())
		})
	}
}

func TestHeader(t *testing.T) {
	t.Run("will preserve order and duplicates", func(t *testing.T) {
		var h Header
		h.Add("Accept", "text/html")
		h.Add("X-Trace", "a")
		h.Add("accept", "application/json")

		if !assert.Equal(t, []string{"text/html", "application/json"}, h.Values("ACCEPT")) {
			return
		}
		if !assert.Equal(t, "X-Trace", h[1].Name) {
			return
		}
	})

	t.Run("will look up names case-insensitively", func(t *testing.T) {
		h := Header{{Name: "Content-Type", Value: "text/plain"}}

		v, ok := h.Get("content-type")
		if !assert.True(t, ok) {
			return
		}
		if !assert.Equal(t, "text/plain", v) {
			return
		}

		_, ok = h.Get("Content-Length")
		if !assert.False(t, ok) {
			return
		}
	})

	t.Run("will replace every matching field on Set", func(t *testing.T) {
		h := Header{
			{Name: "A", Value: "1"},
			{Name: "b", Value: "2"},
			{Name: "B", Value: "3"},
		}
		h.Set("B", "4")

		if !assert.Equal(t, Header{{Name: "A", Value: "1"}, {Name: "B", Value: "4"}}, h) {
			return
		}
	})

	t.Run("will not share memory with a clone", func(t *testing.T) {
		h := Header{{Name: "A", Value: "1"}}
		c := h.Clone()
		c[0].Value = "2"

		if !assert.Equal(t, "1", h[0].Value) {
			return
		}
	})
}

func TestRequest_Path(t *testing.T) {
	req := &Request{Target: "/items/1?verbose=true"}
	require.Equal(t, "/items/1", req.Path())

	req = &Request{Target: "/hello"}
	require.Equal(t, "/hello", req.Path())
}

func TestBody(t *testing.T) {
	t.Run("will report a known length", func(t *testing.T) {
		t.Run("if the body is materialized", func(t *testing.T) {
			b := String("hello")

			n, ok := b.Len()
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, int64(5), n) {
				return
			}

			got, err := io.ReadAll(b)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "hello", string(got)) {
				return
			}
		})

		t.Run("if the stream declares a length", func(t *testing.T) {
			n, ok := Stream(strings.NewReader("abc"), 3).Len()
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, int64(3), n) {
				return
			}
		})

		t.Run("if the response has no body", func(t *testing.T) {
			resp := &Response{StatusCode: 204}

			n, ok := resp.BodyLen()
			if !assert.True(t, ok) {
				return
			}
			if !assert.Zero(t, n) {
				return
			}
		})
	})

	t.Run("will report an unknown length", func(t *testing.T) {
		t.Run("if the stream length is negative", func(t *testing.T) {
			_, ok := Stream(strings.NewReader("abc"), -1).Len()
			if !assert.False(t, ok) {
				return
			}
		})
	})
}
