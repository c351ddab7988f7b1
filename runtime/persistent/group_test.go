// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package persistent

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/z5labs/cgibridge/store"

	"github.com/stretchr/testify/assert"
)

func TestGroup_Serve(t *testing.T) {
	t.Run("will serve every connection independently", func(t *testing.T) {
		conns := []*conn{
			newConn(strings.NewReader(frameA + frameB)),
			newConn(iotest.HalfReader(strings.NewReader(frameB + frameA))),
			newConn(strings.NewReader(frameA)),
		}
		rws := make([]io.ReadWriter, len(conns))
		for i, c := range conns {
			rws[i] = c
		}

		g := NewGroup(echo(), 2)
		err := g.Serve(context.Background(), rws...)
		if !assert.Nil(t, err) {
			return
		}

		expected := []string{respA + respB, respB + respA, respA}
		for i, c := range conns {
			if !assert.Equal(t, expected[i], c.Buffer.String()) {
				return
			}
			if !assert.True(t, c.closed) {
				return
			}
		}
	})

	t.Run("will share only the injected store", func(t *testing.T) {
		s := store.New()
		put := "POST /k HTTP/1.1\r\nContent-Length: 1\r\n\r\nv"
		get := "GET /k HTTP/1.1\r\n\r\n"

		writer := newConn(strings.NewReader(put))
		g := NewGroup(store.Handler(s), 1)
		err := g.Serve(context.Background(), writer)
		if !assert.Nil(t, err) {
			return
		}

		reader := newConn(strings.NewReader(get))
		err = g.Serve(context.Background(), reader)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.True(t, strings.HasSuffix(reader.Buffer.String(), "\r\n\r\nv\r\n")) {
			return
		}
	})

	t.Run("will join the errors of failed connections", func(t *testing.T) {
		errRead := errors.New("read failed")
		ok := newConn(strings.NewReader(frameA))
		bad := newConn(iotest.ErrReader(errRead))

		g := NewGroup(echo(), 0)
		err := g.Serve(context.Background(), ok, bad)

		var ce ConnError
		if !assert.ErrorAs(t, err, &ce) {
			return
		}
		if !assert.Equal(t, "1", ce.Name) {
			return
		}
		if !assert.ErrorIs(t, err, errRead) {
			return
		}
		if !assert.Equal(t, respA, ok.Buffer.String()) {
			return
		}
		if !assert.True(t, bad.closed) {
			return
		}
	})
}
