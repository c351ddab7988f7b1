// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type readFunc func([]byte) (int, error)

func (f readFunc) Read(b []byte) (int, error) {
	return f(b)
}

func TestReadBody(t *testing.T) {
	t.Run("will return exactly n bytes", func(t *testing.T) {
		for _, n := range []int64{1, 5, 4096, 70000} {
			want := bytes.Repeat([]byte{'x'}, int(n))
			r := io.MultiReader(bytes.NewReader(want), strings.NewReader("next frame"))

			got, err := ReadBody(r, n, 0)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, want, got) {
				return
			}
		}
	})

	t.Run("will leave bytes past n unread", func(t *testing.T) {
		r := strings.NewReader("helloworld")

		got, err := ReadBody(r, 5, 0)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "hello", string(got)) {
			return
		}

		rest, err := io.ReadAll(r)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "world", string(rest)) {
			return
		}
	})

	t.Run("will not read from the stream", func(t *testing.T) {
		t.Run("if n is zero", func(t *testing.T) {
			r := readFunc(func(b []byte) (int, error) {
				t.Fatal("unexpected read")
				return 0, nil
			})

			got, err := ReadBody(r, 0, 10)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.NotNil(t, got) {
				return
			}
			if !assert.Empty(t, got) {
				return
			}
		})

		t.Run("if n exceeds the maximum body size", func(t *testing.T) {
			r := readFunc(func(b []byte) (int, error) {
				t.Fatal("unexpected read")
				return 0, nil
			})

			_, err := ReadBody(r, 11, 10)

			var terr BodyTooLargeError
			if !assert.ErrorAs(t, err, &terr) {
				return
			}
			if !assert.Equal(t, BodyTooLargeError{Length: 11, Max: 10}, terr) {
				return
			}
		})
	})

	t.Run("will return an IncompleteBodyError", func(t *testing.T) {
		t.Run("if the stream ends early", func(t *testing.T) {
			_, err := ReadBody(strings.NewReader("hel"), 5, 0)

			var ierr IncompleteBodyError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.Equal(t, IncompleteBodyError{Expected: 5, Actual: 3}, ierr) {
				return
			}
		})

		t.Run("if the stream is empty", func(t *testing.T) {
			_, err := ReadBody(strings.NewReader(""), 5, 0)

			var ierr IncompleteBodyError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.Equal(t, int64(0), ierr.Actual) {
				return
			}
		})
	})

	t.Run("will return the read error", func(t *testing.T) {
		t.Run("if the stream fails", func(t *testing.T) {
			readErr := errors.New("read failed")
			r := readFunc(func(b []byte) (int, error) {
				return 0, readErr
			})

			_, err := ReadBody(r, 5, 0)
			if !assert.ErrorIs(t, err, readErr) {
				return
			}
		})
	})

	t.Run("will return an InvalidContentLengthError", func(t *testing.T) {
		t.Run("if n is negative", func(t *testing.T) {
			_, err := ReadBody(strings.NewReader(""), -1, 0)

			var cerr InvalidContentLengthError
			if !assert.ErrorAs(t, err, &cerr) {
				return
			}
		})
	})
}
