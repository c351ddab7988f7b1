// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextTemplateRenderer_Read(t *testing.T) {
	t.Run("will render environment variables", func(t *testing.T) {
		t.Setenv("CGIBRIDGE_TEST_UPSTREAM", "http://upstream")

		r := strings.NewReader(`url: {{ env "CGIBRIDGE_TEST_UPSTREAM" }}
mode: {{ env "CGIBRIDGE_TEST_UNSET" "cgi" }}`)

		b, err := io.ReadAll(RenderTextTemplate(r))
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "url: http://upstream\nmode: cgi", string(b)) {
			return
		}
	})

	t.Run("will use custom delimiters", func(t *testing.T) {
		r := strings.NewReader(`mode: <% name %>`)

		ttr := RenderTextTemplate(
			r,
			TemplateDelims("<%", "%>"),
			TemplateFunc("name", func() string { return "persistent" }),
		)
		b, err := io.ReadAll(ttr)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "mode: persistent", string(b)) {
			return
		}
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the underlying io.Reader fails", func(t *testing.T) {
			readErr := errors.New("failed to read")
			r := readFunc(func(b []byte) (int, error) {
				return 0, readErr
			})

			ttr := RenderTextTemplate(r)
			_, err := io.ReadAll(ttr)
			if !assert.ErrorIs(t, err, readErr) {
				return
			}
		})

		t.Run("if the underlying io.Reader contains an invalid text/template", func(t *testing.T) {
			r := strings.NewReader(`{{ hello`)

			ttr := RenderTextTemplate(r)
			_, err := io.ReadAll(ttr)

			var ierr TextTemplateParseError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.Error(t, ierr.Unwrap()) {
				return
			}
		})

		t.Run("if the parsed text/template fails to execute", func(t *testing.T) {
			r := strings.NewReader(`{{ hello }}`)

			ttr := RenderTextTemplate(
				r,
				TemplateFunc("hello", func() (string, error) {
					return "", errors.New("ahhhh")
				}),
			)
			_, err := io.ReadAll(ttr)

			var ierr TextTemplateExecError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
		})
	})
}
