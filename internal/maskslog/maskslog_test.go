// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package maskslog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var m map[string]any
	err := json.Unmarshal(buf.Bytes(), &m)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestHandler(t *testing.T) {
	t.Run("will mask record attributes", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(NewHandler(
			slog.NewJSONHandler(&buf, nil),
			Attr("target", StripQuery),
			Attr("token", Redact),
		))

		log.Info("handled request", slog.String("target", "/items?token=abc"), slog.String("token", "abc"), slog.Int("status_code", 200))

		m := decode(t, &buf)
		if !assert.Equal(t, "/items?****", m["target"]) {
			return
		}
		if !assert.Equal(t, "****", m["token"]) {
			return
		}
		if !assert.Equal(t, float64(200), m["status_code"]) {
			return
		}
	})

	t.Run("will leave targets without a query untouched", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), Attr("target", StripQuery)))

		log.Info("handled request", slog.String("target", "/items"))

		m := decode(t, &buf)
		if !assert.Equal(t, "/items", m["target"]) {
			return
		}
	})

	t.Run("will mask attributes added with With", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), Attr("url", StripQuery)))

		log.With(slog.String("url", "http://upstream/x?k=v")).Info("forwarding request")

		m := decode(t, &buf)
		if !assert.Equal(t, "http://upstream/x?****", m["url"]) {
			return
		}
	})

	t.Run("will mask attributes nested in groups", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), Attr("token", Redact)))

		log.WithGroup("req").Info("x", slog.Group("auth", slog.String("token", "abc")))

		m := decode(t, &buf)
		req, ok := m["req"].(map[string]any)
		if !assert.True(t, ok) {
			return
		}
		auth, ok := req["auth"].(map[string]any)
		if !assert.True(t, ok) {
			return
		}
		if !assert.Equal(t, "****", auth["token"]) {
			return
		}
	})
}
