// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package maskslog provides a slog.Handler which rewrites sensitive
// attributes, such as query strings carrying tokens, before they are logged.
package maskslog

import (
	"context"
	"log/slog"
	"strings"
)

type options struct {
	masks map[string]func(slog.Attr) slog.Attr
}

// Option helps configure the Handler.
type Option func(*options)

// Attr registers a function for masking every slog.Attr with the given key.
func Attr(key string, f func(slog.Attr) slog.Attr) Option {
	return func(o *options) {
		o.masks[key] = f
	}
}

// Redact replaces the attribute value with "****".
func Redact(a slog.Attr) slog.Attr {
	return slog.String(a.Key, "****")
}

// StripQuery drops everything after the first "?" of a string value,
// keeping a marker that a query string was present.
func StripQuery(a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	p, _, ok := strings.Cut(a.Value.String(), "?")
	if !ok {
		return a
	}
	return slog.String(a.Key, p+"?****")
}

// Handler is an slog.Handler.
type Handler struct {
	slog  slog.Handler
	masks map[string]func(slog.Attr) slog.Attr
}

// NewHandler returns a new Handler.
func NewHandler(h slog.Handler, opts ...Option) *Handler {
	o := &options{
		masks: make(map[string]func(slog.Attr) slog.Attr),
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Handler{
		slog:  h,
		masks: o.masks,
	}
}

// Enabled implements the slog.Handler interface.
func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.slog.Enabled(ctx, lvl)
}

// Handle implements the slog.Handler interface.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if len(h.masks) == 0 {
		return h.slog.Handle(ctx, record)
	}

	nr := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		nr.AddAttrs(h.mask(a))
		return true
	})
	return h.slog.Handle(ctx, nr)
}

// WithAttrs implements the slog.Handler interface.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.mask(a)
	}
	return &Handler{slog: h.slog.WithAttrs(masked), masks: h.masks}
}

// WithGroup implements the slog.Handler interface.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{slog: h.slog.WithGroup(name), masks: h.masks}
}

func (h *Handler) mask(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]any, len(group))
		for i, ga := range group {
			masked[i] = h.mask(ga)
		}
		return slog.Group(a.Key, masked...)
	}

	f, ok := h.masks[a.Key]
	if !ok {
		return a
	}
	return f(a)
}
