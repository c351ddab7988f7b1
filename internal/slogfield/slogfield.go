// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package slogfield provides the [slog.Attr] constructors used across cgibridge logs.
package slogfield

import (
	"log/slog"
	"time"
)

// Any returns an slog.Attr for the supplied value.
func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Bool returns an slog.Attr for a bool.
func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

// Duration returns an slog.Attr for a time.Duration.
func Duration(key string, d time.Duration) slog.Attr {
	return slog.Duration(key, d)
}

// Error returns an slog.Attr for a error.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// String returns an slog.Attr for a string.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int returns an slog.Attr for a int.
func Int(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Int64 returns an slog.Attr for a int64.
func Int64(key string, n int64) slog.Attr {
	return slog.Int64(key, n)
}

// Uint64 returns an slog.Attr for a uint64.
func Uint64(key string, n uint64) slog.Attr {
	return slog.Uint64(key, n)
}

// Method returns an slog.Attr for a request method token.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Target returns an slog.Attr for a request target.
func Target(target string) slog.Attr {
	return slog.String("target", target)
}

// StatusCode returns an slog.Attr for a response status code.
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// Outcome returns an slog.Attr describing how a request finished.
func Outcome(outcome string) slog.Attr {
	return slog.String("outcome", outcome)
}
