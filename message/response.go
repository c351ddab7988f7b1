// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package message

import (
	"bytes"
	"io"
)

// Body is the payload of a [Response]. It is either fully materialized
// or streamed from an underlying reader.
type Body interface {
	io.Reader

	// Len returns the exact number of bytes the body produces, if known.
	Len() (int64, bool)
}

type bytesBody struct {
	*bytes.Reader
	n int64
}

func (b bytesBody) Len() (int64, bool) {
	return b.n, true
}

// Bytes returns a materialized Body over b.
func Bytes(b []byte) Body {
	return bytesBody{
		Reader: bytes.NewReader(b),
		n:      int64(len(b)),
	}
}

// String returns a materialized Body over s.
func String(s string) Body {
	return Bytes([]byte(s))
}

type streamBody struct {
	io.Reader
	n int64
}

func (b streamBody) Len() (int64, bool) {
	return b.n, b.n >= 0
}

// Stream returns a lazily produced Body. A negative n means the length
// is not known ahead of time.
func Stream(r io.Reader, n int64) Body {
	return streamBody{Reader: r, n: n}
}

// Response is produced by a Dispatcher for a single [Request].
type Response struct {
	StatusCode int
	Header     Header
	Body       Body
}

// BodyLen returns the declared body length. A nil Body has length zero.
func (r *Response) BodyLen() (int64, bool) {
	if r.Body == nil {
		return 0, true
	}
	return r.Body.Len()
}

// Text returns a Response with a plain text body.
func Text(code int, s string) *Response {
	return &Response{
		StatusCode: code,
		Header: Header{
			{Name: "Content-Type", Value: "text/plain; charset=utf-8"},
		},
		Body: String(s),
	}
}

// HTML returns a Response with an HTML body.
func HTML(code int, s string) *Response {
	return &Response{
		StatusCode: code,
		Header: Header{
			{Name: "Content-Type", Value: "text/html; charset=utf-8"},
		},
		Body: String(s),
	}
}
