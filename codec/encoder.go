// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/z5labs/cgibridge/message"
)

// Encoder writes a [message.Response] to an output stream. Validation
// failures are reported before any byte is written.
type Encoder interface {
	Encode(io.Writer, *message.Response) error
}

// CGIEncoder writes responses as a CGI header block. A "Status:" line is
// only emitted when the status differs from 200.
type CGIEncoder struct{}

// Encode implements the [Encoder] interface.
func (CGIEncoder) Encode(w io.Writer, resp *message.Response) error {
	if err := validate(resp); err != nil {
		return err
	}

	var b []byte
	if resp.StatusCode != http.StatusOK {
		b = append(b, "Status: "...)
		b = appendStatus(b, resp.StatusCode)
		b = append(b, crlf...)
	}
	b = appendHeader(b, resp, "Status")
	return writeMessage(w, b, resp, nil)
}

// FrameEncoder writes responses as a status-line frame followed by
// a CRLF terminator.
type FrameEncoder struct {
	// Protocol defaults to DefaultProtocol when empty.
	Protocol string
}

// Encode implements the [Encoder] interface.
func (e FrameEncoder) Encode(w io.Writer, resp *message.Response) error {
	if err := validate(resp); err != nil {
		return err
	}

	proto := e.Protocol
	if proto == "" {
		proto = DefaultProtocol
	}

	b := make([]byte, 0, 256)
	b = append(b, proto...)
	b = append(b, ' ')
	b = appendStatus(b, resp.StatusCode)
	b = append(b, crlf...)
	b = appendHeader(b, resp)
	return writeMessage(w, b, resp, crlf)
}

func validate(resp *message.Response) error {
	if resp.StatusCode < 100 || resp.StatusCode > 599 {
		return InvalidStatusCodeError{Code: resp.StatusCode}
	}
	for _, f := range resp.Header {
		if f.Name == "" || strings.ContainsAny(f.Name, ":\r\n \t") {
			return InvalidHeaderError{Name: f.Name}
		}
		if strings.ContainsAny(f.Value, "\r\n") {
			return InvalidHeaderError{Name: f.Name}
		}
	}
	return nil
}

func appendStatus(b []byte, code int) []byte {
	b = strconv.AppendInt(b, int64(code), 10)
	b = append(b, ' ')
	return append(b, http.StatusText(code)...)
}

// appendHeader writes every header line followed by the blank separator
// line. Caller supplied Content-Length fields are replaced by the
// computed length, which is only written when the body length is known.
func appendHeader(b []byte, resp *message.Response, skip ...string) []byte {
	for _, f := range resp.Header {
		if strings.EqualFold(f.Name, "Content-Length") || skipped(f.Name, skip) {
			continue
		}
		b = append(b, f.Name...)
		b = append(b, ": "...)
		b = append(b, f.Value...)
		b = append(b, crlf...)
	}
	if n, ok := resp.BodyLen(); ok {
		b = append(b, "Content-Length: "...)
		b = strconv.AppendInt(b, n, 10)
		b = append(b, crlf...)
	}
	return append(b, crlf...)
}

func skipped(name string, skip []string) bool {
	for _, s := range skip {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	n, err := ew.w.Write(p)
	if err != nil && ew.err == nil {
		ew.err = err
	}
	return n, err
}

func writeMessage(w io.Writer, head []byte, resp *message.Response, trailer []byte) error {
	ew := &errWriter{w: w}
	if _, err := ew.Write(head); err != nil {
		return OutputWriteError{Cause: err}
	}
	if err := copyBody(ew, resp); err != nil {
		return err
	}
	if len(trailer) == 0 {
		return nil
	}
	if _, err := ew.Write(trailer); err != nil {
		return OutputWriteError{Cause: err}
	}
	return nil
}

func copyBody(ew *errWriter, resp *message.Response) error {
	if resp.Body == nil {
		return nil
	}

	n, known := resp.Body.Len()
	var (
		written int64
		err     error
	)
	if known {
		written, err = io.CopyN(ew, resp.Body, n)
	} else {
		_, err = io.Copy(ew, resp.Body)
	}
	switch {
	case err == nil:
		return nil
	case ew.err != nil:
		return OutputWriteError{Cause: ew.err}
	case known && errors.Is(err, io.EOF):
		return BodyLengthMismatchError{Declared: n, Written: written}
	default:
		return BodyReadError{Cause: err}
	}
}
