// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import (
	"bytes"
	"io"
	"strings"

	"github.com/z5labs/cgibridge/message"
)

// DefaultMaxHeaderBytes bounds a frame header block, request line included.
const DefaultMaxHeaderBytes = 1 << 20

// DefaultProtocol is written in the status line of encoded frames.
const DefaultProtocol = "HTTP/1.1"

var (
	headerSeparator = []byte("\r\n\r\n")
	crlf            = []byte("\r\n")
)

// State of a [FrameCodec].
type State uint8

const (
	// AwaitingHeaders is the initial state. The codec is looking for
	// the end of the next header block.
	AwaitingHeaders State = iota

	// HeadersComplete means a header block has been parsed and the
	// codec is waiting for the rest of its declared body.
	HeadersComplete
)

// String implements the [fmt.Stringer] interface.
func (s State) String() string {
	switch s {
	case AwaitingHeaders:
		return "AwaitingHeaders"
	case HeadersComplete:
		return "HeadersComplete"
	default:
		return "Unknown"
	}
}

type frameHead struct {
	method        string
	target        string
	protocol      string
	header        message.Header
	contentLength int64
}

// FrameOption configures a [FrameCodec].
type FrameOption func(*FrameCodec)

// MaxBodySize bounds the declared body length of a single frame.
// Zero or less disables the guard.
func MaxBodySize(n int64) FrameOption {
	return func(fc *FrameCodec) {
		fc.maxBodySize = n
	}
}

// MaxHeaderBytes bounds the size of a single header block.
func MaxHeaderBytes(n int) FrameOption {
	return func(fc *FrameCodec) {
		if n <= 0 {
			return
		}
		fc.maxHeaderBytes = n
	}
}

// Protocol sets the protocol written in response status lines.
func Protocol(proto string) FrameOption {
	return func(fc *FrameCodec) {
		if proto == "" {
			return
		}
		fc.enc.Protocol = proto
	}
}

// FrameCodec incrementally decodes request frames from a byte stream
// and encodes response frames. A FrameCodec belongs to exactly one
// connection and is not safe for concurrent use.
//
// Decoded requests never reference the internal buffer, which is
// drained in place and keeps its capacity across frames.
type FrameCodec struct {
	maxBodySize    int64
	maxHeaderBytes int
	enc            FrameEncoder

	buf     []byte
	scanned int
	state   State
	head    frameHead
}

// NewFrameCodec returns a FrameCodec in the AwaitingHeaders state.
func NewFrameCodec(opts ...FrameOption) *FrameCodec {
	fc := &FrameCodec{
		maxBodySize:    DefaultMaxBodySize,
		maxHeaderBytes: DefaultMaxHeaderBytes,
		enc:            FrameEncoder{Protocol: DefaultProtocol},
		buf:            make([]byte, 0, 4096),
	}
	for _, opt := range opts {
		opt(fc)
	}
	return fc
}

// State returns the current decode state.
func (fc *FrameCodec) State() State {
	return fc.state
}

// Buffered returns the number of received bytes not yet consumed by a frame.
func (fc *FrameCodec) Buffered() int {
	return len(fc.buf)
}

// Feed appends newly received bytes to the buffer.
func (fc *FrameCodec) Feed(p []byte) {
	fc.buf = append(fc.buf, p...)
}

// Fill performs a single read from r directly into the spare capacity
// of the buffer, growing it first when less than minRead bytes are free.
func (fc *FrameCodec) Fill(r io.Reader, minRead int) (int, error) {
	if minRead < 1 {
		minRead = 512
	}
	if cap(fc.buf)-len(fc.buf) < minRead {
		grown := make([]byte, len(fc.buf), 2*cap(fc.buf)+minRead)
		copy(grown, fc.buf)
		fc.buf = grown
	}
	n, err := r.Read(fc.buf[len(fc.buf):cap(fc.buf)])
	fc.buf = fc.buf[:len(fc.buf)+n]
	return n, err
}

// Decode extracts the next complete request frame from the buffer.
// It returns false without an error when more data is needed. After an
// error the connection must be abandoned since the frame boundary is lost.
func (fc *FrameCodec) Decode() (*message.Request, bool, error) {
	if fc.state == AwaitingHeaders {
		ok, err := fc.decodeHead()
		if !ok || err != nil {
			return nil, false, err
		}
	}

	n := fc.head.contentLength
	if int64(len(fc.buf)) < n {
		return nil, false, nil
	}

	body := make([]byte, n)
	copy(body, fc.buf[:n])
	fc.drain(int(n))

	req := &message.Request{
		Method:     message.ParseMethod(fc.head.method),
		Target:     fc.head.target,
		Header:     fc.head.header,
		Body:       body,
		RemoteAddr: message.Unknown,
		Protocol:   fc.head.protocol,
	}
	fc.head = frameHead{}
	fc.state = AwaitingHeaders
	return req, true, nil
}

// DecodeFrom is a convenience for Feed followed by Decode.
func (fc *FrameCodec) DecodeFrom(p []byte) (*message.Request, bool, error) {
	fc.Feed(p)
	return fc.Decode()
}

// Encode writes resp as a status-line frame.
func (fc *FrameCodec) Encode(w io.Writer, resp *message.Response) error {
	return fc.enc.Encode(w, resp)
}

// Reset discards buffered bytes and any partially decoded frame,
// keeping the buffer capacity.
func (fc *FrameCodec) Reset() {
	fc.buf = fc.buf[:0]
	fc.scanned = 0
	fc.state = AwaitingHeaders
	fc.head = frameHead{}
}

func (fc *FrameCodec) decodeHead() (bool, error) {
	// resume scanning where the last attempt stopped, backing up far
	// enough to catch a separator split across two feeds
	start := fc.scanned - (len(headerSeparator) - 1)
	if start < 0 {
		start = 0
	}
	i := bytes.Index(fc.buf[start:], headerSeparator)
	if i < 0 {
		fc.scanned = len(fc.buf)
		if len(fc.buf) > fc.maxHeaderBytes {
			return false, HeaderTooLargeError{Max: fc.maxHeaderBytes}
		}
		return false, nil
	}

	end := start + i
	if end > fc.maxHeaderBytes {
		return false, HeaderTooLargeError{Max: fc.maxHeaderBytes}
	}
	head, err := fc.parseHead(string(fc.buf[:end]))
	fc.drain(end + len(headerSeparator))
	fc.scanned = 0
	if err != nil {
		return false, err
	}

	fc.head = head
	fc.state = HeadersComplete
	return true, nil
}

func (fc *FrameCodec) parseHead(block string) (frameHead, error) {
	line, rest, _ := strings.Cut(block, "\r\n")

	method, uri, ok := strings.Cut(line, " ")
	if !ok || method == "" {
		return frameHead{}, MalformedRequestLineError{Line: line}
	}
	target, proto, ok := strings.Cut(uri, " ")
	if target == "" {
		return frameHead{}, MalformedRequestLineError{Line: line}
	}
	if !ok || proto == "" {
		proto = message.Unknown
	}

	head := frameHead{
		method:   method,
		target:   target,
		protocol: proto,
	}
	sawLength := false
	for rest != "" {
		line, rest, _ = strings.Cut(rest, "\r\n")

		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return frameHead{}, MalformedHeaderError{Line: line}
		}
		value = strings.TrimSpace(value)
		head.header.Add(name, value)

		if !strings.EqualFold(name, "Content-Length") {
			continue
		}
		n, err := parseContentLength(value)
		if err != nil {
			return frameHead{}, err
		}
		if sawLength && head.contentLength != n {
			return frameHead{}, InvalidContentLengthError{Value: value}
		}
		head.contentLength = n
		sawLength = true
	}
	if fc.maxBodySize > 0 && head.contentLength > fc.maxBodySize {
		return frameHead{}, BodyTooLargeError{Length: head.contentLength, Max: fc.maxBodySize}
	}
	return head, nil
}

func (fc *FrameCodec) drain(n int) {
	m := copy(fc.buf, fc.buf[n:])
	fc.buf = fc.buf[:m]
}
