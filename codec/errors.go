// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import "fmt"

// MissingFieldError occurs when a required request variable is absent or empty.
type MissingFieldError struct {
	Field string
}

// Error implements the [error] interface.
func (e MissingFieldError) Error() string {
	return fmt.Sprintf("missing required request field: %s", e.Field)
}

// InvalidContentLengthError occurs when a declared content length is
// not a non-negative decimal integer.
type InvalidContentLengthError struct {
	Value string
	Cause error
}

// Error implements the [error] interface.
func (e InvalidContentLengthError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("invalid content length: %q", e.Value)
	}
	return fmt.Sprintf("invalid content length: %q: %s", e.Value, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InvalidContentLengthError) Unwrap() error {
	return e.Cause
}

// IncompleteBodyError occurs when the input ends before the declared
// number of body bytes could be read.
type IncompleteBodyError struct {
	Expected int64
	Actual   int64
}

// Error implements the [error] interface.
func (e IncompleteBodyError) Error() string {
	return fmt.Sprintf("incomplete body: expected %d bytes but only read %d", e.Expected, e.Actual)
}

// BodyTooLargeError occurs when a declared content length exceeds the
// configured maximum. It is returned before any body byte is read.
type BodyTooLargeError struct {
	Length int64
	Max    int64
}

// Error implements the [error] interface.
func (e BodyTooLargeError) Error() string {
	return fmt.Sprintf("body of %d bytes exceeds maximum of %d bytes", e.Length, e.Max)
}

// HeaderTooLargeError occurs when a frame header block grows past the
// configured maximum without a terminating separator.
type HeaderTooLargeError struct {
	Max int
}

// Error implements the [error] interface.
func (e HeaderTooLargeError) Error() string {
	return fmt.Sprintf("header block exceeds maximum of %d bytes", e.Max)
}

// MalformedRequestLineError
type MalformedRequestLineError struct {
	Line string
}

// Error implements the [error] interface.
func (e MalformedRequestLineError) Error() string {
	return fmt.Sprintf("malformed request line: %q", e.Line)
}

// MalformedHeaderError
type MalformedHeaderError struct {
	Line string
}

// Error implements the [error] interface.
func (e MalformedHeaderError) Error() string {
	return fmt.Sprintf("malformed header line: %q", e.Line)
}

// InvalidStatusCodeError occurs when a response status is outside 100-599.
type InvalidStatusCodeError struct {
	Code int
}

// Error implements the [error] interface.
func (e InvalidStatusCodeError) Error() string {
	return fmt.Sprintf("invalid status code: %d", e.Code)
}

// InvalidHeaderError occurs when a response header cannot be written
// as a single well formed line.
type InvalidHeaderError struct {
	Name string
}

// Error implements the [error] interface.
func (e InvalidHeaderError) Error() string {
	return fmt.Sprintf("invalid response header: %q", e.Name)
}

// OutputWriteError occurs when the output stream rejects a write.
type OutputWriteError struct {
	Cause error
}

// Error implements the [error] interface.
func (e OutputWriteError) Error() string {
	return fmt.Sprintf("failed to write output: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e OutputWriteError) Unwrap() error {
	return e.Cause
}

// BodyReadError occurs when a streaming response body fails to produce bytes.
type BodyReadError struct {
	Cause error
}

// Error implements the [error] interface.
func (e BodyReadError) Error() string {
	return fmt.Sprintf("failed to read response body: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e BodyReadError) Unwrap() error {
	return e.Cause
}

// BodyLengthMismatchError occurs when a response body ends before
// producing its declared length.
type BodyLengthMismatchError struct {
	Declared int64
	Written  int64
}

// Error implements the [error] interface.
func (e BodyLengthMismatchError) Error() string {
	return fmt.Sprintf("response body declared %d bytes but produced %d", e.Declared, e.Written)
}
