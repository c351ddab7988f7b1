// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package codec converts between the wire conventions and the
// [message] model.
//
// Requests arrive either as a CGI environment plus a body of declared
// length ([Decoder]) or as frames on a persistent stream ([FrameCodec]).
// Responses leave either as a CGI header block ([CGIEncoder]) or as a
// status-line frame ([FrameEncoder]).
package codec
