// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package cgibridge bridges the CGI request convention, environment
// variables plus a length delimited body on standard input, to a
// structured request/response model served by a [dispatch.Dispatcher].
//
// Two execution modes share the same message model, dispatchers and
// failure handling:
//
//   - one-shot ([oneshot.Runtime]): the process handles exactly one
//     request described by its environment and exits.
//   - persistent ([persistent.Runtime]): one connection carries a
//     sequence of status-line framed requests and responses.
//
// [Run] wires configuration sources into an [AppBuilder] the same way
// for both modes.
//
// [dispatch.Dispatcher]: https://pkg.go.dev/github.com/z5labs/cgibridge/dispatch#Dispatcher
// [oneshot.Runtime]: https://pkg.go.dev/github.com/z5labs/cgibridge/runtime/oneshot#Runtime
// [persistent.Runtime]: https://pkg.go.dev/github.com/z5labs/cgibridge/runtime/persistent#Runtime
package cgibridge
