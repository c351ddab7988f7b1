// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package message defines the structured request and response model
// shared by the CGI and framed execution modes.
package message
