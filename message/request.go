// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package message

import "strings"

// Unknown is used for informational request fields which were not provided.
const Unknown = "unknown"

// Request is a fully decoded request. Body always holds exactly the
// declared content length.
type Request struct {
	Method     Method
	Target     string
	Header     Header
	Body       []byte
	RemoteAddr string
	Protocol   string
}

// Path returns the target without its query string.
func (r *Request) Path() string {
	path, _, _ := strings.Cut(r.Target, "?")
	return path
}
