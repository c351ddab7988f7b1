// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package message

// Method is a request method token. Only [MethodGet] and [MethodPost]
// are supported; any other token is kept verbatim so a Dispatcher
// can decide what to do with it.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// ParseMethod classifies a method token. It never fails.
func ParseMethod(token string) Method {
	return Method(token)
}

// Supported reports whether m is one of the enumerated methods.
func (m Method) Supported() bool {
	return m == MethodGet || m == MethodPost
}

// String implements the [fmt.Stringer] interface.
func (m Method) String() string {
	return string(m)
}
