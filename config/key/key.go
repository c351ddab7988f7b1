// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package key provides types for nested config keys.
package key

import (
	"strings"
)

// Keyer is a common interface all value key types must implement.
type Keyer interface {
	Key() string
}

// Chain represents nested keys.
type Chain []Keyer

// Key implements the [Keyer] interface.
func (k Chain) Key() string {
	ss := make([]string, len(k))
	for i := range k {
		ss[i] = k[i].Key()
	}
	return strings.Join(ss, ".")
}

// Name represents a single key.
type Name string

// Key implements the [Keyer] interface.
func (k Name) Key() string {
	return string(k)
}

// Split turns a separated path, e.g. "upstream.circuit.trip_count",
// into a Chain. Empty segments are dropped.
func Split(path, sep string) Chain {
	var chain Chain
	for _, s := range strings.Split(path, sep) {
		if s == "" {
			continue
		}
		chain = append(chain, Name(s))
	}
	return chain
}
