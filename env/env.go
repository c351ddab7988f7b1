// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package env captures process environment variables as an immutable, ordered snapshot.
package env

import (
	"os"
	"strings"
)

// Var is a single environment variable.
type Var struct {
	Name  string
	Value string
}

// Snapshot is an immutable view of environment variables in
// enumeration order. The zero value is an empty snapshot.
type Snapshot struct {
	vars []Var
}

// FromOS captures the environment of the current process.
func FromOS() Snapshot {
	return FromEnviron(os.Environ())
}

// FromEnviron captures variables given in the "NAME=value" form
// returned by [os.Environ]. Malformed entries are skipped.
func FromEnviron(environ []string) Snapshot {
	vars := make([]Var, 0, len(environ))
	for _, pair := range environ {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		vars = append(vars, Var{Name: k, Value: v})
	}
	return Snapshot{vars: vars}
}

// Of builds a snapshot from alternating names and values.
// A trailing name without a value is ignored.
func Of(kvs ...string) Snapshot {
	vars := make([]Var, 0, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		vars = append(vars, Var{Name: kvs[i], Value: kvs[i+1]})
	}
	return Snapshot{vars: vars}
}

// Lookup returns the value of the first variable named name.
// Names are case-sensitive.
func (s Snapshot) Lookup(name string) (string, bool) {
	for _, v := range s.vars {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// Get is like Lookup but returns an empty string for missing variables.
func (s Snapshot) Get(name string) string {
	v, _ := s.Lookup(name)
	return v
}

// Len returns the number of captured variables.
func (s Snapshot) Len() int {
	return len(s.vars)
}

// Each calls f for every variable in enumeration order.
func (s Snapshot) Each(f func(name, value string)) {
	for _, v := range s.vars {
		f(v.Name, v.Value)
	}
}

// Vars returns a copy of the captured variables.
func (s Snapshot) Vars() []Var {
	vars := make([]Var, len(s.vars))
	copy(vars, s.vars)
	return vars
}

// Environ returns the variables in the "NAME=value" form.
func (s Snapshot) Environ() []string {
	environ := make([]string, len(s.vars))
	for i, v := range s.vars {
		environ[i] = v.Name + "=" + v.Value
	}
	return environ
}
