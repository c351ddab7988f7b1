// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnviron(t *testing.T) {
	t.Run("will preserve enumeration order", func(t *testing.T) {
		s := FromEnviron([]string{"B=2", "A=1", "C=x=y"})

		var names []string
		s.Each(func(name, value string) {
			names = append(names, name)
		})
		if !assert.Equal(t, []string{"B", "A", "C"}, names) {
			return
		}
		if !assert.Equal(t, "x=y", s.Get("C")) {
			return
		}
	})

	t.Run("will skip malformed entries", func(t *testing.T) {
		s := FromEnviron([]string{"NOEQUALS", "=novalue", "OK="})

		if !assert.Equal(t, 1, s.Len()) {
			return
		}
		v, ok := s.Lookup("OK")
		if !assert.True(t, ok) {
			return
		}
		if !assert.Empty(t, v) {
			return
		}
	})

	t.Run("will not be affected by later mutation of the input", func(t *testing.T) {
		environ := []string{"REQUEST_METHOD=GET"}
		s := FromEnviron(environ)
		environ[0] = "REQUEST_METHOD=POST"

		if !assert.Equal(t, "GET", s.Get("REQUEST_METHOD")) {
			return
		}
	})
}

func TestFromOS(t *testing.T) {
	t.Run("will not observe changes made after capture", func(t *testing.T) {
		t.Setenv("CGIBRIDGE_SNAPSHOT_TEST", "before")
		s := FromOS()
		t.Setenv("CGIBRIDGE_SNAPSHOT_TEST", "after")

		if !assert.Equal(t, "before", s.Get("CGIBRIDGE_SNAPSHOT_TEST")) {
			return
		}
	})
}

func TestSnapshot_Lookup(t *testing.T) {
	t.Run("will be case-sensitive", func(t *testing.T) {
		s := Of("REQUEST_URI", "/x")

		_, ok := s.Lookup("request_uri")
		if !assert.False(t, ok) {
			return
		}
	})

	t.Run("will return the first of duplicate names", func(t *testing.T) {
		s := Of("A", "1", "A", "2")

		if !assert.Equal(t, "1", s.Get("A")) {
			return
		}
	})

	t.Run("will not expose internal storage through Vars", func(t *testing.T) {
		s := Of("A", "1")
		vars := s.Vars()
		vars[0].Value = "2"

		if !assert.Equal(t, "1", s.Get("A")) {
			return
		}
		if !assert.Equal(t, []string{"A=1"}, s.Environ()) {
			return
		}
	})
}
