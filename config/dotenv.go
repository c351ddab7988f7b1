// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"io"
	"sort"

	"github.com/z5labs/cgibridge/internal/try"

	"github.com/joho/godotenv"
)

// DotEnv represents a Source where its underlying format is a .env file.
type DotEnv struct {
	r      io.Reader
	prefix string
}

// FromDotEnv returns a Source which parses r as a .env file and applies
// the variables starting with prefix the same way as [FromEnv].
func FromDotEnv(r io.Reader, prefix string) DotEnv {
	return DotEnv{r: r, prefix: prefix}
}

// InvalidDotEnvError occurs if the underlying io.Reader is not a valid .env file.
type InvalidDotEnvError struct {
	Cause error
}

// Error implements the error interface.
func (e InvalidDotEnvError) Error() string {
	return fmt.Sprintf("invalid .env: %s", e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e InvalidDotEnvError) Unwrap() error {
	return e.Cause
}

// Apply implements the Source interface.
func (src DotEnv) Apply(store Store) (err error) {
	defer try.Close(&err, src.r)

	vars, err := godotenv.Parse(src.r)
	if err != nil {
		return InvalidDotEnvError{Cause: err}
	}

	environ := make([]string, 0, len(vars))
	for k, v := range vars {
		environ = append(environ, k+"="+v)
	}
	sort.Strings(environ)

	return applyEnviron(store, src.prefix, environ)
}
