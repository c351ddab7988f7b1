// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"os"
	"strings"

	"github.com/z5labs/cgibridge/config/key"
)

// NestedKeySeparator splits an environment variable name into nested
// keys, e.g. CGIBRIDGE_UPSTREAM__URL sets upstream.url.
const NestedKeySeparator = "__"

// Env represents a Source where its underlying values are extracted
// from environment variables sharing a common prefix.
type Env struct {
	prefix  string
	environ func() []string
}

// FromEnv returns a Source which applies every environment variable
// of the current process whose name starts with prefix. The prefix is
// stripped and the remaining name lowercased. Variables without the
// prefix, such as the CGI request variables, are never applied.
func FromEnv(prefix string) Env {
	return Env{
		prefix:  prefix,
		environ: os.Environ,
	}
}

// Apply implements the Source interface.
func (src Env) Apply(store Store) error {
	return applyEnviron(store, src.prefix, src.environ())
}

func applyEnviron(store Store, prefix string, environ []string) error {
	for _, pair := range environ {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}

		chain := key.Split(strings.ToLower(name), NestedKeySeparator)
		if len(chain) == 0 {
			continue
		}
		err := store.Set(chain, v)
		if err != nil {
			return err
		}
	}
	return nil
}
