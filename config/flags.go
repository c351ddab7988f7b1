// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"strings"

	"github.com/z5labs/cgibridge/config/key"

	"github.com/spf13/pflag"
)

// KeyAnnotation is the pflag annotation naming the config key a flag
// sets, e.g. "upstream.url". Flags without it map "max-body-size" to
// the key "max_body_size".
const KeyAnnotation = "config_key"

// Flags represents a Source where its underlying values are the
// command line flags which were explicitly set.
type Flags struct {
	fs *pflag.FlagSet
}

// FromFlags returns a Source over the changed flags of fs. Defaults of
// unset flags are never applied so they cannot override other sources.
func FromFlags(fs *pflag.FlagSet) Flags {
	return Flags{fs: fs}
}

// Apply implements the Source interface.
func (src Flags) Apply(store Store) error {
	var err error
	src.fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = store.Set(flagKey(f), f.Value.String())
	})
	return err
}

// Annotate sets the config key of the named flag.
func Annotate(fs *pflag.FlagSet, name, configKey string) error {
	return fs.SetAnnotation(name, KeyAnnotation, []string{configKey})
}

func flagKey(f *pflag.Flag) key.Chain {
	if vs := f.Annotations[KeyAnnotation]; len(vs) > 0 {
		return key.Split(vs[0], ".")
	}
	return key.Split(strings.ReplaceAll(f.Name, "-", "_"), ".")
}
