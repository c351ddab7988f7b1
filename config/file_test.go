// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

type fsFunc func(string) (fs.File, error)

func (f fsFunc) Open(path string) (fs.File, error) {
	return f(path)
}

func TestFileReader_Read(t *testing.T) {
	t.Run("will read the file contents", func(t *testing.T) {
		fsys := fstest.MapFS{
			"cgibridge.yaml": &fstest.MapFile{Data: []byte("mode: cgi\n")},
		}

		r := NewFileReader(fsys, "cgibridge.yaml")
		defer r.Close()

		b, err := io.ReadAll(r)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "mode: cgi\n", string(b)) {
			return
		}
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the fs.FS fails to open the file", func(t *testing.T) {
			openErr := errors.New("failed to open")
			fsys := fsFunc(func(s string) (fs.File, error) {
				return nil, openErr
			})

			r := NewFileReader(fsys, "cgibridge.yaml")
			_, err := io.ReadAll(r)
			if !assert.ErrorIs(t, err, openErr) {
				return
			}

			_, err = Read(FromYaml(NewFileReader(fsys, "cgibridge.yaml")))
			if !assert.ErrorIs(t, err, openErr) {
				return
			}
		})
	})
}

func TestFileReader_Close(t *testing.T) {
	t.Run("will not return an error", func(t *testing.T) {
		t.Run("if Close is called before the underlying file has been opened", func(t *testing.T) {
			fsys := fsFunc(func(s string) (fs.File, error) {
				return nil, nil
			})

			r := NewFileReader(fsys, "cgibridge.yaml")
			err := r.Close()
			if !assert.Nil(t, err) {
				return
			}
		})
	})
}
