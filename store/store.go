// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package store provides an in-memory key/value resource which may be
// shared between connections.
package store

import (
	"context"
	"sync"

	"github.com/z5labs/cgibridge/internal/try"
)

// Tx is the view of a [Store] available while its lock is held.
// It must not be retained after the func passed to [Store.With] returns.
type Tx interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) ([]byte, bool)
	Delete(key string) ([]byte, bool)
	Len() int
}

// Store is guarded by a single exclusive lock.
type Store struct {
	mu   sync.Mutex
	data map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// With acquires the lock, runs f and releases the lock on every exit
// path. A panic in f is returned as a [try.PanicError].
func (s *Store) With(ctx context.Context, f func(Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer try.Recover(&err)

	return f(tx{s: s})
}

type tx struct {
	s *Store
}

// Get returns a copy of the value stored under key.
func (t tx) Get(key string) ([]byte, bool) {
	v, ok := t.s.data[key]
	if !ok {
		return nil, false
	}
	return clone(v), true
}

// Put stores a copy of value and returns the value it replaced.
func (t tx) Put(key string, value []byte) ([]byte, bool) {
	prev, ok := t.s.data[key]
	t.s.data[key] = clone(value)
	return prev, ok
}

// Delete removes key and returns the value it held.
func (t tx) Delete(key string) ([]byte, bool) {
	prev, ok := t.s.data[key]
	delete(t.s.data, key)
	return prev, ok
}

func (t tx) Len() int {
	return len(t.s.data)
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
