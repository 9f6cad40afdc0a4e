// Package mdbxkv implements kv.Store on github.com/erigontech/mdbx-go, the
// cgo binding to libmdbx that the teacher repo uses as its production
// embedded store. This is the default durable backend for antfly
// collections that need crash-safe persistence and high read concurrency.
package mdbxkv

import (
	"bytes"
	"context"

	"github.com/c2h5oh/datasize"
	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/kv"
)

// defaultMaxSize is the upper bound an environment's geometry grows to when
// Open is called without an explicit budget.
const defaultMaxSize = 32 * datasize.GB

// Store wraps a single mdbx environment and database instance. One Store
// backs one on-disk directory; multiple collections share the key space
// via the coll/doc/idx/seq prefixes defined in kv/tables.go.
type Store struct {
	env *mdbx.Env
	dbi mdbx.DBI
}

// Open creates or opens an mdbx environment rooted at path, growing to
// maxSize at most (zero uses defaultMaxSize). maxSize is expressed as a
// datasize.ByteSize so callers can write e.g. `64 * datasize.GB` instead of
// a raw byte count.
func Open(path string, maxSize datasize.ByteSize) (*Store, error) {
	if maxSize == 0 {
		maxSize = defaultMaxSize
	}
	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "create mdbx env")
	}
	if err := env.SetGeometry(-1, -1, int(maxSize.Bytes()), 16*1024*1024, -1, 4096); err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "set mdbx geometry")
	}
	if err := env.SetOption(mdbx.OptMaxDB, 1); err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "set mdbx max dbs")
	}
	if err := env.Open(path, mdbx.NoReadahead, 0o644); err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "open mdbx env at %s", path)
	}

	s := &Store{env: env}
	err = env.Update(func(txn *mdbx.Txn) error {
		dbi, err := txn.OpenDBISimple("antfly", mdbx.Create)
		if err != nil {
			return err
		}
		s.dbi = dbi
		return nil
	})
	if err != nil {
		_ = env.Close()
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "open antfly dbi")
	}
	return s, nil
}

var _ kv.Store = (*Store)(nil)

func (s *Store) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := s.env.View(func(txn *mdbx.Txn) error {
		v, err := txn.Get(s.dbi, key)
		if mdbx.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, antflyerr.Wrap(err, antflyerr.BackendFailure, "get %s", key)
	}
	return out, found, nil
}

func (s *Store) Put(_ context.Context, key, value []byte) error {
	err := s.env.Update(func(txn *mdbx.Txn) error {
		return txn.Put(s.dbi, key, value, 0)
	})
	if err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "put %s", key)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key []byte) error {
	err := s.env.Update(func(txn *mdbx.Txn) error {
		err := txn.Del(s.dbi, key, nil)
		if mdbx.IsNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "delete %s", key)
	}
	return nil
}

func (s *Store) Scan(_ context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	err := s.env.View(func(txn *mdbx.Txn) error {
		cur, err := txn.OpenCursor(s.dbi)
		if err != nil {
			return err
		}
		defer cur.Close()

		k, v, err := cur.Get(prefix, nil, mdbx.SetRange)
		for ; err == nil; k, v, err = cur.Get(nil, nil, mdbx.Next) {
			if !bytes.HasPrefix(k, prefix) {
				break
			}
			if !fn(append([]byte(nil), k...), append([]byte(nil), v...)) {
				break
			}
		}
		if err != nil && !mdbx.IsNotFound(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "scan prefix %s", prefix)
	}
	return nil
}

func (s *Store) Batch(_ context.Context, puts map[string][]byte, deletes [][]byte) error {
	err := s.env.Update(func(txn *mdbx.Txn) error {
		for k, v := range puts {
			if err := txn.Put(s.dbi, []byte(k), v, 0); err != nil {
				return err
			}
		}
		for _, k := range deletes {
			if err := txn.Del(s.dbi, k, nil); err != nil && !mdbx.IsNotFound(err) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "batch write")
	}
	return nil
}

func (s *Store) Close() error {
	s.env.Close()
	return nil
}
