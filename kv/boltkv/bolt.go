// Package boltkv implements kv.Store on go.etcd.io/bbolt, the pure-Go,
// cgo-free embedded store in the teacher's dependency graph. It is the
// recommended backend for single-process deployments that cannot link
// against libmdbx (kv/mdbxkv), and for any test harness that wants a real
// durable backend without a cgo toolchain.
package boltkv

import (
	"context"

	"github.com/golang/snappy"
	bolt "go.etcd.io/bbolt"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/kv"
)

var bucketName = []byte("antfly")

type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "open bbolt store at %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "create antfly bucket")
	}
	return &Store{db: db}, nil
}

var _ kv.Store = (*Store)(nil)

func (s *Store) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return nil
		}
		found = true
		dec, err := snappy.Decode(nil, v)
		if err != nil {
			return err
		}
		out = dec
		return nil
	})
	if err != nil {
		return nil, false, antflyerr.Wrap(err, antflyerr.BackendFailure, "get %s", key)
	}
	return out, found, nil
}

func (s *Store) Put(_ context.Context, key, value []byte) error {
	enc := snappy.Encode(nil, value)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, enc)
	})
	if err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "put %s", key)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
	if err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "delete %s", key)
	}
	return nil
}

func (s *Store) Scan(_ context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			dec, err := snappy.Decode(nil, v)
			if err != nil {
				return err
			}
			if !fn(k, dec) {
				break
			}
		}
		return nil
	})
	if err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "scan prefix %s", prefix)
	}
	return nil
}

func (s *Store) Batch(_ context.Context, puts map[string][]byte, deletes [][]byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		for k, v := range puts {
			if err := b.Put([]byte(k), snappy.Encode(nil, v)); err != nil {
				return err
			}
		}
		for _, k := range deletes {
			if err := b.Delete(k); err != nil {
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
	if err := s.db.Close(); err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "close bbolt store")
	}
	return nil
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
