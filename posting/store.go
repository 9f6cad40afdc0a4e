package posting

import (
	"context"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/kv"
	"github.com/antflydb/antfly/metrics"
)

// Store manages the posting lists for one collection, keyed by
// (field, token). Reads of hot tokens are served from an LRU of decoded
// Lists; writes update the cache and persist through the KV store
// immediately (append/remove are idempotent and append-only on
// (field, seq), so no cross-token transaction is required, per §4.1).
type Store struct {
	coll  string
	store kv.Store

	mu    sync.RWMutex
	cache *lru.Cache[string, *List]

	metrics    *metrics.Registry
	sizeMu     sync.Mutex
	tokenBytes map[string]int // cacheKey -> last persisted byte length, for metrics.PostingBytes
}

// NewStore builds a posting Store for coll backed by store, caching up to
// cacheSize decoded lists.
func NewStore(coll string, store kv.Store, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	c, err := lru.New[string, *List](cacheSize)
	if err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "create posting cache")
	}
	return &Store{coll: coll, store: store, cache: c, tokenBytes: make(map[string]int)}, nil
}

// SetMetrics attaches m so future persists update metrics.PostingBytes. Pass
// nil to stop updating (the default; a Store with no Registry is inert).
func (s *Store) SetMetrics(m *metrics.Registry) {
	s.sizeMu.Lock()
	defer s.sizeMu.Unlock()
	s.metrics = m
}

func cacheKey(field, token string) string { return field + "\x00" + token }

func (s *Store) load(ctx context.Context, field, token string) (*List, error) {
	key := cacheKey(field, token)
	s.mu.RLock()
	if l, ok := s.cache.Get(key); ok {
		s.mu.RUnlock()
		return l, nil
	}
	s.mu.RUnlock()

	raw, found, err := s.store.Get(ctx, kv.IdxTokenKey(s.coll, field, token))
	if err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "load posting %s/%s", field, token)
	}
	var l *List
	if !found {
		l = NewList()
	} else {
		l, err = FromBytes(raw)
		if err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	s.cache.Add(key, l)
	s.mu.Unlock()
	return l, nil
}

func (s *Store) persist(ctx context.Context, field, token string, l *List) error {
	buf := l.Bytes()
	if err := s.store.Put(ctx, kv.IdxTokenKey(s.coll, field, token), buf); err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "persist posting %s/%s", field, token)
	}
	s.mu.Lock()
	s.cache.Add(cacheKey(field, token), l)
	s.mu.Unlock()
	s.recordBytes(field, token, len(buf))
	return nil
}

// recordBytes updates metrics.PostingBytes by the delta between this
// token's newly persisted size and what it was last time, so the gauge
// tracks the field's total posting footprint without rescanning every
// token on each write.
func (s *Store) recordBytes(field, token string, n int) {
	s.sizeMu.Lock()
	defer s.sizeMu.Unlock()
	if s.metrics == nil {
		return
	}
	key := cacheKey(field, token)
	prev := s.tokenBytes[key]
	s.tokenBytes[key] = n
	s.metrics.PostingBytes.WithLabelValues(s.coll, field).Add(float64(n - prev))
}

// Append adds (or replaces) seq's positions for (field, token).
func (s *Store) Append(ctx context.Context, field, token string, seq uint32, positions []uint32) error {
	l, err := s.load(ctx, field, token)
	if err != nil {
		return err
	}
	l.Append(seq, positions)
	return s.persist(ctx, field, token, l)
}

// Remove deletes seq from (field, token)'s posting, if present.
func (s *Store) Remove(ctx context.Context, field, token string, seq uint32) error {
	l, err := s.load(ctx, field, token)
	if err != nil {
		return err
	}
	if !l.Remove(seq) {
		return nil
	}
	return s.persist(ctx, field, token, l)
}

// Length returns the number of documents in (field, token)'s posting.
func (s *Store) Length(ctx context.Context, field, token string) (int, error) {
	l, err := s.load(ctx, field, token)
	if err != nil {
		return 0, err
	}
	return l.Length(), nil
}

// Iterate returns (field, token)'s matching documents as a roaring bitmap,
// the currency the search pipeline and filter evaluator intersect on.
func (s *Store) Iterate(ctx context.Context, field, token string) (*roaring.Bitmap, error) {
	l, err := s.load(ctx, field, token)
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	bm.AddMany(l.seqIDs)
	return bm, nil
}

// Positions returns the position list of seq within (field, token), or nil.
func (s *Store) Positions(ctx context.Context, field, token string, seq uint32) ([]uint32, error) {
	l, err := s.load(ctx, field, token)
	if err != nil {
		return nil, err
	}
	return l.Positions(seq), nil
}

// DropField deletes every posting under field, used by `alter: drop field`.
func (s *Store) DropField(ctx context.Context, field string) error {
	var keys [][]byte
	prefix := kv.IdxFieldPrefixKey(s.coll, field)
	if err := s.store.Scan(ctx, prefix, func(key, _ []byte) bool {
		keys = append(keys, append([]byte(nil), key...))
		return true
	}); err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "scan field %s postings", field)
	}
	if err := s.store.Batch(ctx, nil, keys); err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "drop field %s postings", field)
	}
	s.mu.Lock()
	s.cache.Purge()
	s.mu.Unlock()
	s.clearFieldBytes(field)
	return nil
}

// clearFieldBytes zeroes metrics.PostingBytes' contribution from field's
// tokens after a drop, so the gauge doesn't keep counting deleted postings.
func (s *Store) clearFieldBytes(field string) {
	s.sizeMu.Lock()
	defer s.sizeMu.Unlock()
	prefix := field + "\x00"
	var freed int
	for key, n := range s.tokenBytes {
		if strings.HasPrefix(key, prefix) {
			freed += n
			delete(s.tokenBytes, key)
		}
	}
	if s.metrics != nil && freed != 0 {
		s.metrics.PostingBytes.WithLabelValues(s.coll, field).Sub(float64(freed))
	}
}
