// Package numindex implements the numeric/range index (spec §3, §4
// "Numeric/range index"): an ordered map from numeric value to the set of
// seq-ids holding that value, one per numeric field. Ordering is kept in an
// in-memory B-tree (grounded on the teacher's direct
// github.com/google/btree dependency) and mirrored to the KV store so a
// restart can rebuild the tree from a prefix scan without replaying the
// whole document log.
package numindex

import (
	"context"
	"math"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/btree"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/kv"
	"github.com/antflydb/antfly/number"
)

type entry struct {
	key    []byte // sortable encoding, also the KV key suffix
	value  number.Number
	bitmap *roaring.Bitmap
}

func less(a, b entry) bool {
	for i := 0; i < len(a.key) && i < len(b.key); i++ {
		if a.key[i] != b.key[i] {
			return a.key[i] < b.key[i]
		}
	}
	return len(a.key) < len(b.key)
}

// Index is the numeric index for one (collection, field).
type Index struct {
	coll  string
	field string
	store kv.Store

	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

// Open rebuilds an Index for (coll, field) from the KV store's persisted
// entries, restoring both the invariant min/max (§3) and the full
// value -> seq-id-set map.
func Open(ctx context.Context, coll, field string, store kv.Store) (*Index, error) {
	idx := &Index{
		coll:  coll,
		field: field,
		store: store,
		tree:  btree.NewG(32, less),
	}
	prefix := kv.IdxNumPrefixKey(coll, field)
	var scanErr error
	err := store.Scan(ctx, prefix, func(key, value []byte) bool {
		sortKey := append([]byte(nil), key[len(prefix):]...)
		bm := roaring.New()
		if _, err := bm.FromBuffer(value); err != nil {
			scanErr = antflyerr.Wrap(err, antflyerr.BackendFailure, "decode numindex entry %s/%s", coll, field)
			return false
		}
		idx.tree.ReplaceOrInsert(entry{key: sortKey, value: decodeKey(sortKey), bitmap: bm})
		return true
	})
	if err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "scan numindex %s/%s", coll, field)
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return idx, nil
}

// sortableKey produces a byte encoding of v (promoted to float64, per the
// tagged-number total order) that sorts identically to numeric order.
func sortableKey(v number.Number) []byte {
	f := v.Float64()
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return []byte{
		byte(bits >> 56), byte(bits >> 48), byte(bits >> 40), byte(bits >> 32),
		byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits),
	}
}

func decodeKey(k []byte) number.Number {
	bits := uint64(k[0])<<56 | uint64(k[1])<<48 | uint64(k[2])<<40 | uint64(k[3])<<32 |
		uint64(k[4])<<24 | uint64(k[5])<<16 | uint64(k[6])<<8 | uint64(k[7])
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return number.Float(math.Float64frombits(bits))
}

func (idx *Index) persist(ctx context.Context, e entry) error {
	buf, err := e.bitmap.ToBytes()
	if err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "encode numindex entry %s/%s", idx.coll, idx.field)
	}
	if err := idx.store.Put(ctx, kv.IdxNumKey(idx.coll, idx.field, e.key), buf); err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "persist numindex entry %s/%s", idx.coll, idx.field)
	}
	return nil
}

// Insert records that seq holds value.
func (idx *Index) Insert(ctx context.Context, value number.Number, seq uint32) error {
	key := sortableKey(value)
	idx.mu.Lock()
	defer idx.mu.Unlock()

	e, ok := idx.tree.Get(entry{key: key})
	if !ok {
		e = entry{key: key, value: value, bitmap: roaring.New()}
	}
	e.bitmap.Add(seq)
	idx.tree.ReplaceOrInsert(e)
	return idx.persist(ctx, e)
}

// Remove drops seq from value's entry, deleting the entry entirely once
// empty (keeping Min/Max accurate per §3's invariant).
func (idx *Index) Remove(ctx context.Context, value number.Number, seq uint32) error {
	key := sortableKey(value)
	idx.mu.Lock()
	defer idx.mu.Unlock()

	e, ok := idx.tree.Get(entry{key: key})
	if !ok {
		return nil
	}
	e.bitmap.Remove(seq)
	if e.bitmap.IsEmpty() {
		idx.tree.Delete(e)
		if err := idx.store.Delete(ctx, kv.IdxNumKey(idx.coll, idx.field, key)); err != nil {
			return antflyerr.Wrap(err, antflyerr.BackendFailure, "drop numindex entry %s/%s", idx.coll, idx.field)
		}
		return nil
	}
	idx.tree.ReplaceOrInsert(e)
	return idx.persist(ctx, e)
}

// Min returns the smallest live value, if any.
func (idx *Index) Min() (number.Number, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.tree.Min()
	if !ok {
		return number.Number{}, false
	}
	return e.value, true
}

// Max returns the largest live value, if any.
func (idx *Index) Max() (number.Number, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.tree.Max()
	if !ok {
		return number.Number{}, false
	}
	return e.value, true
}

// Eq returns the seq-ids whose value equals v.
func (idx *Index) Eq(v number.Number) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.tree.Get(entry{key: sortableKey(v)})
	if !ok {
		return roaring.New()
	}
	return e.bitmap.Clone()
}

// Range returns the union of seq-ids whose value falls in [min, max],
// honoring open/closed bounds. Either bound may be nil for unbounded.
func (idx *Index) Range(min, max *number.Number, minInclusive, maxInclusive bool) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := roaring.New()
	visit := func(e entry) bool {
		if min != nil {
			c := e.value.Compare(*min)
			if c < 0 || (c == 0 && !minInclusive) {
				return true
			}
		}
		if max != nil {
			c := e.value.Compare(*max)
			if c > 0 || (c == 0 && !maxInclusive) {
				return false
			}
		}
		out.Or(e.bitmap)
		return true
	}

	if min == nil {
		idx.tree.Ascend(visit)
		return out
	}
	idx.tree.AscendGreaterOrEqual(entry{key: sortableKey(*min)}, visit)
	return out
}

// Ne returns every seq-id whose value differs from v (used by `:!=`).
func (idx *Index) Ne(v number.Number) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := roaring.New()
	idx.tree.Ascend(func(e entry) bool {
		if !e.value.Equal(v) {
			out.Or(e.bitmap)
		}
		return true
	})
	return out
}
