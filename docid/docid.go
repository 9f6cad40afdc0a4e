// Package docid maps between a document's user-visible external id (a
// string, auto-generated with a UUID when the caller omits one) and the
// monotonic internal sequence id every index and posting list is actually
// keyed by (§4.1).
package docid

import (
	"context"
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/kv"
)

// Map persists the two-way id <-> seq mapping for one collection.
type Map struct {
	coll  string
	store kv.Store
}

func New(coll string, store kv.Store) *Map {
	return &Map{coll: coll, store: store}
}

func idKey(coll, id string) []byte   { return []byte("docid/" + coll + "/id/" + id) }
func seqKey(coll string, seq uint64) []byte {
	return []byte("docid/" + coll + "/seq/" + uintToString(seq))
}

// Generate returns id unchanged if non-empty, otherwise a fresh UUIDv4
// string (§4.1's auto-id behavior).
func Generate(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// Bind records the (id, seq) pair. Returns antflyerr.Conflict if id is
// already bound to a different seq.
func (m *Map) Bind(ctx context.Context, id string, seq uint64) error {
	if existing, ok, err := m.Seq(ctx, id); err != nil {
		return err
	} else if ok && existing != seq {
		return antflyerr.New(antflyerr.Conflict, "document id %q already exists", id)
	}
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	puts := map[string][]byte{
		string(idKey(m.coll, id)):   seqBuf[:],
		string(seqKey(m.coll, seq)): []byte(id),
	}
	return m.store.Batch(ctx, puts, nil)
}

// Unbind removes both directions of the mapping.
func (m *Map) Unbind(ctx context.Context, id string, seq uint64) error {
	return m.store.Batch(ctx, nil, [][]byte{idKey(m.coll, id), seqKey(m.coll, seq)})
}

// Seq looks up the seq id bound to an external id.
func (m *Map) Seq(ctx context.Context, id string) (uint64, bool, error) {
	v, ok, err := m.store.Get(ctx, idKey(m.coll, id))
	if err != nil || !ok || len(v) != 8 {
		return 0, false, err
	}
	return binary.BigEndian.Uint64(v), true, nil
}

// IDForSeq returns the external id bound to seq.
func (m *Map) IDForSeq(ctx context.Context, seq uint64) (string, bool, error) {
	v, ok, err := m.store.Get(ctx, seqKey(m.coll, seq))
	if err != nil || !ok {
		return "", false, err
	}
	return string(v), true, nil
}

func uintToString(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
