// Package collection implements the collection manager (§4.1-§4.7): schema
// lifecycle, the write path with per-field rollback, recovery on restart,
// and the read path (search/union/facet), wired over the kv, posting,
// numindex, geoindex, typodict, and search packages.
package collection

import (
	"context"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/docid"
	"github.com/antflydb/antfly/facet"
	"github.com/antflydb/antfly/filter"
	"github.com/antflydb/antfly/geoindex"
	"github.com/antflydb/antfly/kv"
	"github.com/antflydb/antfly/metrics"
	"github.com/antflydb/antfly/number"
	"github.com/antflydb/antfly/numindex"
	"github.com/antflydb/antfly/posting"
	"github.com/antflydb/antfly/schema"
	"github.com/antflydb/antfly/search"
	"github.com/antflydb/antfly/typodict"
)

// dictShards is the per-field dictionary shard count (§4.4's independent
// per-shard trie design, see typodict.New).
const dictShards = 8

// Collection is one live, open collection: its schema plus every derived
// index, gated by a single writer-exclusive/reader-shared mutex (§4.1) so
// concurrent searches never observe a half-applied write.
type Collection struct {
	name  string
	store kv.Store

	mu  sync.RWMutex
	sch *schema.Schema

	postings *posting.Store
	numIdx   map[string]*numindex.Index
	geoIdx   map[string]*geoindex.Index
	dict     map[string]*typodict.Dictionary

	ids      *docid.Map
	docs     map[uint32]map[string]any
	universe *roaring.Bitmap
	nextSeq  uint64

	metrics *metrics.Registry
}

// SetMetrics attaches the collectors this collection updates during its
// write and query paths (query latency, live doc count, posting bytes, and
// typo arena size). Optional; a Collection that never calls this skips all
// metric updates.
func (c *Collection) SetMetrics(m *metrics.Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
	c.postings.SetMetrics(m)
	c.recordDocStats()
}

// Create initializes a brand-new collection with the given fields and
// persists its schema.
func Create(ctx context.Context, name string, fields []schema.Field, defaultSort string, store kv.Store) (*Collection, error) {
	sch, err := schema.New(fields, defaultSort)
	if err != nil {
		return nil, err
	}
	if err := persistSchema(ctx, name, sch, store); err != nil {
		return nil, err
	}
	return open(ctx, name, sch, store)
}

// Open reloads an existing collection's schema and rebuilds every derived
// index and the live-document universe from the KV store (§4.1 recovery).
func Open(ctx context.Context, name string, store kv.Store) (*Collection, error) {
	sch, err := loadSchema(ctx, name, store)
	if err != nil {
		return nil, err
	}
	return open(ctx, name, sch, store)
}

func open(ctx context.Context, name string, sch *schema.Schema, store kv.Store) (*Collection, error) {
	postings, err := posting.NewStore(name, store, 0)
	if err != nil {
		return nil, err
	}
	c := &Collection{
		name:     name,
		store:    store,
		sch:      sch,
		postings: postings,
		numIdx:   make(map[string]*numindex.Index),
		geoIdx:   make(map[string]*geoindex.Index),
		dict:     make(map[string]*typodict.Dictionary),
		ids:      docid.New(name, store),
		docs:     make(map[uint32]map[string]any),
		universe: roaring.New(),
	}

	for _, f := range sch.Fields {
		if err := c.openFieldIndexes(ctx, f); err != nil {
			return nil, err
		}
	}

	if err := c.recoverDocuments(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// openFieldIndexes wires up the derived index an indexed field needs, and
// rebuilds its dictionary vocabulary from the posting store when textual.
func (c *Collection) openFieldIndexes(ctx context.Context, f schema.Field) error {
	switch f.Kind {
	case schema.KindInt32, schema.KindInt64, schema.KindFloat:
		idx, err := numindex.Open(ctx, c.name, f.Name, c.store)
		if err != nil {
			return err
		}
		c.numIdx[f.Name] = idx
	case schema.KindGeopoint, schema.KindGeopointArray, schema.KindGeopolygon:
		idx, err := geoindex.Open(ctx, c.name, f.Name, c.store)
		if err != nil {
			return err
		}
		c.geoIdx[f.Name] = idx
	case schema.KindString, schema.KindStringArray:
		if !f.Indexed {
			return nil
		}
		dict := typodict.New(dictShards)
		prefix := kv.IdxFieldPrefixKey(c.name, f.Name)
		if err := c.store.Scan(ctx, prefix, func(key, _ []byte) bool {
			token := string(key[len(prefix):])
			dict.Insert(token)
			return true
		}); err != nil {
			return antflyerr.Wrap(err, antflyerr.BackendFailure, "rebuild dictionary %s/%s", c.name, f.Name)
		}
		c.dict[f.Name] = dict
	}
	return nil
}

// recoverDocuments replays every stored document blob to rebuild the
// in-memory doc cache, live universe, and the next sequence id.
func (c *Collection) recoverDocuments(ctx context.Context) error {
	prefix := kv.DocPrefixKey(c.name)
	var scanErr error
	err := c.store.Scan(ctx, prefix, func(key, value []byte) bool {
		seq, perr := kv.SeqFromDocKey(c.name, key)
		if perr != nil {
			scanErr = antflyerr.Wrap(perr, antflyerr.BackendFailure, "decode doc key for %s", c.name)
			return false
		}
		doc, derr := decodeDoc(value)
		if derr != nil {
			scanErr = derr
			return false
		}
		c.docs[uint32(seq)] = doc
		c.universe.Add(uint32(seq))
		if seq >= c.nextSeq {
			c.nextSeq = seq + 1
		}
		return true
	})
	if err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "scan documents for %s", c.name)
	}
	return scanErr
}

func persistSchema(ctx context.Context, name string, sch *schema.Schema, store kv.Store) error {
	buf, err := encodeSchema(sch)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, kv.CollSchemaKey(name), buf); err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "persist schema for %s", name)
	}
	return nil
}

func loadSchema(ctx context.Context, name string, store kv.Store) (*schema.Schema, error) {
	buf, ok, err := store.Get(ctx, kv.CollSchemaKey(name))
	if err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "load schema for %s", name)
	}
	if !ok {
		return nil, antflyerr.New(antflyerr.NotFound, "collection %q not found", name)
	}
	return decodeSchema(buf)
}

// --- filter.Resolver ---

func (c *Collection) Schema() *schema.Schema { return c.sch }

func (c *Collection) StringTokens(ctx context.Context, field, token string) (*roaring.Bitmap, error) {
	return c.postings.Iterate(ctx, field, token)
}

func (c *Collection) Numeric(field string) (*numindex.Index, bool) {
	idx, ok := c.numIdx[field]
	return idx, ok
}

func (c *Collection) Geo(field string) (*geoindex.Index, bool) {
	idx, ok := c.geoIdx[field]
	return idx, ok
}

func (c *Collection) Universe() *roaring.Bitmap { return c.universe.Clone() }

var _ filter.Resolver = (*Collection)(nil)

// --- search.Backend ---

func (c *Collection) Dictionary(field string) (*typodict.Dictionary, bool) {
	d, ok := c.dict[field]
	return d, ok
}

func (c *Collection) Postings() *posting.Store { return c.postings }

func (c *Collection) Resolver() filter.Resolver { return c }

func (c *Collection) DefaultSortValue(seq uint32) (number.Number, bool) {
	if c.sch.DefaultSort == "" {
		return number.Number{}, false
	}
	return c.fieldNumber(seq, c.sch.DefaultSort)
}

func (c *Collection) ValueSource() facet.ValueSource { return (*valueSource)(c) }

var _ search.Backend = (*Collection)(nil)

// Search runs q against this collection under a reader-shared lock.
func (c *Collection) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.metrics != nil {
		timer := prometheus.NewTimer(c.metrics.QueryDuration.WithLabelValues(c.name))
		defer timer.ObserveDuration()
	}
	return search.Search(ctx, q, c)
}

// recordDocStats pushes the live document count and every string field's
// typo arena size to c.metrics. Called with c.mu held, after every write
// that changes either. A no-op when no Registry is attached.
func (c *Collection) recordDocStats() {
	if c.metrics == nil {
		return
	}
	c.metrics.IndexedDocs.WithLabelValues(c.name).Set(float64(len(c.docs)))
	for field, dict := range c.dict {
		c.metrics.TypoArenaNodes.WithLabelValues(c.name, field).Set(float64(dict.Len()))
	}
}
