// Package geoindex implements the geo index (spec §3, §4.5): a cover-cell
// index over points and polygons, CCW polygon normalization, and the
// spherical half-plane containment test, plus the radius and
// exact_filter_radius query semantics described in §4.5.
package geoindex

import (
	"context"
	"encoding/binary"
	"math"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/paulmach/orb"
	"github.com/tidwall/btree"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/kv"
)

// Index is the geo index for one (collection, field). Points and polygons
// share the cell-covering scheme but are tracked separately since polygon
// containment needs the full vertex loop, not just the covering cells.
type Index struct {
	coll  string
	field string
	store kv.Store

	mu        sync.RWMutex
	pointCell *btree.Map[uint64, *roaring.Bitmap] // cell -> seq-ids
	points    map[uint32][]orb.Point               // seq -> its stored point(s)

	polyCell *btree.Map[uint64, *roaring.Bitmap] // cell -> polygon seq-ids
	polygons map[uint32]orb.Ring                  // seq -> normalized CCW ring
}

// Open rebuilds an Index for (coll, field) from the KV store.
func Open(ctx context.Context, coll, field string, store kv.Store) (*Index, error) {
	idx := &Index{
		coll:      coll,
		field:     field,
		store:     store,
		pointCell: btree.NewMap[uint64, *roaring.Bitmap](32),
		points:    make(map[uint32][]orb.Point),
		polyCell:  btree.NewMap[uint64, *roaring.Bitmap](32),
		polygons:  make(map[uint32]orb.Ring),
	}

	var scanErr error
	err := store.Scan(ctx, kv.IdxGeoPrefixKey(coll, field), func(key, value []byte) bool {
		cell, ok := decodeCellKey(kv.IdxGeoPrefixKey(coll, field), key)
		if !ok {
			return true
		}
		bm := roaring.New()
		if _, err := bm.FromBuffer(value); err != nil {
			scanErr = antflyerr.Wrap(err, antflyerr.BackendFailure, "decode geoindex cell %s/%s", coll, field)
			return false
		}
		idx.pointCell.Set(cell, bm)
		return true
	})
	if err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "scan geoindex points %s/%s", coll, field)
	}
	if scanErr != nil {
		return nil, scanErr
	}

	err = store.Scan(ctx, kv.IdxGeoPolyPrefixKey(coll, field), func(key, value []byte) bool {
		seq, ring, err := decodePolygonBlob(value)
		if err != nil {
			scanErr = err
			return false
		}
		idx.polygons[seq] = ring
		minLat, minLng, maxLat, maxLng := ringBound(ring)
		cells, ok := bboxCells(minLat, minLng, maxLat, maxLng)
		if !ok {
			scanErr = antflyerr.New(antflyerr.ResourceExhausted, "polygon cover exceeds cell budget")
			return false
		}
		for _, c := range cells {
			idx.addPolyCell(c, seq)
		}
		return true
	})
	if err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "scan geoindex polygons %s/%s", coll, field)
	}
	return idx, scanErr
}

func decodeCellKey(prefix, key []byte) (uint64, bool) {
	if len(key) != len(prefix)+8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(prefix):]), true
}

func (idx *Index) addPolyCell(cell uint64, seq uint32) {
	bm, ok := idx.polyCell.Get(cell)
	if !ok {
		bm = roaring.New()
		idx.polyCell.Set(cell, bm)
	}
	bm.Add(seq)
}

func (idx *Index) persistCell(ctx context.Context, cell uint64, bm *roaring.Bitmap) error {
	buf, err := bm.ToBytes()
	if err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "encode geoindex cell %s/%s", idx.coll, idx.field)
	}
	if err := idx.store.Put(ctx, kv.IdxGeoCellKey(idx.coll, idx.field, cell), buf); err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "persist geoindex cell %s/%s", idx.coll, idx.field)
	}
	return nil
}

// IndexPoint adds (lat, lng) as one of seq's stored points. Geopoint
// fields call this once per document; geopoint-array fields call it once
// per array element, all against the same seq.
func (idx *Index) IndexPoint(ctx context.Context, seq uint32, lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return antflyerr.New(antflyerr.InvalidFilter, "point coordinate is NaN")
	}
	cell := cellID(cellCoord(lat, lng))

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.points[seq] = append(idx.points[seq], orb.Point{lng, lat})
	bm, ok := idx.pointCell.Get(cell)
	if !ok {
		bm = roaring.New()
	}
	bm.Add(seq)
	idx.pointCell.Set(cell, bm)
	return idx.persistCell(ctx, cell, bm)
}

// RemovePoint removes seq from its point cells entirely (called on delete
// or upsert re-projection; geopoint-array fields drop every stored point
// for seq together).
func (idx *Index) RemovePoint(ctx context.Context, seq uint32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	pts, ok := idx.points[seq]
	if !ok {
		return nil
	}
	delete(idx.points, seq)
	for _, p := range pts {
		cell := cellID(cellCoord(p.Y(), p.X()))
		bm, ok := idx.pointCell.Get(cell)
		if !ok {
			continue
		}
		bm.Remove(seq)
		if bm.IsEmpty() {
			idx.pointCell.Delete(cell)
			if err := idx.store.Delete(ctx, kv.IdxGeoCellKey(idx.coll, idx.field, cell)); err != nil {
				return antflyerr.Wrap(err, antflyerr.BackendFailure, "drop geoindex cell %s/%s", idx.coll, idx.field)
			}
			continue
		}
		idx.pointCell.Set(cell, bm)
		if err := idx.persistCell(ctx, cell, bm); err != nil {
			return err
		}
	}
	return nil
}

// IndexPolygon validates and normalizes verts, then stores the ring and
// its covering cells under seq.
func (idx *Index) IndexPolygon(ctx context.Context, seq uint32, verts []orb.Point) (orb.Ring, error) {
	ring, err := NormalizeRing(verts)
	if err != nil {
		return nil, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.polygons[seq] = ring
	minLat, minLng, maxLat, maxLng := ringBound(ring)
	cells, ok := bboxCells(minLat, minLng, maxLat, maxLng)
	if !ok {
		return nil, antflyerr.New(antflyerr.ResourceExhausted, "polygon cover exceeds cell budget")
	}
	for _, c := range cells {
		idx.addPolyCell(c, seq)
		bm, _ := idx.polyCell.Get(c)
		if err := idx.persistCell(ctx, c, bm); err != nil {
			return nil, err
		}
	}
	if err := idx.store.Put(ctx, kv.IdxGeoPolyKey(idx.coll, idx.field, uint64(seq)), encodePolygonBlob(seq, ring)); err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "persist geoindex polygon %s/%s", idx.coll, idx.field)
	}
	return ring, nil
}

// RemovePolygon deletes seq's ring and its covering cells.
func (idx *Index) RemovePolygon(ctx context.Context, seq uint32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ring, ok := idx.polygons[seq]
	if !ok {
		return nil
	}
	delete(idx.polygons, seq)
	minLat, minLng, maxLat, maxLng := ringBound(ring)
	cells, ok := bboxCells(minLat, minLng, maxLat, maxLng)
	if ok {
		for _, c := range cells {
			bm, ok := idx.polyCell.Get(c)
			if !ok {
				continue
			}
			bm.Remove(seq)
			if bm.IsEmpty() {
				idx.polyCell.Delete(c)
				_ = idx.store.Delete(ctx, kv.IdxGeoCellKey(idx.coll, idx.field, c))
				continue
			}
			idx.polyCell.Set(c, bm)
			_ = idx.persistCell(ctx, c, bm)
		}
	}
	if err := idx.store.Delete(ctx, kv.IdxGeoPolyKey(idx.coll, idx.field, uint64(seq))); err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "drop geoindex polygon %s/%s", idx.coll, idx.field)
	}
	return nil
}

// Radius returns the seq-ids holding at least one point within radiusKm of
// (lat, lng). exactFilterRadiusKm (0 if unset) enlarges the candidate cell
// net before the exact per-point check, per §4.5's geopoint-array rule.
func (idx *Index) Radius(lat, lng, radiusKm, exactFilterRadiusKm float64) (*roaring.Bitmap, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return nil, antflyerr.New(antflyerr.InvalidFilter, "point coordinate is NaN")
	}
	coverRadius := radiusKm
	if exactFilterRadiusKm > coverRadius {
		coverRadius = exactFilterRadiusKm
	}
	dLat, dLng := degreesForRadius(lat, coverRadius)
	cells, ok := bboxCells(lat-dLat, lng-dLng, lat+dLat, lng+dLng)
	if !ok {
		return nil, antflyerr.New(antflyerr.ResourceExhausted, "radius query exceeds cell budget")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	candidates := roaring.New()
	for _, c := range cells {
		if bm, ok := idx.pointCell.Get(c); ok {
			candidates.Or(bm)
		}
	}

	out := roaring.New()
	it := candidates.Iterator()
	for it.HasNext() {
		seq := it.Next()
		for _, p := range idx.points[seq] {
			if haversineKm(lat, lng, p.Y(), p.X()) <= radiusKm {
				out.Add(seq)
				break
			}
		}
	}
	return out, nil
}

// Within returns every indexed seq-id (point field) with at least one
// stored point inside ring, the ad hoc query polygon form of §4.5's
// "Polygon: field:([lat1,lng1, lat2,lng2, …])" grammar applied to a
// geopoint/geopoint-array field.
func (idx *Index) Within(ring orb.Ring) (*roaring.Bitmap, error) {
	minLat, minLng, maxLat, maxLng := ringBound(ring)
	cells, ok := bboxCells(minLat, minLng, maxLat, maxLng)
	if !ok {
		return nil, antflyerr.New(antflyerr.ResourceExhausted, "polygon query cover exceeds cell budget")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	candidates := roaring.New()
	for _, c := range cells {
		if bm, ok := idx.pointCell.Get(c); ok {
			candidates.Or(bm)
		}
	}
	out := roaring.New()
	it := candidates.Iterator()
	for it.HasNext() {
		seq := it.Next()
		for _, p := range idx.points[seq] {
			if ringContainsPoint(ring, p.Y(), p.X()) {
				out.Add(seq)
				break
			}
		}
	}
	return out, nil
}

// PolygonContains returns every polygon seq-id whose ring contains
// (lat, lng) under the spherical half-plane test.
func (idx *Index) PolygonContains(lat, lng float64) (*roaring.Bitmap, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return nil, antflyerr.New(antflyerr.InvalidFilter, "point coordinate is NaN")
	}
	cell := cellID(cellCoord(lat, lng))

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	bm, ok := idx.polyCell.Get(cell)
	out := roaring.New()
	if !ok {
		return out, nil
	}
	it := bm.Iterator()
	for it.HasNext() {
		seq := it.Next()
		ring, ok := idx.polygons[seq]
		if !ok {
			continue
		}
		if ringContainsPoint(ring, lat, lng) {
			out.Add(seq)
		}
	}
	return out, nil
}

// encodePolygonBlob serializes seq and ring as
// [version][seq][n][lat,lng]*n, each number a big-endian float64/uint32.
func encodePolygonBlob(seq uint32, ring orb.Ring) []byte {
	buf := make([]byte, 0, 1+4+4+16*len(ring))
	buf = append(buf, kv.BlobSchemaVersion)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], seq)
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], uint32(len(ring)))
	buf = append(buf, tmp[:]...)
	for _, v := range ring {
		var f [8]byte
		binary.BigEndian.PutUint64(f[:], math.Float64bits(v.Y()))
		buf = append(buf, f[:]...)
		binary.BigEndian.PutUint64(f[:], math.Float64bits(v.X()))
		buf = append(buf, f[:]...)
	}
	return buf
}

func decodePolygonBlob(buf []byte) (uint32, orb.Ring, error) {
	if len(buf) < 9 {
		return 0, nil, antflyerr.New(antflyerr.BackendFailure, "geoindex polygon blob truncated")
	}
	seq := binary.BigEndian.Uint32(buf[1:5])
	n := binary.BigEndian.Uint32(buf[5:9])
	off := 9
	ring := make(orb.Ring, 0, n)
	for i := uint32(0); i < n; i++ {
		if off+16 > len(buf) {
			return 0, nil, antflyerr.New(antflyerr.BackendFailure, "geoindex polygon blob truncated")
		}
		lat := math.Float64frombits(binary.BigEndian.Uint64(buf[off : off+8]))
		lng := math.Float64frombits(binary.BigEndian.Uint64(buf[off+8 : off+16]))
		ring = append(ring, orb.Point{lng, lat})
		off += 16
	}
	return seq, ring, nil
}
