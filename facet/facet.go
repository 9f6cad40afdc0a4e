// Package facet implements the sort/facet aggregator (spec §4.7): applying
// a sort spec (including geo-distance sort) to a candidate set, and
// computing per-value facet counts restricted to that set.
package facet

import (
	"sort"

	"github.com/antflydb/antfly/number"
)

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// GeoSort, if set on a SortField, sorts by great-circle distance to
// (Lat, Lng) instead of by the field's own value.
type GeoSort struct {
	Lat, Lng float64
}

// SortField is one (field, direction) entry in a sort spec, or a
// geo-distance sort when Geo is non-nil (§4.7).
type SortField struct {
	Field     string
	Direction Direction
	Geo       *GeoSort
}

// SortSpec is an ordered list of SortFields; earlier entries take priority.
type SortSpec []SortField

// ValueSource supplies per-document values for sorting and faceting. The
// collection manager implements it over a collection's stored documents
// and geo index.
type ValueSource interface {
	// Value returns field's sort value for seq, and whether it is defined.
	Value(seq uint32, field string) (number.Number, bool)
	// GeoDistance returns the great-circle distance in km from seq's
	// stored point(s) in field to (lat, lng); the minimum over multiple
	// stored points for array fields.
	GeoDistance(seq uint32, field string, lat, lng float64) (float64, bool)
	// FacetValues returns field's faceted string values for seq.
	FacetValues(seq uint32, field string) []string
}

// Sort orders seqs per spec, per document spec entry in priority order;
// undefined values sort last under ASC, first under DESC (§4.7). Ties
// through every spec entry break by ascending seq-id, the same final
// tie-breaker the default ranking order uses (§4.6 step f).
func Sort(seqs []uint32, spec SortSpec, src ValueSource) []uint32 {
	out := append([]uint32(nil), seqs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		for _, f := range spec {
			cmp, ok := compareField(a, b, f, src)
			if ok {
				return cmp < 0
			}
		}
		return a < b
	})
	return out
}

// compareField returns (-1/0/1, true) if a and b differ under f, or
// (_, false) if they tie and the caller should fall through to the next
// spec entry.
func compareField(a, b uint32, f SortField, src ValueSource) (int, bool) {
	if f.Geo != nil {
		da, aok := src.GeoDistance(a, f.Field, f.Geo.Lat, f.Geo.Lng)
		db, bok := src.GeoDistance(b, f.Field, f.Geo.Lat, f.Geo.Lng)
		return compareDefined(aok, bok, f.Direction, func() int {
			c := 0
			switch {
			case da < db:
				c = -1
			case da > db:
				c = 1
			}
			return direct(c, f.Direction)
		})
	}

	va, aok := src.Value(a, f.Field)
	vb, bok := src.Value(b, f.Field)
	return compareDefined(aok, bok, f.Direction, func() int {
		return direct(va.Compare(vb), f.Direction)
	})
}

// compareDefined applies §4.7's undefined-value ordering: undefined sorts
// last under ASC, first under DESC. cmp is only invoked when both values
// are defined.
func compareDefined(aDefined, bDefined bool, dir Direction, cmp func() int) (int, bool) {
	if aDefined && bDefined {
		c := cmp()
		if c == 0 {
			return 0, false
		}
		return c, true
	}
	if aDefined == bDefined {
		return 0, false
	}
	aMissingWins := dir == Desc // missing sorts first under DESC
	if !aDefined {
		if aMissingWins {
			return -1, true
		}
		return 1, true
	}
	if aMissingWins {
		return 1, true
	}
	return -1, true
}

func direct(cmp int, dir Direction) int {
	if dir == Desc {
		return -cmp
	}
	return cmp
}

// Value is one facet bucket: a distinct field value and its count within
// the candidate set.
type Value struct {
	Value string
	Count int
}

// Count aggregates field's facet values across seqs, restricted to the
// filter-surviving candidate set, in descending count order with stable
// tie-breaking by value (§4.7).
func Count(seqs []uint32, field string, src ValueSource) []Value {
	counts := make(map[string]int)
	for _, seq := range seqs {
		for _, v := range src.FacetValues(seq, field) {
			counts[v]++
		}
	}
	out := make([]Value, 0, len(counts))
	for v, c := range counts {
		out = append(out, Value{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
