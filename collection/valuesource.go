package collection

import (
	"github.com/antflydb/antfly/facet"
	"github.com/antflydb/antfly/geoindex"
	"github.com/antflydb/antfly/number"
	"github.com/antflydb/antfly/schema"
)

// valueSource adapts *Collection to facet.ValueSource; it shares
// Collection's exact memory layout so the conversion in ValueSource is a
// zero-cost reinterpretation, not a copy.
type valueSource Collection

var _ facet.ValueSource = (*valueSource)(nil)

func (c *Collection) fieldNumber(seq uint32, field string) (number.Number, bool) {
	doc, ok := c.docs[seq]
	if !ok {
		return number.Number{}, false
	}
	raw, present := doc[field]
	if !present {
		return number.Number{}, false
	}
	f, ok := asFloat64(raw)
	if !ok {
		return number.Number{}, false
	}
	return number.Float(f), true
}

func (vs *valueSource) Value(seq uint32, field string) (number.Number, bool) {
	return (*Collection)(vs).fieldNumber(seq, field)
}

func (vs *valueSource) GeoDistance(seq uint32, field string, lat, lng float64) (float64, bool) {
	c := (*Collection)(vs)
	doc, ok := c.docs[seq]
	if !ok {
		return 0, false
	}
	raw, present := doc[field]
	if !present {
		return 0, false
	}

	f, ok := c.sch.Field(field)
	if !ok {
		return 0, false
	}
	switch f.Kind {
	case schema.KindGeopoint:
		plat, plng, ok := asPoint(raw)
		if !ok {
			return 0, false
		}
		return geoindex.HaversineKm(lat, lng, plat, plng), true
	case schema.KindGeopointArray:
		pts, ok := asPoints(raw)
		if !ok || len(pts) == 0 {
			return 0, false
		}
		best := geoindex.HaversineKm(lat, lng, pts[0][0], pts[0][1])
		for _, p := range pts[1:] {
			if d := geoindex.HaversineKm(lat, lng, p[0], p[1]); d < best {
				best = d
			}
		}
		return best, true
	default:
		return 0, false
	}
}

func (vs *valueSource) FacetValues(seq uint32, field string) []string {
	c := (*Collection)(vs)
	doc, ok := c.docs[seq]
	if !ok {
		return nil
	}
	raw, present := doc[field]
	if !present {
		return nil
	}
	if s, ok := asString(raw); ok {
		return []string{s}
	}
	if arr, ok := asStringArray(raw); ok {
		return arr
	}
	if f, ok := asFloat64(raw); ok {
		return []string{number.Float(f).String()}
	}
	if b, ok := asBool(raw); ok {
		if b {
			return []string{"true"}
		}
		return []string{"false"}
	}
	return nil
}
