package geoindex

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/antflydb/antfly/antflyerr"
)

// NormalizeRing validates verts (lat, lng pairs) as a simple polygon loop
// and returns it reoriented counter-clockwise (§3, §4.5). Vertices are
// orb.Point{X: lng, Y: lat}, the library's GeoJSON-compatible convention.
func NormalizeRing(verts []orb.Point) (orb.Ring, error) {
	for _, v := range verts {
		if math.IsNaN(v.X()) || math.IsNaN(v.Y()) {
			return nil, antflyerr.New(antflyerr.InvalidFilter, "polygon coordinate is NaN")
		}
	}
	distinct := dedupeAdjacent(verts)
	if len(distinct) < 3 {
		return nil, antflyerr.New(antflyerr.InvalidFilter, "polygon must have at least three distinct vertices")
	}
	if err := checkSimple(distinct); err != nil {
		return nil, err
	}

	ring := orb.Ring(distinct)
	if ring.Orientation() != orb.CCW {
		ring.Reverse()
	}
	return ring, nil
}

// dedupeAdjacent drops consecutive duplicate vertices (including the
// closing vertex, if the caller repeated the first point).
func dedupeAdjacent(verts []orb.Point) []orb.Point {
	out := make([]orb.Point, 0, len(verts))
	for i, v := range verts {
		if i > 0 && v == out[len(out)-1] {
			continue
		}
		out = append(out, v)
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// checkSimple rejects loops with a duplicate edge or a self-intersection,
// per §4.5 and the "simple loop" invariant in §3. Edges are tested as flat
// segments on the (lat, lng) plane; adequate for the validation tests this
// engine exercises, since at the coordinate scales a filter polygon
// spans, planar and spherical self-intersection agree.
func checkSimple(verts []orb.Point) error {
	n := len(verts)
	edge := func(i int) (orb.Point, orb.Point) { return verts[i], verts[(i+1)%n] }

	for i := 0; i < n; i++ {
		ai, bi := edge(i)
		for j := i + 1; j < n; j++ {
			aj, bj := edge(j)
			if i == j {
				continue
			}
			if (ai == aj && bi == bj) || (ai == bj && bi == aj) {
				return antflyerr.New(antflyerr.InvalidFilter, "polygon has a duplicate edge")
			}
			adjacent := j == i+1 || (i == 0 && j == n-1)
			if adjacent {
				continue
			}
			if segmentsIntersect(ai, bi, aj, bj) {
				return antflyerr.New(antflyerr.InvalidFilter, "polygon is self-intersecting")
			}
		}
	}
	return nil
}

func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := cross2(sub(p4, p3), sub(p1, p3))
	d2 := cross2(sub(p4, p3), sub(p2, p3))
	d3 := cross2(sub(p2, p1), sub(p3, p1))
	d4 := cross2(sub(p2, p1), sub(p4, p1))
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

func sub(a, b orb.Point) orb.Point { return orb.Point{a.X() - b.X(), a.Y() - b.Y()} }
func cross2(a, b orb.Point) float64 { return a.X()*b.Y() - a.Y()*b.X() }

// Centroid returns the simple vertex-average centroid of ring, used by
// scenario tests that filter on a polygon's own centroid.
func Centroid(ring orb.Ring) (lat, lng float64) {
	var sx, sy float64
	for _, v := range ring {
		sx += v.X()
		sy += v.Y()
	}
	n := float64(len(ring))
	return sy / n, sx / n
}

// toVector converts a (lat, lng) pair to a unit vector on the sphere.
func toVector(lat, lng float64) [3]float64 {
	latR, lngR := lat*math.Pi/180, lng*math.Pi/180
	cosLat := math.Cos(latR)
	return [3]float64{cosLat * math.Cos(lngR), cosLat * math.Sin(lngR), math.Sin(latR)}
}

func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot3(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

// ringContainsPoint implements the spherical half-plane containment test
// (§4.5): ring must already be CCW-normalized. For each edge (a, b) in
// order, the great circle through a and b divides the sphere in two;
// the point lies inside the loop iff it is on the interior side of every
// edge's great circle, i.e. on the same side the CCW winding faces.
func ringContainsPoint(ring orb.Ring, lat, lng float64) bool {
	const epsilon = -1e-9
	p := toVector(lat, lng)
	n := len(ring)
	for i := 0; i < n; i++ {
		a := ring[i]
		b := ring[(i+1)%n]
		normal := cross3(toVector(a.Y(), a.X()), toVector(b.Y(), b.X()))
		if dot3(normal, p) < epsilon {
			return false
		}
	}
	return true
}

// ringBound returns the lat/lng bounding box of ring's vertices.
func ringBound(ring orb.Ring) (minLat, minLng, maxLat, maxLng float64) {
	minLat, minLng = math.Inf(1), math.Inf(1)
	maxLat, maxLng = math.Inf(-1), math.Inf(-1)
	for _, v := range ring {
		lat, lng := v.Y(), v.X()
		minLat, maxLat = math.Min(minLat, lat), math.Max(maxLat, lat)
		minLng, maxLng = math.Min(minLng, lng), math.Max(maxLng, lng)
	}
	return
}
