package filter

import (
	"context"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/paulmach/orb"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/geoindex"
	"github.com/antflydb/antfly/number"
	"github.com/antflydb/antfly/numindex"
	"github.com/antflydb/antfly/schema"
)

// Resolver supplies the per-field indexes an Evaluate call needs. The
// collection manager implements it by wiring a query's collection state
// (schema, posting store, numeric/geo indexes, live-document universe).
type Resolver interface {
	Schema() *schema.Schema
	// StringTokens returns the seq-ids whose field contains token. Evaluate
	// passes the filter literal as written (numbers formatted with 'g'); it
	// does not run the literal through the field's tokenizer.
	StringTokens(ctx context.Context, field, token string) (*roaring.Bitmap, error)
	Numeric(field string) (*numindex.Index, bool)
	Geo(field string) (*geoindex.Index, bool)
	// Universe is every live seq-id, used to negate `:!=` clauses.
	Universe() *roaring.Bitmap
}

// Evaluate compiles expr against r into the matching seq-id bitmap.
func Evaluate(ctx context.Context, expr Expr, r Resolver) (*roaring.Bitmap, error) {
	switch e := expr.(type) {
	case And:
		return evalAnd(ctx, e, r)
	case Or:
		return evalOr(ctx, e, r)
	case Compare:
		return evalCompare(ctx, e, r)
	case GeoCompare:
		return evalGeoCompare(ctx, e, r)
	default:
		return nil, antflyerr.New(antflyerr.InvalidFilter, "unrecognized filter expression")
	}
}

func evalAnd(ctx context.Context, e And, r Resolver) (*roaring.Bitmap, error) {
	var out *roaring.Bitmap
	for _, c := range e.Children {
		bm, err := Evaluate(ctx, c, r)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = bm
			continue
		}
		out.And(bm)
	}
	if out == nil {
		out = roaring.New()
	}
	return out, nil
}

func evalOr(ctx context.Context, e Or, r Resolver) (*roaring.Bitmap, error) {
	out := roaring.New()
	for _, c := range e.Children {
		bm, err := Evaluate(ctx, c, r)
		if err != nil {
			return nil, err
		}
		out.Or(bm)
	}
	return out, nil
}

func evalCompare(ctx context.Context, e Compare, r Resolver) (*roaring.Bitmap, error) {
	f, ok := r.Schema().Field(e.Field)
	if !ok {
		return nil, antflyerr.New(antflyerr.NotFound, "filter field %q not found", e.Field)
	}

	switch f.Kind {
	case schema.KindInt32, schema.KindInt64, schema.KindFloat:
		return evalNumeric(e, r)
	default:
		return evalString(ctx, e, r)
	}
}

func evalNumeric(e Compare, r Resolver) (*roaring.Bitmap, error) {
	idx, ok := r.Numeric(e.Field)
	if !ok {
		return roaring.New(), nil
	}
	nums := make([]number.Number, len(e.Values))
	for i, v := range e.Values {
		n, err := toNumber(e.Field, v)
		if err != nil {
			return nil, err
		}
		nums[i] = n
	}

	switch e.Op {
	case OpEq:
		out := roaring.New()
		for _, n := range nums {
			out.Or(idx.Eq(n))
		}
		return out, nil
	case OpNe:
		return idx.Ne(nums[0]), nil
	case OpLt:
		return idx.Range(nil, &nums[0], false, false), nil
	case OpLe:
		return idx.Range(nil, &nums[0], false, true), nil
	case OpGt:
		return idx.Range(&nums[0], nil, false, false), nil
	case OpGe:
		return idx.Range(&nums[0], nil, true, false), nil
	default:
		return roaring.New(), nil
	}
}

func toNumber(field string, v Value) (number.Number, error) {
	if v.IsNum {
		return number.Float(v.Num), nil
	}
	if n, err := strconv.ParseInt(v.Str, 10, 64); err == nil {
		return number.Int(n), nil
	}
	if f, err := strconv.ParseFloat(v.Str, 64); err == nil {
		return number.Float(f), nil
	}
	return number.Number{}, antflyerr.New(antflyerr.InvalidFilter, "Value of filter field %s: %q is not numeric", field, v.Str)
}

func evalString(ctx context.Context, e Compare, r Resolver) (*roaring.Bitmap, error) {
	out := roaring.New()
	for _, v := range e.Values {
		text := v.Str
		if v.IsNum {
			text = strconv.FormatFloat(v.Num, 'g', -1, 64)
		}
		bm, err := r.StringTokens(ctx, e.Field, text)
		if err != nil {
			return nil, err
		}
		out.Or(bm)
	}
	if e.Op == OpNe {
		universe := r.Universe().Clone()
		universe.AndNot(out)
		return universe, nil
	}
	return out, nil
}

func evalGeoCompare(ctx context.Context, e GeoCompare, r Resolver) (*roaring.Bitmap, error) {
	f, ok := r.Schema().Field(e.Field)
	if !ok {
		return nil, antflyerr.New(antflyerr.NotFound, "filter field %q not found", e.Field)
	}
	idx, ok := r.Geo(e.Field)
	if !ok {
		return roaring.New(), nil
	}

	out := roaring.New()
	for _, pred := range e.Predicates {
		bm, err := evalGeoPredicate(f, idx, e.Field, pred)
		if err != nil {
			return nil, err
		}
		out.Or(bm)
	}
	return out, nil
}

func evalGeoPredicate(f schema.Field, idx *geoindex.Index, field string, pred GeoPredicate) (*roaring.Bitmap, error) {
	switch pred.Shape {
	case GeoRadius:
		efr := pred.ExactFilterRadiusKm
		if efr < 0 {
			efr = defaultExactFilterRadiusKm(f.Kind)
		}
		return idx.Radius(pred.Lat, pred.Lng, pred.RadiusKm, efr)
	case GeoPoint:
		if f.Kind == schema.KindGeopolygon {
			return idx.PolygonContains(pred.Lat, pred.Lng)
		}
		return nil, geoGrammarError(field)
	case GeoPolygon:
		ring, err := verticesToRing(pred.Vertices)
		if err != nil {
			return nil, err
		}
		return idx.Within(ring)
	default:
		return roaring.New(), nil
	}
}

// defaultExactFilterRadiusKm resolves §9's Open Question: 10km for
// geopoint-array fields when exact_filter_radius is unset, 0 (exact check
// against the single stored point, no cell expansion) for scalar fields.
func defaultExactFilterRadiusKm(kind schema.Kind) float64 {
	if kind == schema.KindGeopointArray {
		return 10
	}
	return 0
}

func verticesToRing(flat []float64) (orb.Ring, error) {
	pts := make([]orb.Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		pts = append(pts, orb.Point{flat[i+1], flat[i]}) // {lng, lat}
	}
	return geoindex.NormalizeRing(pts)
}
