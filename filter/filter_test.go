package filter

import (
	"context"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/antflydb/antfly/geoindex"
	"github.com/antflydb/antfly/kv/memkv"
	"github.com/antflydb/antfly/number"
	"github.com/antflydb/antfly/numindex"
	"github.com/antflydb/antfly/schema"
)

// fakeResolver is a minimal in-memory Resolver for filter evaluation tests,
// independent of the collection manager.
type fakeResolver struct {
	sch      *schema.Schema
	tokens   map[string]*roaring.Bitmap // field\x00token -> seq-ids
	numeric  map[string]*numindex.Index
	geo      map[string]*geoindex.Index
	universe *roaring.Bitmap
}

func newFakeResolver(t *testing.T, fields []schema.Field) *fakeResolver {
	sch, err := schema.New(fields, "")
	require.NoError(t, err)
	return &fakeResolver{
		sch:      sch,
		tokens:   make(map[string]*roaring.Bitmap),
		numeric:  make(map[string]*numindex.Index),
		geo:      make(map[string]*geoindex.Index),
		universe: roaring.New(),
	}
}

func (r *fakeResolver) index(field, token string, seqs ...uint32) {
	bm := roaring.New()
	bm.AddMany(seqs)
	r.tokens[field+"\x00"+token] = bm
	for _, s := range seqs {
		r.universe.Add(s)
	}
}

func (r *fakeResolver) Schema() *schema.Schema { return r.sch }

func (r *fakeResolver) StringTokens(_ context.Context, field, token string) (*roaring.Bitmap, error) {
	if bm, ok := r.tokens[field+"\x00"+token]; ok {
		return bm.Clone(), nil
	}
	return roaring.New(), nil
}

func (r *fakeResolver) Numeric(field string) (*numindex.Index, bool) {
	idx, ok := r.numeric[field]
	return idx, ok
}

func (r *fakeResolver) Geo(field string) (*geoindex.Index, bool) {
	idx, ok := r.geo[field]
	return idx, ok
}

func (r *fakeResolver) Universe() *roaring.Bitmap { return r.universe.Clone() }

var _ Resolver = (*fakeResolver)(nil)

func TestEvaluateStringEquality(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver(t, []schema.Field{{Name: "title", Kind: schema.KindString, Indexed: true}})
	r.index("title", "fox", 1, 2)
	r.index("title", "dog", 3)

	expr, err := Parse(`title:fox`)
	require.NoError(t, err)
	bm, err := Evaluate(ctx, expr, r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{1, 2}, bm.ToArray())
}

func TestEvaluateStringNotEquals(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver(t, []schema.Field{{Name: "title", Kind: schema.KindString, Indexed: true}})
	r.index("title", "fox", 1)
	r.index("title", "dog", 2)

	expr, err := Parse(`title:!=fox`)
	require.NoError(t, err)
	bm, err := Evaluate(ctx, expr, r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{2}, bm.ToArray())
}

func TestEvaluateAndOr(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver(t, []schema.Field{
		{Name: "title", Kind: schema.KindString, Indexed: true},
		{Name: "tag", Kind: schema.KindString, Indexed: true},
	})
	r.index("title", "fox", 1, 2, 3)
	r.index("tag", "red", 2, 3)
	r.index("tag", "blue", 4)

	expr, err := Parse(`title:fox && tag:red`)
	require.NoError(t, err)
	bm, err := Evaluate(ctx, expr, r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{2, 3}, bm.ToArray())

	expr, err = Parse(`tag:red || tag:blue`)
	require.NoError(t, err)
	bm, err = Evaluate(ctx, expr, r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{2, 3, 4}, bm.ToArray())
}

func TestEvaluateGroupingOverridesPrecedence(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver(t, []schema.Field{
		{Name: "a", Kind: schema.KindString, Indexed: true},
		{Name: "b", Kind: schema.KindString, Indexed: true},
		{Name: "c", Kind: schema.KindString, Indexed: true},
	})
	r.index("a", "x", 1, 2)
	r.index("b", "y", 2, 3)
	r.index("c", "z", 3, 4)

	expr, err := Parse(`a:x && (b:y || c:z)`)
	require.NoError(t, err)
	bm, err := Evaluate(ctx, expr, r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{2}, bm.ToArray())
}

func TestEvaluateValueList(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver(t, []schema.Field{{Name: "tag", Kind: schema.KindString, Indexed: true}})
	r.index("tag", "red", 1)
	r.index("tag", "blue", 2)

	expr, err := Parse(`tag:[red,blue]`)
	require.NoError(t, err)
	bm, err := Evaluate(ctx, expr, r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{1, 2}, bm.ToArray())
}

func TestEvaluateNumericRange(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver(t, []schema.Field{{Name: "rating", Kind: schema.KindFloat, Indexed: true}})
	idx, err := numindex.Open(ctx, "coll", "rating", memkv.New())
	require.NoError(t, err)
	require.NoError(t, idx.Insert(ctx, number.Float(1), 1))
	require.NoError(t, idx.Insert(ctx, number.Float(3), 2))
	require.NoError(t, idx.Insert(ctx, number.Float(5), 3))
	r.numeric["rating"] = idx

	expr, err := Parse(`rating:>2`)
	require.NoError(t, err)
	bm, err := Evaluate(ctx, expr, r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{2, 3}, bm.ToArray())

	expr, err = Parse(`rating:<=3`)
	require.NoError(t, err)
	bm, err = Evaluate(ctx, expr, r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{1, 2}, bm.ToArray())
}

func TestEvaluateGeoPolygonFilter(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver(t, []schema.Field{{Name: "loc", Kind: schema.KindGeopoint, Indexed: true}})
	idx, err := geoindex.Open(ctx, "coll", "loc", memkv.New())
	require.NoError(t, err)
	require.NoError(t, idx.IndexPoint(ctx, 1, 0, 0))
	require.NoError(t, idx.IndexPoint(ctx, 2, 10, 10))
	r.geo["loc"] = idx

	expr, err := Parse(`loc:([-1,-1, -1,1, 1,1, 1,-1])`)
	require.NoError(t, err)
	bm, err := Evaluate(ctx, expr, r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{1}, bm.ToArray())
}

func TestEvaluateGeoRadiusFilter(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver(t, []schema.Field{{Name: "loc", Kind: schema.KindGeopoint, Indexed: true}})
	idx, err := geoindex.Open(ctx, "coll", "loc", memkv.New())
	require.NoError(t, err)
	require.NoError(t, idx.IndexPoint(ctx, 1, 48.8584, 2.2945))
	require.NoError(t, idx.IndexPoint(ctx, 2, 35.6586, 139.7454))
	r.geo["loc"] = idx

	expr, err := Parse(`loc:(48.8584, 2.2945, radius: 10 km)`)
	require.NoError(t, err)
	bm, err := Evaluate(ctx, expr, r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{1}, bm.ToArray())
}

func TestEvaluateGeoRadiusMilesUnit(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver(t, []schema.Field{{Name: "loc", Kind: schema.KindGeopoint, Indexed: true}})
	idx, err := geoindex.Open(ctx, "coll", "loc", memkv.New())
	require.NoError(t, err)
	require.NoError(t, idx.IndexPoint(ctx, 1, 48.8584, 2.2945))
	r.geo["loc"] = idx

	expr, err := Parse(`loc:(48.8584, 2.2945, radius: 6 mi)`)
	require.NoError(t, err)
	bm, err := Evaluate(ctx, expr, r)
	require.NoError(t, err)
	require.True(t, bm.Contains(1))
}

func TestParseGeoGrammarErrorTextOnMalformedClause(t *testing.T) {
	_, err := Parse(`loc:(48.8584, 2.2945, 5)`)
	require.Error(t, err)
	require.Equal(t,
		`invalid-filter: Value of filter field loc: must be in the ([lat,lng], radius: X km|mi) or ([lat1,lng1, lat2,lng2, ...]) or ([lat,lng], radius: X km|mi, exact_filter_radius: Y km|mi) format.`,
		err.Error())
}

func TestParseGeoGrammarErrorOnNaNCoordinate(t *testing.T) {
	_, err := Parse(`loc:(NaN, 2.2945, radius: 5 km)`)
	require.Error(t, err)
}

func TestParseRejectsUnknownUnit(t *testing.T) {
	_, err := Parse(`loc:(48.8584, 2.2945, radius: 5 furlongs)`)
	require.Error(t, err)
}

func TestParseUnexpectedTrailingToken(t *testing.T) {
	_, err := Parse(`title:fox extra`)
	require.Error(t, err)
}

func TestEvaluateUnknownFieldIsNotFound(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver(t, []schema.Field{{Name: "title", Kind: schema.KindString, Indexed: true}})
	expr, err := Parse(`missing:foo`)
	require.NoError(t, err)
	_, err = Evaluate(ctx, expr, r)
	require.Error(t, err)
}

func TestVerticesToRingNormalizes(t *testing.T) {
	ring, err := verticesToRing([]float64{-1, -1, -1, 1, 1, 1, 1, -1})
	require.NoError(t, err)
	require.Equal(t, orb.CCW, ring.Orientation())
}
