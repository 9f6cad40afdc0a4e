package collection

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/antflydb/antfly/kv/memkv"
	"github.com/antflydb/antfly/metrics"
	"github.com/antflydb/antfly/schema"
	"github.com/antflydb/antfly/search"
)

func basicSchema() []schema.Field {
	return []schema.Field{
		{Name: "title", Kind: schema.KindString, Indexed: true},
		{Name: "rating", Kind: schema.KindFloat, Indexed: true, Sortable: true},
	}
}

func titleFieldSpec() []search.FieldSpec {
	return []search.FieldSpec{{Name: "title", Weight: 1, Prefix: true, MaxCandidates: 10}}
}

func TestCreateAndAddThenSearchFindsDocument(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "", memkv.New())
	require.NoError(t, err)

	_, id, err := c.Add(ctx, "", map[string]any{"title": "the quick brown fox", "rating": 4.5}, schema.CoerceOrReject)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	res, err := c.Search(ctx, search.Query{Text: "fox", Fields: titleFieldSpec()})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
}

func TestSetMetricsTracksIndexedDocsAndQueryDuration(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "", memkv.New())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c.SetMetrics(m)

	_, _, err = c.Add(ctx, "", map[string]any{"title": "the quick brown fox", "rating": 4.5}, schema.CoerceOrReject)
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.IndexedDocs.WithLabelValues("books")))
	require.Greater(t, testutil.ToFloat64(m.TypoArenaNodes.WithLabelValues("books", "title")), 0.0)

	_, err = c.Search(ctx, search.Query{Text: "fox", Fields: titleFieldSpec()})
	require.NoError(t, err)
	count, err := testutil.GatherAndCount(reg, "antfly_search_query_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestAddAssignsAutoIDWhenEmpty(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "", memkv.New())
	require.NoError(t, err)

	_, id, err := c.Add(ctx, "", map[string]any{"title": "fox"}, schema.CoerceOrReject)
	require.NoError(t, err)
	require.Len(t, id, 36)
}

func TestAddRejectsIncompatibleValueUnderRejectMode(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "", memkv.New())
	require.NoError(t, err)

	_, _, err = c.Add(ctx, "doc-1", map[string]any{"title": 42}, schema.Reject)
	require.Error(t, err)
}

func TestReAddingSameIDReplacesPriorIndexing(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "", memkv.New())
	require.NoError(t, err)

	_, _, err = c.Add(ctx, "doc-1", map[string]any{"title": "fox"}, schema.CoerceOrReject)
	require.NoError(t, err)
	_, _, err = c.Add(ctx, "doc-1", map[string]any{"title": "dog"}, schema.CoerceOrReject)
	require.NoError(t, err)

	res, err := c.Search(ctx, search.Query{Text: "fox", Fields: titleFieldSpec()})
	require.NoError(t, err)
	require.Empty(t, res.Hits)

	res, err = c.Search(ctx, search.Query{Text: "dog", Fields: titleFieldSpec()})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
}

func TestRemoveDropsDocumentFromSearchAndUniverse(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "", memkv.New())
	require.NoError(t, err)

	_, id, err := c.Add(ctx, "", map[string]any{"title": "fox"}, schema.CoerceOrReject)
	require.NoError(t, err)

	require.NoError(t, c.Remove(ctx, id))

	res, err := c.Search(ctx, search.Query{Text: "fox", Fields: titleFieldSpec()})
	require.NoError(t, err)
	require.Empty(t, res.Hits)
}

func TestRemoveUnknownIDReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "", memkv.New())
	require.NoError(t, err)

	err = c.Remove(ctx, "missing")
	require.Error(t, err)
}

func TestOpenRecoversDocumentsAndIndexesAfterRestart(t *testing.T) {
	ctx := context.Background()
	store := memkv.New()
	c, err := Create(ctx, "books", basicSchema(), "", store)
	require.NoError(t, err)
	_, _, err = c.Add(ctx, "doc-1", map[string]any{"title": "fox", "rating": 4.5}, schema.CoerceOrReject)
	require.NoError(t, err)

	reopened, err := Open(ctx, "books", store)
	require.NoError(t, err)

	res, err := reopened.Search(ctx, search.Query{Text: "fox", Fields: titleFieldSpec()})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)

	n, ok, err := reopened.ids.Seq(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(0), n)
}

func TestOpenUnknownCollectionReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, "missing", memkv.New())
	require.Error(t, err)
}

func TestAlterAddFieldMakesNewFieldSearchable(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "", memkv.New())
	require.NoError(t, err)

	require.NoError(t, c.AlterAddField(ctx, schema.Field{Name: "author", Kind: schema.KindString, Indexed: true}))

	_, _, err = c.Add(ctx, "doc-1", map[string]any{"title": "fox", "author": "vixen"}, schema.CoerceOrReject)
	require.NoError(t, err)

	res, err := c.Search(ctx, search.Query{
		Text:   "vixen",
		Fields: []search.FieldSpec{{Name: "author", Weight: 1, Prefix: true, MaxCandidates: 10}},
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
}

func TestAlterDropFieldRemovesItFromSchemaAndIndex(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "", memkv.New())
	require.NoError(t, err)
	_, _, err = c.Add(ctx, "doc-1", map[string]any{"title": "fox"}, schema.CoerceOrReject)
	require.NoError(t, err)

	require.NoError(t, c.AlterDropField(ctx, "title"))

	_, ok := c.sch.Field("title")
	require.False(t, ok)

	res, err := c.Search(ctx, search.Query{Text: "fox", Fields: titleFieldSpec()})
	require.NoError(t, err)
	require.Empty(t, res.Hits)
}

func TestAlterDropFieldUnknownFieldReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "", memkv.New())
	require.NoError(t, err)

	err = c.AlterDropField(ctx, "missing")
	require.Error(t, err)
}

func TestSearchDefaultSortUsesSchemaDefaultSortField(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "rating", memkv.New())
	require.NoError(t, err)

	_, _, err = c.Add(ctx, "doc-1", map[string]any{"title": "fox", "rating": 1.0}, schema.CoerceOrReject)
	require.NoError(t, err)
	_, _, err = c.Add(ctx, "doc-2", map[string]any{"title": "fox", "rating": 9.0}, schema.CoerceOrReject)
	require.NoError(t, err)

	res, err := c.Search(ctx, search.Query{Text: "fox", Fields: titleFieldSpec()})
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	// default sort breaks ties descending by default_sort_value (§4.6 step e).
	require.Equal(t, uint32(1), res.Hits[0].Seq)
}

func TestFacetCountOnRatingField(t *testing.T) {
	ctx := context.Background()
	c, err := Create(ctx, "books", basicSchema(), "", memkv.New())
	require.NoError(t, err)
	_, _, err = c.Add(ctx, "doc-1", map[string]any{"title": "fox", "rating": 5.0}, schema.CoerceOrReject)
	require.NoError(t, err)
	_, _, err = c.Add(ctx, "doc-2", map[string]any{"title": "fox", "rating": 5.0}, schema.CoerceOrReject)
	require.NoError(t, err)

	res, err := c.Search(ctx, search.Query{
		Text:        "fox",
		Fields:      titleFieldSpec(),
		FacetFields: []string{"rating"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.FacetCounts["rating"][0].Count)
}
