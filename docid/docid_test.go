package docid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/kv/memkv"
)

func TestGenerateReturnsGivenIDUnchanged(t *testing.T) {
	require.Equal(t, "my-id", Generate("my-id"))
}

func TestGenerateFillsInUUIDWhenEmpty(t *testing.T) {
	id := Generate("")
	require.NotEmpty(t, id)
	require.Len(t, id, 36) // canonical UUID string length
}

func TestBindAndLookupBothDirections(t *testing.T) {
	ctx := context.Background()
	m := New("coll", memkv.New())

	require.NoError(t, m.Bind(ctx, "doc-1", 1))

	seq, ok, err := m.Seq(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), seq)

	id, ok, err := m.IDForSeq(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "doc-1", id)
}

func TestSeqUnknownIDReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	m := New("coll", memkv.New())

	_, ok, err := m.Seq(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBindRebindingSameIDToSameSeqIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := New("coll", memkv.New())

	require.NoError(t, m.Bind(ctx, "doc-1", 1))
	require.NoError(t, m.Bind(ctx, "doc-1", 1))
}

func TestBindRebindingSameIDToDifferentSeqConflicts(t *testing.T) {
	ctx := context.Background()
	m := New("coll", memkv.New())

	require.NoError(t, m.Bind(ctx, "doc-1", 1))
	err := m.Bind(ctx, "doc-1", 2)
	require.Error(t, err)
	require.Equal(t, antflyerr.Conflict, antflyerr.KindOf(err))
}

func TestUnbindRemovesBothDirections(t *testing.T) {
	ctx := context.Background()
	m := New("coll", memkv.New())
	require.NoError(t, m.Bind(ctx, "doc-1", 1))

	require.NoError(t, m.Unbind(ctx, "doc-1", 1))

	_, ok, err := m.Seq(ctx, "doc-1")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = m.IDForSeq(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSeparateCollectionsDoNotShareIDs(t *testing.T) {
	ctx := context.Background()
	store := memkv.New()
	a := New("coll-a", store)
	b := New("coll-b", store)

	require.NoError(t, a.Bind(ctx, "doc-1", 1))

	_, ok, err := b.Seq(ctx, "doc-1")
	require.NoError(t, err)
	require.False(t, ok)
}
