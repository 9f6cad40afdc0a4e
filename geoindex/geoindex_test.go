package geoindex

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/kv/memkv"
)

func TestIndexPointAndRadius(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, "coll", "loc", memkv.New())
	require.NoError(t, err)

	// Eiffel Tower and Notre-Dame, ~4.1km apart; Tokyo Tower is far away.
	require.NoError(t, idx.IndexPoint(ctx, 1, 48.8584, 2.2945))
	require.NoError(t, idx.IndexPoint(ctx, 2, 48.8530, 2.3499))
	require.NoError(t, idx.IndexPoint(ctx, 3, 35.6586, 139.7454))

	bm, err := idx.Radius(48.8584, 2.2945, 10, 0)
	require.NoError(t, err)
	require.True(t, bm.Contains(1))
	require.True(t, bm.Contains(2))
	require.False(t, bm.Contains(3))
}

func TestIndexPointRejectsNaN(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, "coll", "loc", memkv.New())
	require.NoError(t, err)

	err = idx.IndexPoint(ctx, 1, nan(), 2.0)
	require.Error(t, err)
	require.Equal(t, antflyerr.InvalidFilter, antflyerr.KindOf(err))
}

func TestRadiusRejectsNaN(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, "coll", "loc", memkv.New())
	require.NoError(t, err)

	_, err = idx.Radius(nan(), 2.0, 5, 0)
	require.Error(t, err)
	require.Equal(t, antflyerr.InvalidFilter, antflyerr.KindOf(err))
}

func TestRemovePointDropsFromRadius(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, "coll", "loc", memkv.New())
	require.NoError(t, err)
	require.NoError(t, idx.IndexPoint(ctx, 1, 48.8584, 2.2945))
	require.NoError(t, idx.RemovePoint(ctx, 1))

	bm, err := idx.Radius(48.8584, 2.2945, 50, 0)
	require.NoError(t, err)
	require.True(t, bm.IsEmpty())
}

func TestIndexPolygonNormalizesAndContains(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, "coll", "area", memkv.New())
	require.NoError(t, err)

	// A clockwise square around the origin; IndexPolygon must normalize it.
	square := []orb.Point{
		{-1, -1}, {-1, 1}, {1, 1}, {1, -1},
	}
	ring, err := idx.IndexPolygon(ctx, 1, square)
	require.NoError(t, err)
	require.Equal(t, orb.CCW, ring.Orientation())

	bm, err := idx.PolygonContains(0, 0)
	require.NoError(t, err)
	require.True(t, bm.Contains(1))

	bm, err = idx.PolygonContains(10, 10)
	require.NoError(t, err)
	require.False(t, bm.Contains(1))
}

func TestIndexPolygonRejectsTooFewVertices(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, "coll", "area", memkv.New())
	require.NoError(t, err)

	_, err = idx.IndexPolygon(ctx, 1, []orb.Point{{0, 0}, {0, 1}})
	require.Error(t, err)
	require.Equal(t, antflyerr.InvalidFilter, antflyerr.KindOf(err))
}

func TestIndexPolygonRejectsSelfIntersecting(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, "coll", "area", memkv.New())
	require.NoError(t, err)

	bowtie := []orb.Point{{0, 0}, {1, 1}, {1, 0}, {0, 1}}
	_, err = idx.IndexPolygon(ctx, 1, bowtie)
	require.Error(t, err)
	require.Equal(t, antflyerr.InvalidFilter, antflyerr.KindOf(err))
}

func TestRemovePolygonDropsContainment(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, "coll", "area", memkv.New())
	require.NoError(t, err)
	square := []orb.Point{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	_, err = idx.IndexPolygon(ctx, 1, square)
	require.NoError(t, err)

	require.NoError(t, idx.RemovePolygon(ctx, 1))
	bm, err := idx.PolygonContains(0, 0)
	require.NoError(t, err)
	require.True(t, bm.IsEmpty())
}

func TestWithinFindsPointsInsideQueryPolygon(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, "coll", "loc", memkv.New())
	require.NoError(t, err)
	require.NoError(t, idx.IndexPoint(ctx, 1, 0, 0))
	require.NoError(t, idx.IndexPoint(ctx, 2, 10, 10))

	square := []orb.Point{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	ring, err := NormalizeRing(square)
	require.NoError(t, err)

	bm, err := idx.Within(ring)
	require.NoError(t, err)
	require.True(t, bm.Contains(1))
	require.False(t, bm.Contains(2))
}

func TestOpenRebuildsPointsAndPolygonsFromStore(t *testing.T) {
	ctx := context.Background()
	store := memkv.New()
	idx, err := Open(ctx, "coll", "loc", store)
	require.NoError(t, err)
	require.NoError(t, idx.IndexPoint(ctx, 1, 48.8584, 2.2945))
	square := []orb.Point{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	_, err = idx.IndexPolygon(ctx, 2, square)
	require.NoError(t, err)

	reopened, err := Open(ctx, "coll", "loc", store)
	require.NoError(t, err)

	bm, err := reopened.Radius(48.8584, 2.2945, 1, 0)
	require.NoError(t, err)
	require.True(t, bm.Contains(1))

	bm, err = reopened.PolygonContains(0, 0)
	require.NoError(t, err)
	require.True(t, bm.Contains(2))
}

func TestHaversineKmZeroForSamePoint(t *testing.T) {
	require.Equal(t, 0.0, HaversineKm(48.8584, 2.2945, 48.8584, 2.2945))
}

func nan() float64 {
	var zero float64
	return zero / zero
}
