package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequiredBitsZeroForZero(t *testing.T) {
	require.Equal(t, uint32(0), RequiredBits(0))
}

func TestRequiredBitsMatchesBitLength(t *testing.T) {
	require.Equal(t, uint32(1), RequiredBits(1))
	require.Equal(t, uint32(3), RequiredBits(7))
	require.Equal(t, uint32(4), RequiredBits(8))
	require.Equal(t, uint32(32), RequiredBits(MaxUint32))
}

func TestAbsoluteDifferenceIsSymmetric(t *testing.T) {
	require.Equal(t, uint32(5), AbsoluteDifference(10, 5))
	require.Equal(t, uint32(5), AbsoluteDifference(5, 10))
	require.Equal(t, uint32(0), AbsoluteDifference(7, 7))
}

func TestCeilDivRoundsUp(t *testing.T) {
	require.Equal(t, 3, CeilDiv(7, 3))
	require.Equal(t, 2, CeilDiv(6, 3))
	require.Equal(t, 0, CeilDiv(7, 0))
}

func TestGrowBufferSizeKeepsCapacityWhenSufficient(t *testing.T) {
	got := GrowBufferSize(1000, 10, 8)
	require.Equal(t, 1000, got)
}

func TestGrowBufferSizeGrowsByFactorWhenInsufficient(t *testing.T) {
	got := GrowBufferSize(10, 1000, 32)
	need := MetadataOverhead + CeilDiv(1000*32, 8)
	require.GreaterOrEqual(t, got, need)
}
