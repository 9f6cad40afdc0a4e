package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchScoreEmptyInputReturnsZero(t *testing.T) {
	maxMatch, minDisp := matchScore(nil, defaultWindowSize)
	require.Equal(t, 0, maxMatch)
	require.Equal(t, 0, minDisp)
}

func TestMatchScoreSingleWordSingleOccurrence(t *testing.T) {
	maxMatch, minDisp := matchScore([][]uint32{{5}}, defaultWindowSize)
	require.Equal(t, 1, maxMatch)
	require.Equal(t, 0, minDisp)
}

func TestMatchScoreAdjacentWordsScoreFullMatch(t *testing.T) {
	// "quick fox" adjacent at 1-based positions 1,2 in two token slots.
	maxMatch, minDisp := matchScore([][]uint32{{1}, {2}}, defaultWindowSize)
	require.Equal(t, 2, maxMatch)
	require.Equal(t, 1, minDisp)
}

func TestMatchScorePrefersSmallerDisplacementAtSameMaxMatch(t *testing.T) {
	// word A occurs at 1 and 101; word B occurs at 2. The (1,2) pairing,
	// with the smaller displacement, should win.
	maxMatch, minDisp := matchScore([][]uint32{{1, 101}, {2}}, defaultWindowSize)
	require.Equal(t, 2, maxMatch)
	require.Equal(t, 1, minDisp)
}

func TestMatchScoreWordsFarApartNeverBothMatch(t *testing.T) {
	maxMatch, _ := matchScore([][]uint32{{1}, {1000}}, defaultWindowSize)
	require.Equal(t, 1, maxMatch)
}

func TestNonEmptyDropsEmptyPositionLists(t *testing.T) {
	out := nonEmpty([][]uint32{{1}, {}, {2, 3}})
	require.Len(t, out, 2)
}
