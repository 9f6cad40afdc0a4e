package posting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListAppendKeepsSeqIDsSorted(t *testing.T) {
	l := NewList()
	l.Append(30, []uint32{1})
	l.Append(10, []uint32{2})
	l.Append(20, []uint32{3})

	require.Equal(t, []uint32{10, 20, 30}, l.SeqIDs())
}

func TestListAppendReplacesExistingSeq(t *testing.T) {
	l := NewList()
	l.Append(10, []uint32{1, 2})
	l.Append(10, []uint32{9})

	require.Equal(t, 1, l.Length())
	require.Equal(t, []uint32{9}, l.Positions(10))
}

func TestListRemove(t *testing.T) {
	l := NewList()
	l.Append(1, []uint32{1})
	l.Append(2, []uint32{2})

	require.True(t, l.Remove(1))
	require.False(t, l.Remove(1))
	require.Equal(t, []uint32{2}, l.SeqIDs())
}

func TestListPositionsAbsentSeq(t *testing.T) {
	l := NewList()
	l.Append(5, []uint32{1})
	require.Nil(t, l.Positions(99))
}

func TestListBytesRoundTrip(t *testing.T) {
	l := NewList()
	l.Append(1, []uint32{1, 5, 9})
	l.Append(2, []uint32{2})
	l.Append(100, []uint32{1, 2, 3})

	buf := l.Bytes()
	decoded, err := FromBytes(buf)
	require.NoError(t, err)

	require.Equal(t, l.SeqIDs(), decoded.SeqIDs())
	for _, seq := range l.SeqIDs() {
		require.Equal(t, l.Positions(seq), decoded.Positions(seq))
	}
}

func TestListBytesRoundTripEmpty(t *testing.T) {
	l := NewList()
	buf := l.Bytes()
	decoded, err := FromBytes(buf)
	require.NoError(t, err)
	require.Equal(t, 0, decoded.Length())
}

func TestListBytesReusesSeqBufAcrossAppends(t *testing.T) {
	l := NewList()
	l.Append(1, []uint32{1})
	l.Append(2, []uint32{2})
	l.Bytes()
	cap1 := cap(l.seqBuf)
	require.NotZero(t, cap1)

	// A third append widens the bit-width only from 1 to 2, which still
	// fits the scratch buffer, so it is reused rather than reallocated.
	l.Append(3, []uint32{3})
	l.Bytes()
	require.Equal(t, cap1, cap(l.seqBuf))

	// Widening the bit-width enough to outgrow the buffer forces a
	// reallocation. Here 1.3x the old capacity is still too small, so
	// GrowBufferSize returns the packed size plus MetadataOverhead.
	l.Append(1<<20, []uint32{4})
	l.Bytes()
	require.Greater(t, cap(l.seqBuf), cap1)
}

func TestListBytesRoundTripAfterRemoveReusesSeqBuf(t *testing.T) {
	l := NewList()
	l.Append(1, []uint32{1})
	l.Append(2, []uint32{2})
	l.Append(3, []uint32{3})
	l.Bytes()

	require.True(t, l.Remove(2))
	buf := l.Bytes()
	decoded, err := FromBytes(buf)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 3}, decoded.SeqIDs())
}

func TestFromBytesShortBuffer(t *testing.T) {
	decoded, err := FromBytes(nil)
	require.NoError(t, err)
	require.Equal(t, 0, decoded.Length())

	_, err = FromBytes([]byte{1, 2, 3})
	require.NoError(t, err)
}
