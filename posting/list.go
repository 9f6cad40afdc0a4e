package posting

import (
	"encoding/binary"
	"sort"

	"github.com/antflydb/antfly/common"
)

// List is one (field, token) posting: a sorted seq-id list, each with its
// own ordered position list. append is idempotent on (field, seq) per
// spec §4.1 — appending an already-present seq replaces its positions.
type List struct {
	seqIDs    []uint32
	positions [][]uint32 // parallel to seqIDs

	// seqBuf is the seq-id FOR block's scratch buffer, reused and grown by
	// Bytes across repeated single-document appends instead of being
	// reallocated at the exact size on every persist.
	seqBuf []byte
}

// NewList returns an empty posting list.
func NewList() *List { return &List{} }

// Length returns the number of documents referenced by this posting.
func (l *List) Length() int { return len(l.seqIDs) }

// SeqIDs returns the sorted seq-id list (read-only view for callers; do not
// mutate the returned slice).
func (l *List) SeqIDs() []uint32 { return l.seqIDs }

// Positions returns the position list for seq, or nil if seq is absent.
func (l *List) Positions(seq uint32) []uint32 {
	i := sort.Search(len(l.seqIDs), func(i int) bool { return l.seqIDs[i] >= seq })
	if i < len(l.seqIDs) && l.seqIDs[i] == seq {
		return l.positions[i]
	}
	return nil
}

// Append inserts or replaces the positions for seq, keeping seqIDs sorted.
func (l *List) Append(seq uint32, positions []uint32) {
	i := sort.Search(len(l.seqIDs), func(i int) bool { return l.seqIDs[i] >= seq })
	if i < len(l.seqIDs) && l.seqIDs[i] == seq {
		l.positions[i] = positions
		return
	}
	l.seqIDs = append(l.seqIDs, 0)
	copy(l.seqIDs[i+1:], l.seqIDs[i:])
	l.seqIDs[i] = seq

	l.positions = append(l.positions, nil)
	copy(l.positions[i+1:], l.positions[i:])
	l.positions[i] = positions
}

// Remove deletes seq from the posting, rebuilding the buffer (removals are
// rare relative to query, per §4.3, so a rebuild-on-remove is acceptable).
func (l *List) Remove(seq uint32) bool {
	i := sort.Search(len(l.seqIDs), func(i int) bool { return l.seqIDs[i] >= seq })
	if i >= len(l.seqIDs) || l.seqIDs[i] != seq {
		return false
	}
	l.seqIDs = append(l.seqIDs[:i], l.seqIDs[i+1:]...)
	l.positions = append(l.positions[:i], l.positions[i+1:]...)
	return true
}

// Bytes serializes the list as [min,max,bit_width,compressed_seq_ids...,
// compressed_positions_blob] (§3, §4.3).
func (l *List) Bytes() []byte {
	min, max, bitWidth, deltas := frameMeta(l.seqIDs)
	l.seqBuf = forEncodeInto(l.seqBuf, deltas, bitWidth)
	packedSeqs := l.seqBuf
	head := encodeHeader(min, max, bitWidth, len(l.seqIDs))

	posBlob := make([]byte, 0, len(l.positions)*4)
	for _, p := range l.positions {
		pmin, pmax, pbw, packed := frameEncode(p)
		phead := encodeHeader(pmin, pmax, pbw, len(p))
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(phead)+len(packed)))
		posBlob = append(posBlob, lenBuf[:]...)
		posBlob = append(posBlob, phead...)
		posBlob = append(posBlob, packed...)
		_ = pmax
	}

	buf := make([]byte, 0, len(head)+len(packedSeqs)+len(posBlob))
	buf = append(buf, head...)
	buf = append(buf, packedSeqs...)
	buf = append(buf, posBlob...)
	return buf
}

// FromBytes decodes a List from the layout written by Bytes.
func FromBytes(buf []byte) (*List, error) {
	if len(buf) < headerSize {
		return NewList(), nil
	}
	min, _, bitWidth, n := decodeHeader(buf)
	off := headerSize
	seqBytes := common.CeilDiv(n*int(bitWidth), 8)
	if off+seqBytes > len(buf) {
		return nil, errShortBuffer
	}
	seqIDs := frameDecode(min, n, bitWidth, buf[off:off+seqBytes])
	off += seqBytes

	positions := make([][]uint32, n)
	for i := 0; i < n; i++ {
		if off+4 > len(buf) {
			return nil, errShortBuffer
		}
		blockLen := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		if off+blockLen > len(buf) {
			return nil, errShortBuffer
		}
		block := buf[off : off+blockLen]
		off += blockLen
		if len(block) < headerSize {
			positions[i] = nil
			continue
		}
		pmin, _, pbw, pn := decodeHeader(block)
		packed := block[headerSize:]
		positions[i] = frameDecode(pmin, pn, pbw, packed)
	}
	return &List{seqIDs: seqIDs, positions: positions}, nil
}
