// Package posting implements the per-(field,token) inverted posting list
// (spec §4.3): a sorted sequence of (seq-id, positions[]) entries, stored
// as a single growable buffer framed against the list's current min using
// the minimal bit-width needed to hold max-min (a frame-of-reference
// codec), ported from original_source/include/array_base.h and array.h.
package posting

import (
	"encoding/binary"

	"github.com/antflydb/antfly/common"
)

// forEncode bit-packs the sorted values in vals (each already delta-framed
// against min, i.e. vals[i] = raw[i]-min) using bitWidth bits per element.
func forEncode(vals []uint32, bitWidth uint32) []byte {
	if bitWidth == 0 {
		return nil
	}
	totalBits := len(vals) * int(bitWidth)
	out := make([]byte, common.CeilDiv(totalBits, 8))
	bitPos := 0
	for _, v := range vals {
		writeBits(out, bitPos, v, bitWidth)
		bitPos += int(bitWidth)
	}
	return out
}

func forDecode(buf []byte, n int, bitWidth uint32) []uint32 {
	if bitWidth == 0 {
		out := make([]uint32, n)
		return out
	}
	out := make([]uint32, n)
	bitPos := 0
	for i := 0; i < n; i++ {
		out[i] = readBits(buf, bitPos, bitWidth)
		bitPos += int(bitWidth)
	}
	return out
}

func writeBits(buf []byte, bitPos int, v uint32, width uint32) {
	for b := uint32(0); b < width; b++ {
		if v&(1<<b) != 0 {
			idx := bitPos + int(b)
			buf[idx/8] |= 1 << uint(idx%8)
		}
	}
}

func readBits(buf []byte, bitPos int, width uint32) uint32 {
	var v uint32
	for b := uint32(0); b < width; b++ {
		idx := bitPos + int(b)
		if idx/8 < len(buf) && buf[idx/8]&(1<<uint(idx%8)) != 0 {
			v |= 1 << b
		}
	}
	return v
}

// frameMeta computes the min/max/bit-width/delta values for sorted without
// packing them, so a caller holding a reusable buffer (List.seqBuf) can grow
// it in place via forEncodeInto instead of allocating a fresh exact-size
// buffer on every encode.
func frameMeta(sorted []uint32) (min, max uint32, bitWidth uint32, deltas []uint32) {
	if len(sorted) == 0 {
		return 0, 0, 0, nil
	}
	min, max = sorted[0], sorted[len(sorted)-1]
	for _, v := range sorted {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	bitWidth = common.RequiredBits(uint64(max - min))
	deltas = make([]uint32, len(sorted))
	for i, v := range sorted {
		deltas[i] = v - min
	}
	return min, max, bitWidth, deltas
}

// frameEncode computes min/max/bitWidth for a sorted ascending slice and
// returns the FOR-compressed delta buffer alongside the header values.
func frameEncode(sorted []uint32) (min, max uint32, bitWidth uint32, packed []byte) {
	min, max, bitWidth, deltas := frameMeta(sorted)
	return min, max, bitWidth, forEncode(deltas, bitWidth)
}

// forEncodeInto bit-packs vals into dst, reusing dst's capacity when it is
// already large enough and otherwise growing it via common.GrowBufferSize's
// 1.3x growth factor (§4.3) rather than allocating an exact-fit buffer on
// every call. This is the growth strategy a posting's seq-id buffer needs,
// since List.Bytes re-packs it on every single-document append.
func forEncodeInto(dst []byte, vals []uint32, bitWidth uint32) []byte {
	if bitWidth == 0 {
		return dst[:0]
	}
	needBytes := common.CeilDiv(len(vals)*int(bitWidth), 8)
	if cap(dst) < needBytes {
		dst = make([]byte, common.GrowBufferSize(cap(dst), len(vals), bitWidth))
	}
	dst = dst[:needBytes]
	for i := range dst {
		dst[i] = 0
	}
	bitPos := 0
	for _, v := range vals {
		writeBits(dst, bitPos, v, bitWidth)
		bitPos += int(bitWidth)
	}
	return dst
}

func frameDecode(min uint32, n int, bitWidth uint32, packed []byte) []uint32 {
	deltas := forDecode(packed, n, bitWidth)
	out := make([]uint32, n)
	for i, d := range deltas {
		out[i] = d + min
	}
	return out
}

// header is the fixed-size prefix of an encoded posting buffer:
// [min(4)][max(4)][bitWidth(1)][length(4)].
const headerSize = 4 + 4 + 1 + 4

func encodeHeader(min, max, bitWidth uint32, length int) []byte {
	h := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(h[0:4], min)
	binary.LittleEndian.PutUint32(h[4:8], max)
	h[8] = byte(bitWidth)
	binary.LittleEndian.PutUint32(h[9:13], uint32(length))
	return h
}

func decodeHeader(buf []byte) (min, max uint32, bitWidth uint32, length int) {
	min = binary.LittleEndian.Uint32(buf[0:4])
	max = binary.LittleEndian.Uint32(buf[4:8])
	bitWidth = uint32(buf[8])
	length = int(binary.LittleEndian.Uint32(buf[9:13]))
	return
}
