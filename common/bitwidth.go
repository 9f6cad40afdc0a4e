// Copyright 2024 The Erigon Authors
// (original work)
// Copyright 2026 The Antfly Authors
// (modifications)
// This file is part of Antfly.
//
// Antfly is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Antfly is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Antfly. If not, see <http://www.gnu.org/licenses/>.

// Package common holds small numeric helpers shared by the posting store's
// frame-of-reference codec, the numeric index, and the scoring pipeline.
package common

import "math/bits"

// Integer limit values used by the posting codec's bit-width arithmetic.
const (
	MaxUint32 = 1<<32 - 1
	MaxUint64 = 1<<64 - 1
)

// RequiredBits returns the minimum number of bits needed to represent v,
// mirroring the posting codec's frame-of-reference width calculation
// (required_bits in the original array_base, via __builtin_clz).
func RequiredBits(v uint64) uint32 {
	if v == 0 {
		return 0
	}
	return uint32(bits.Len64(v))
}

// AbsoluteDifference returns |x-y| for two uint32 positions. Used by the
// proximity scorer's window displacement sum (search/proximity.go's
// matchScore).
func AbsoluteDifference(x, y uint32) uint32 {
	if x > y {
		return x - y
	}
	return y - x
}

// CeilDiv returns ceil(x/y), or 0 when y is 0.
func CeilDiv(x, y int) int {
	if y == 0 {
		return 0
	}
	return (x + y - 1) / y
}

// GrowthFactor is the buffer growth multiplier used when a posting or KV
// scratch buffer must be reallocated to fit a wider bit-width. Mirrors
// FOR_GROWTH_FACTOR from the original array_base implementation.
const GrowthFactor = 1.3

// MetadataOverhead is the fixed per-buffer header size (in bytes) reserved
// ahead of the compressed element stream, mirroring METADATA_OVERHEAD.
const MetadataOverhead = 5

// GrowBufferSize computes the byte size to allocate for a buffer that must
// hold newLen elements of bitWidth bits each, applying GrowthFactor once the
// requested size exceeds the current capacity.
func GrowBufferSize(curCap, newLen int, bitWidth uint32) int {
	need := MetadataOverhead + CeilDiv(newLen*int(bitWidth), 8)
	if need <= curCap {
		return curCap
	}
	grown := int(float64(curCap) * GrowthFactor)
	if grown < need {
		return need
	}
	return grown
}
