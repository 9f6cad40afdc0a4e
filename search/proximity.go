package search

import (
	"container/heap"

	"github.com/antflydb/antfly/common"
)

// defaultWindowSize is the sliding window width W from §4.6.1.
const defaultWindowSize = 5

// wordPos is one (token-slot, position) pair waiting to enter the sliding
// window, ordered by position for the min-heap.
type wordPos struct {
	word     int
	position uint32
	index    int
}

type posHeap []wordPos

func (h posHeap) Len() int            { return len(h) }
func (h posHeap) Less(i, j int) bool  { return h[i].position < h[j].position }
func (h posHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *posHeap) Push(x interface{}) { *h = append(*h, x.(wordPos)) }
func (h *posHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// matchScore ports the sliding-window algorithm in
// original_source/include/matchscore.h: given the sorted positions, within
// one field of one document, of each query token that actually occurs
// there (absent tokens are simply omitted from wordPositions), it slides a
// window of width windowSize across a min-heap merge of all positions and
// returns (max_match, min_displacement) as defined in §4.6.1.
func matchScore(wordPositions [][]uint32, windowSize uint32) (maxMatch, minDisplacement int) {
	wordPositions = nonEmpty(wordPositions)
	n := len(wordPositions)
	if n == 0 {
		return 0, 0
	}

	h := &posHeap{}
	heap.Init(h)
	for w, positions := range wordPositions {
		heap.Push(h, wordPos{word: w, position: positions[0], index: 0})
	}

	type queued struct {
		word     int
		position uint32
	}
	var q []queued
	wordPosSum := make([]uint32, n)

	addTop := func() {
		top := heap.Pop(h).(wordPos)
		q = append(q, queued{top.word, top.position})
		wordPosSum[top.word] = top.position
		next := top.index + 1
		if next < len(wordPositions[top.word]) {
			heap.Push(h, wordPos{word: top.word, position: wordPositions[top.word][next], index: next})
		}
	}

	maxMatch = 1
	minDisplacement = -1 // unset, mirrors the original's UINT16_MAX sentinel

	for {
		if len(q) == 0 {
			addTop()
		}
		startPos := q[0].position
		for h.Len() > 0 && (*h)[0].position < startPos+windowSize {
			addTop()
		}

		var prevPos uint32
		numMatch := 0
		var displacement uint32
		for k := 0; k < n; k++ {
			if wordPosSum[k] == 0 {
				continue
			}
			numMatch++
			if prevPos == 0 {
				prevPos = wordPosSum[k]
				continue
			}
			displacement += common.AbsoluteDifference(wordPosSum[k], prevPos)
			prevPos = wordPosSum[k]
		}

		if numMatch >= maxMatch {
			maxMatch = numMatch
			if displacement != 0 && (minDisplacement < 0 || int(displacement) < minDisplacement) {
				minDisplacement = int(displacement)
			}
		}

		wordPosSum[q[0].word] -= q[0].position
		q = q[1:]

		if h.Len() == 0 {
			break
		}
	}

	if minDisplacement < 0 {
		minDisplacement = 0
	}
	return maxMatch, minDisplacement
}

func nonEmpty(lists [][]uint32) [][]uint32 {
	out := lists[:0:0]
	for _, l := range lists {
		if len(l) > 0 {
			out = append(out, l)
		}
	}
	return out
}
