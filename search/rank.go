package search

import "sort"

// fieldScore is one field's contribution to a document's match under one
// FieldSpec (§4.6): how many distinct query tokens it matched, the best
// proximity window found (maxMatch/minDisplacement from matchScore), and
// the weakest match kind among the tokens that did match (a document is
// only "exact" in a field if every token it matched there was exact).
type fieldScore struct {
	tokensMatched   int
	maxMatch        int
	minDisplacement int
	kind            matchKind
	fieldIndex      int
}

// better reports whether a outranks b under §4.6 steps a-d, ignoring
// default_sort_value and seq-id (those are compared at the document level
// since they don't vary per field).
func (a fieldScore) better(b fieldScore) bool {
	if a.tokensMatched != b.tokensMatched {
		return a.tokensMatched > b.tokensMatched
	}
	if a.maxMatch != b.maxMatch {
		return a.maxMatch > b.maxMatch
	}
	if a.minDisplacement != b.minDisplacement {
		// lower displacement is better, i.e. ranks first
		return a.minDisplacement < b.minDisplacement
	}
	if a.kind != b.kind {
		return a.kind > b.kind
	}
	if a.fieldIndex != b.fieldIndex {
		return a.fieldIndex < b.fieldIndex
	}
	return false
}

// rankLess implements the full §4.6 default ranking order between two
// Hits, used when the query has no explicit sort_by.
func rankLess(a, b Hit) bool {
	fa := fieldScore{a.TokensMatched, a.BestMaxMatch, a.BestDisplacement, a.BestMatchKind, a.FieldPriority}
	fb := fieldScore{b.TokensMatched, b.BestMaxMatch, b.BestDisplacement, b.BestMatchKind, b.FieldPriority}
	if fa.better(fb) {
		return true
	}
	if fb.better(fa) {
		return false
	}

	switch {
	case a.HasDefaultSort && b.HasDefaultSort:
		if c := a.DefaultSort.Compare(b.DefaultSort); c != 0 {
			return c > 0 // desc
		}
	case a.HasDefaultSort != b.HasDefaultSort:
		return a.HasDefaultSort // defined sorts before missing
	}

	return a.Seq < b.Seq
}

// sortHits orders hits by rankLess, stably.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool { return rankLess(hits[i], hits[j]) })
}
