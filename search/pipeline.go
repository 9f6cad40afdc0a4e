// Package search implements the query pipeline (§4.3-§4.7): tokenizing and
// expanding query text per field, fetching and scoring postings, applying
// the filter bitmap, ranking, and paging.
package search

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/facet"
	"github.com/antflydb/antfly/filter"
	"github.com/antflydb/antfly/number"
	"github.com/antflydb/antfly/posting"
	"github.com/antflydb/antfly/schema"
	"github.com/antflydb/antfly/tokenizer"
	"github.com/antflydb/antfly/typodict"
)

// Backend supplies everything a Search call needs from a collection: its
// schema, per-field typo/prefix/infix dictionaries, the posting store,
// the filter resolver, and the sort/facet value source.
type Backend interface {
	Schema() *schema.Schema
	Dictionary(field string) (*typodict.Dictionary, bool)
	Postings() *posting.Store
	Resolver() filter.Resolver
	DefaultSortValue(seq uint32) (number.Number, bool)
	Universe() *roaring.Bitmap
	ValueSource() facet.ValueSource
}

const defaultPerPage = 10

// Search runs q against backend and returns one page of ranked hits, per
// §4.3-§4.7.
func Search(ctx context.Context, q Query, backend Backend) (*Result, error) {
	candidateBitmap, err := filterCandidates(ctx, q, backend)
	if err != nil {
		return nil, err
	}

	best := make(map[uint32]fieldScore)
	if isMatchAllQuery(q.Text) {
		if err := ctx.Err(); err != nil {
			return nil, antflyerr.Wrap(err, antflyerr.DeadlineExceeded, "search: candidate generation")
		}
		it := candidateBitmap.Iterator()
		for it.HasNext() {
			best[it.Next()] = fieldScore{}
		}
	} else {
		for fi, fs := range q.Fields {
			if err := ctx.Err(); err != nil {
				return nil, antflyerr.Wrap(err, antflyerr.DeadlineExceeded, "search: candidate generation")
			}
			dict, ok := backend.Dictionary(fs.Name)
			if !ok {
				continue
			}
			queryTokens := queryTokenTexts(q.Text, fs.Options)
			if len(queryTokens) == 0 {
				continue
			}
			slots := expandQuery(dict, queryTokens, fs)
			scoreField(ctx, backend.Postings(), fs.Name, fi, slots, candidateBitmap, best)
		}
	}

	hits := make([]Hit, 0, len(best))
	for seq, fscore := range best {
		h := Hit{
			Seq:              seq,
			TokensMatched:    fscore.tokensMatched,
			BestMaxMatch:     fscore.maxMatch,
			BestDisplacement: fscore.minDisplacement,
			BestMatchKind:    fscore.kind,
			FieldPriority:    fscore.fieldIndex,
		}
		if v, ok := backend.DefaultSortValue(seq); ok {
			h.DefaultSort, h.HasDefaultSort = v, true
		}
		hits = append(hits, h)
	}

	if len(q.SortBy) > 0 {
		seqs := make([]uint32, len(hits))
		byseq := make(map[uint32]Hit, len(hits))
		for i, h := range hits {
			seqs[i] = h.Seq
			byseq[h.Seq] = h
		}
		ordered := facet.Sort(seqs, q.SortBy, backend.ValueSource())
		hits = hits[:0]
		for _, s := range ordered {
			hits = append(hits, byseq[s])
		}
	} else {
		sortHits(hits)
	}

	result := &Result{TotalHits: len(hits)}
	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	start := (page - 1) * perPage
	if start > len(hits) {
		start = len(hits)
	}
	end := start + perPage
	if end > len(hits) {
		end = len(hits)
	}
	result.Hits = hits[start:end]

	if len(q.FacetFields) > 0 {
		allSeqs := make([]uint32, len(hits))
		for i, h := range hits {
			allSeqs[i] = h.Seq
		}
		result.FacetCounts = make(map[string][]facet.Value, len(q.FacetFields))
		for _, f := range q.FacetFields {
			result.FacetCounts[f] = facet.Count(allSeqs, f, backend.ValueSource())
		}
	}

	return result, nil
}

// isMatchAllQuery reports whether q is the wildcard query (§8): an explicit
// "*" or empty query text. A match-all query matches every candidate that
// survives the filter, regardless of query_by fields, and is ranked purely
// by the §4.6 tail signals (default_sort_value, then ascending seq-id)
// since no field scoring ever runs.
func isMatchAllQuery(text string) bool {
	return text == "" || text == "*"
}

// filterCandidates evaluates q.FilterExpr (if any) into the seq-id bitmap
// every hit must belong to; an empty filter falls back to the live
// universe, matching every document.
func filterCandidates(ctx context.Context, q Query, backend Backend) (*roaring.Bitmap, error) {
	if q.FilterExpr == "" {
		return backend.Universe(), nil
	}
	expr, err := filter.Parse(q.FilterExpr)
	if err != nil {
		return nil, err
	}
	return filter.Evaluate(ctx, expr, backend.Resolver())
}

func queryTokenTexts(text string, opts tokenizer.Options) []string {
	toks := tokenizer.Tokenize(text, opts)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

// scoreField fetches postings for every expansion of every query-token
// slot in field, restricted to candidates, and folds each surviving
// document's field-level score into best (keeping only the best field per
// document across the whole query, per §4.6).
func scoreField(ctx context.Context, store *posting.Store, field string, fieldIndex int, slots [][]expansion, candidates *roaring.Bitmap, best map[uint32]fieldScore) {
	type docSlot struct {
		positions []uint32
		kind      matchKind
	}
	docSlots := make(map[uint32]map[int]docSlot)

	for slotIdx, exps := range slots {
		for _, e := range exps {
			bm, err := store.Iterate(ctx, field, e.token)
			if err != nil || bm == nil {
				continue
			}
			it := bm.Iterator()
			for it.HasNext() {
				seq := it.Next()
				if candidates != nil && !candidates.Contains(seq) {
					continue
				}
				positions, err := store.Positions(ctx, field, e.token, seq)
				if err != nil || len(positions) == 0 {
					continue
				}
				slotsForDoc, ok := docSlots[seq]
				if !ok {
					slotsForDoc = make(map[int]docSlot)
					docSlots[seq] = slotsForDoc
				}
				cur, ok := slotsForDoc[slotIdx]
				if !ok || e.kind > cur.kind {
					slotsForDoc[slotIdx] = docSlot{positions: positions, kind: e.kind}
				}
			}
		}
	}

	for seq, slotsForDoc := range docSlots {
		wordPositions := make([][]uint32, 0, len(slotsForDoc))
		kind := matchExact
		for _, ds := range slotsForDoc {
			wordPositions = append(wordPositions, ds.positions)
			if ds.kind < kind {
				kind = ds.kind
			}
		}
		maxMatch, minDisplacement := matchScore(wordPositions, defaultWindowSize)
		fs := fieldScore{
			tokensMatched:   len(slotsForDoc),
			maxMatch:        maxMatch,
			minDisplacement: minDisplacement,
			kind:            kind,
			fieldIndex:      fieldIndex,
		}
		if cur, ok := best[seq]; !ok || fs.better(cur) {
			best[seq] = fs
		}
	}
}
