package search

import (
	"github.com/antflydb/antfly/facet"
	"github.com/antflydb/antfly/number"
	"github.com/antflydb/antfly/tokenizer"
	"github.com/antflydb/antfly/typodict"
)

// FieldSpec configures how one `query_by` field participates in a search
// (§4.3/§4.4): its match weight, the typo budget and prefix/infix
// behavior applied when expanding its query tokens.
type FieldSpec struct {
	Name          string
	Weight        int
	TypoBudget    int
	Prefix        bool
	InfixMode     typodict.InfixMode
	MaxCandidates int
	Options       tokenizer.Options
}

// Query is one search request against a collection (§4.3-§4.7).
type Query struct {
	Text         string
	Fields       []FieldSpec
	FilterExpr   string // raw filter.Parse input; empty means no filter
	SortBy       facet.SortSpec
	FacetFields  []string
	Page, PerPage int
	Highlight    bool
}

// Hit is one ranked document in a Result.
type Hit struct {
	Seq             uint32
	TokensMatched   int
	BestMaxMatch    int
	BestDisplacement int
	BestMatchKind   matchKind
	FieldPriority   int
	DefaultSort     number.Number
	HasDefaultSort  bool
	Highlights      map[string][]Span // field -> matched spans; Search leaves it nil, even when Query.Highlight is set
}

// Span marks one highlighted token occurrence within a field's text.
type Span struct {
	Start, End int
}

// Result is a page of ranked hits plus facet counts for Query.FacetFields.
type Result struct {
	Hits       []Hit
	TotalHits  int
	FacetCounts map[string][]facet.Value
}

// matchKind classifies how a query token matched a document token,
// ordered so that a higher value always outranks a lower one (§4.6 step c):
// exact beats prefix beats typo beats infix.
type matchKind int

const (
	matchInfix matchKind = iota
	matchTypo
	matchPrefix
	matchExact
)
