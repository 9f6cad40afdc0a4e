package typodict

import "sort"

// InfixIndex supports §4.4's infix matching: "a query token matches infix
// iff it is a contiguous substring of an indexed token". It is built by
// inserting every suffix of every indexed token into a trie; a query then
// walks the trie by its own characters and collects the origins recorded
// at that node and everywhere in its subtree, since any suffix that starts
// with the query necessarily passes through the query's node.
type InfixIndex struct {
	arena *Arena
}

func NewInfixIndex() *InfixIndex {
	return &InfixIndex{arena: NewArena()}
}

// Index registers every suffix of token against token itself.
func (ix *InfixIndex) Index(token string) {
	for i := 0; i < len(token); i++ {
		ix.insertSuffix(token[i:], token)
	}
}

// Unindex reverses Index, decrementing origin counts.
func (ix *InfixIndex) Unindex(token string) {
	for i := 0; i < len(token); i++ {
		ix.removeSuffix(token[i:], token)
	}
}

func (ix *InfixIndex) insertSuffix(suffix, origin string) {
	h := RootHandle
	for i := 0; i < len(suffix); i++ {
		n := ix.arena.get(h)
		next, ok := n.children[suffix[i]]
		if !ok {
			next = ix.arena.alloc(kindInternal)
			n.children[suffix[i]] = next
		}
		h = next
	}
	n := ix.arena.get(h)
	if n.origins == nil {
		n.origins = make(map[string]int)
	}
	n.origins[origin]++
}

func (ix *InfixIndex) removeSuffix(suffix, origin string) {
	h, ok := ix.arena.walk(suffix)
	if !ok {
		return
	}
	n := ix.arena.get(h)
	if n.origins == nil {
		return
	}
	if n.origins[origin] > 0 {
		n.origins[origin]--
		if n.origins[origin] == 0 {
			delete(n.origins, origin)
		}
	}
}

// Match returns every indexed token that contains query as a contiguous
// substring, with an occurrence count (how many suffixes of that token
// begin with query — irrelevant to ranking beyond "found at all", kept for
// potential frequency-style tie-breaking).
func (ix *InfixIndex) Match(query string) []Candidate {
	if query == "" {
		return nil
	}
	h, ok := ix.arena.walk(query)
	if !ok {
		return nil
	}
	merged := make(map[string]int)
	ix.collectOrigins(h, merged)

	out := make([]Candidate, 0, len(merged))
	for tok, freq := range merged {
		out = append(out, Candidate{Token: tok, Frequency: freq})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Token < out[j].Token
	})
	return out
}

func (ix *InfixIndex) collectOrigins(h Handle, merged map[string]int) {
	n := ix.arena.get(h)
	for tok, freq := range n.origins {
		merged[tok] += freq
	}
	for _, child := range n.children {
		ix.collectOrigins(child, merged)
	}
}
