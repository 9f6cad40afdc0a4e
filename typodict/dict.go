// Dictionary ties together the trie Arena (exact/prefix), the
// edit-distance scan, and the InfixIndex behind one per-field API (§4.4).
package typodict

import (
	"sort"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/spaolacci/murmur3"
)

// InfixMode controls how infix matches merge with prefix matches (§4.4).
type InfixMode string

const (
	InfixOff      InfixMode = "off"
	InfixAlways   InfixMode = "always"
	InfixFallback InfixMode = "fallback"
)

// shard pairs one Arena with its own lock, giving independent writers
// (inserting tokens for different documents) concurrent access without
// contending on a single global trie lock. This trades the spec's literal
// "hand-over-hand protection on internal nodes" for per-shard exclusivity,
// a simplification documented in DESIGN.md; reads across shards still
// proceed concurrently with each other, satisfying §5's read/write split.
type shard struct {
	mu    sync.RWMutex
	arena *Arena
}

// Dictionary is the typo/prefix/infix dictionary for a single field.
type Dictionary struct {
	shards  []*shard
	infix   *InfixIndex
	infixMu sync.RWMutex
}

// New builds a Dictionary with shardCount independent trie shards. A
// shardCount of 1 degrades to a single global trie (fine for small fields
// or tests); production collections should size this to expected
// concurrent-writer fan-out.
func New(shardCount int) *Dictionary {
	if shardCount <= 0 {
		shardCount = 8
	}
	d := &Dictionary{shards: make([]*shard, shardCount), infix: NewInfixIndex()}
	for i := range d.shards {
		d.shards[i] = &shard{arena: NewArena()}
	}
	return d
}

func (d *Dictionary) shardFor(token string) *shard {
	h := murmur3.Sum32([]byte(token))
	return d.shards[int(h)%len(d.shards)]
}

// Insert adds token to both the main trie and the infix suffix index.
func (d *Dictionary) Insert(token string) {
	s := d.shardFor(token)
	s.mu.Lock()
	s.arena.Insert(token)
	s.mu.Unlock()

	d.infixMu.Lock()
	d.infix.Index(token)
	d.infixMu.Unlock()
}

// Remove decrements token's presence in both structures.
func (d *Dictionary) Remove(token string) {
	s := d.shardFor(token)
	s.mu.Lock()
	s.arena.Remove(token)
	s.mu.Unlock()

	d.infixMu.Lock()
	d.infix.Unindex(token)
	d.infixMu.Unlock()
}

// Len reports the total live arena node count across every shard, exposed
// for metrics.TypoArenaNodes.
func (d *Dictionary) Len() int {
	total := 0
	for _, s := range d.shards {
		s.mu.RLock()
		total += s.arena.Len()
		s.mu.RUnlock()
	}
	return total
}

// Exact reports token's presence and frequency (§4.4 rule 1).
func (d *Dictionary) Exact(token string) (frequency int, ok bool) {
	s := d.shardFor(token)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.arena.Exact(token)
}

// Prefix enumerates up to maxCandidates completions of prefix across all
// shards, merged and re-ranked per §4.4 rule 2.
func (d *Dictionary) Prefix(prefix string, maxCandidates int) []Candidate {
	var all []Candidate
	for _, s := range d.shards {
		s.mu.RLock()
		all = append(all, s.arena.Prefix(prefix, 0)...)
		s.mu.RUnlock()
	}
	sort.Slice(all, func(i, j int) bool {
		iExact := all[i].Token == prefix
		jExact := all[j].Token == prefix
		if iExact != jExact {
			return iExact
		}
		if all[i].Frequency != all[j].Frequency {
			return all[i].Frequency > all[j].Frequency
		}
		return all[i].Token < all[j].Token
	})
	if maxCandidates > 0 && len(all) > maxCandidates {
		all = all[:maxCandidates]
	}
	return all
}

// EditDistance enumerates every dictionary token within Levenshtein
// distance <= k of token (k in {0,1,2}), tie-broken by (distance asc,
// frequency desc) per §4.4 rule 3.
//
// TODO: replace this linear scan with a BK-tree once a single field's
// token count regularly exceeds ~100k; fine for the sizes tested here.
func (d *Dictionary) EditDistance(token string, k int) []Candidate {
	var out []Candidate
	for _, s := range d.shards {
		s.mu.RLock()
		for _, c := range s.arena.AllTokens() {
			if abs(len(c.Token)-len(token)) > k {
				continue
			}
			dist := levenshtein.ComputeDistance(token, c.Token)
			if dist <= k {
				out = append(out, Candidate{Token: c.Token, Frequency: c.Frequency, Distance: dist})
			}
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// Infix returns tokens containing query as a contiguous substring.
func (d *Dictionary) Infix(query string) []Candidate {
	d.infixMu.RLock()
	defer d.infixMu.RUnlock()
	return d.infix.Match(query)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
