package typodict

import "sort"

// Insert adds token to the trie, bumping its frequency if already present.
func (a *Arena) Insert(token string) {
	h := RootHandle
	for i := 0; i < len(token); i++ {
		c := token[i]
		n := a.get(h)
		next, ok := n.children[c]
		if !ok {
			next = a.alloc(kindInternal)
			n.children[c] = next
		}
		h = next
	}
	leaf := a.get(h)
	leaf.terminal = true
	leaf.frequency++
}

// Remove decrements token's frequency; the node is left in place (children
// may still be load-bearing for other tokens) but no longer reports as
// terminal once frequency reaches zero.
func (a *Arena) Remove(token string) {
	h, ok := a.walk(token)
	if !ok {
		return
	}
	n := a.get(h)
	if n.frequency > 0 {
		n.frequency--
	}
	if n.frequency == 0 {
		n.terminal = false
	}
}

func (a *Arena) walk(token string) (Handle, bool) {
	h := RootHandle
	for i := 0; i < len(token); i++ {
		n := a.get(h)
		next, ok := n.children[token[i]]
		if !ok {
			return nilHandle, false
		}
		h = next
	}
	return h, true
}

// Exact reports whether token is present (terminal=true) and its frequency.
func (a *Arena) Exact(token string) (frequency int, ok bool) {
	h, found := a.walk(token)
	if !found {
		return 0, false
	}
	n := a.get(h)
	if !n.terminal {
		return 0, false
	}
	return n.frequency, true
}

// Candidate is one dictionary match with its ranking signals.
type Candidate struct {
	Token     string
	Frequency int
	Distance  int // 0 for exact/prefix matches
}

// Prefix enumerates up to maxCandidates tokens beginning with prefix,
// ordered first by exact-match-presence then by descending frequency
// (§4.4 rule 2).
func (a *Arena) Prefix(prefix string, maxCandidates int) []Candidate {
	h, ok := a.walk(prefix)
	if !ok {
		return nil
	}
	var out []Candidate
	a.collect(h, prefix, &out)
	sort.Slice(out, func(i, j int) bool {
		iExact := out[i].Token == prefix
		jExact := out[j].Token == prefix
		if iExact != jExact {
			return iExact
		}
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Token < out[j].Token
	})
	if maxCandidates > 0 && len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

func (a *Arena) collect(h Handle, prefix string, out *[]Candidate) {
	n := a.get(h)
	if n.terminal {
		*out = append(*out, Candidate{Token: prefix, Frequency: n.frequency})
	}
	// Stable iteration order over children for deterministic tie-breaking.
	keys := make([]byte, 0, len(n.children))
	for c := range n.children {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, c := range keys {
		a.collect(n.children[c], prefix+string(c), out)
	}
}

// AllTokens returns every terminal token, used by Prefix("") / rebuilds.
func (a *Arena) AllTokens() []Candidate {
	var out []Candidate
	a.collect(RootHandle, "", &out)
	return out
}
