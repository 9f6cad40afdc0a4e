package search

import "github.com/antflydb/antfly/typodict"

// expansion is one dictionary token a query token expanded to, tagged with
// the signal class it matched under (§4.4).
type expansion struct {
	token string
	kind  matchKind
}

// expandToken resolves one raw query token against field's dictionary per
// §4.4's match-kind precedence: exact match always included; prefix
// completions when spec.Prefix; typo candidates within spec.TypoBudget;
// infix matches merged in per spec.InfixMode.
func expandToken(dict *typodict.Dictionary, token string, spec FieldSpec) []expansion {
	seen := make(map[string]matchKind)
	add := func(tok string, kind matchKind) {
		if cur, ok := seen[tok]; !ok || kind > cur {
			seen[tok] = kind
		}
	}

	if _, ok := dict.Exact(token); ok {
		add(token, matchExact)
	}

	if spec.Prefix {
		for _, c := range dict.Prefix(token, spec.MaxCandidates) {
			add(c.Token, matchPrefix)
		}
	}

	if spec.TypoBudget > 0 {
		for _, c := range dict.EditDistance(token, spec.TypoBudget) {
			add(c.Token, matchTypo)
		}
	}

	infixMatches := func() []typodict.Candidate {
		if spec.InfixMode == typodict.InfixOff {
			return nil
		}
		return dict.Infix(token)
	}

	switch spec.InfixMode {
	case typodict.InfixAlways:
		for _, c := range infixMatches() {
			add(c.Token, matchInfix)
		}
	case typodict.InfixFallback:
		if len(seen) == 0 {
			for _, c := range infixMatches() {
				add(c.Token, matchInfix)
			}
		}
	}

	out := make([]expansion, 0, len(seen))
	for tok, kind := range seen {
		out = append(out, expansion{token: tok, kind: kind})
	}
	return out
}

// expandQuery tokenizes q against field's options and expands every
// resulting token, returning one expansion set per query-token slot (slots
// preserve query order so phrase-proximity scoring can use slot index as
// the query-side word identity in matchScore).
func expandQuery(dict *typodict.Dictionary, queryTokens []string, spec FieldSpec) [][]expansion {
	out := make([][]expansion, len(queryTokens))
	for i, qt := range queryTokens {
		out[i] = expandToken(dict, qt, spec)
	}
	return out
}
