// Package tokenizer normalizes raw field text into a sequence of
// (position, token) pairs (spec §4.2). Unicode text is normalized to NFKC
// and case-folded before token boundaries are computed, using
// golang.org/x/text so the core never hand-rolls Unicode case folding.
package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Options configures per-field tokenization (§4.2's "per-field locale
// options"). The zero value is the default policy: split on Unicode
// whitespace and punctuation, fold case, normalize to NFKC.
type Options struct {
	// Locale selects the case-folding locale; the zero value uses
	// language.Und (locale-insensitive folding).
	Locale language.Tag
	// Separators, if non-nil, overrides the default "whitespace or
	// punctuation" boundary predicate.
	Separators func(r rune) bool
}

func defaultSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}

// Token is one normalized token with its 1-based position within the field
// value it came from.
type Token struct {
	Position int
	Text     string
}

// Tokenize splits value into normalized tokens per Options. Array-valued
// fields go through TokenizeArray (below), which calls Tokenize once per
// element and leaves a position gap of at least one between elements, so
// phrase matching never spans array boundaries (§4.2).
func Tokenize(value string, opts Options) []Token {
	sep := opts.Separators
	if sep == nil {
		sep = defaultSeparator
	}
	folder := cases.Fold()
	if opts.Locale != language.Und {
		folder = cases.Lower(opts.Locale)
	}
	normalized := norm.NFKC.String(value)

	var tokens []Token
	pos := 0
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		pos++
		tokens = append(tokens, Token{Position: pos, Text: folder.String(b.String())})
		b.Reset()
	}
	for _, r := range normalized {
		if sep(r) {
			flush()
			continue
		}
		b.WriteRune(r)
	}
	flush()
	return tokens
}

// TokenizeArray tokenizes each element of values independently, offsetting
// each element's positions so no phrase window can span two elements: the
// gap between the last position of one element and the first of the next
// is always >= 2 (at least one gap position, per §4.2).
func TokenizeArray(values []string, opts Options) []Token {
	var out []Token
	base := 0
	for _, v := range values {
		toks := Tokenize(v, opts)
		for _, t := range toks {
			out = append(out, Token{Position: base + t.Position, Text: t.Text})
		}
		if len(toks) > 0 {
			base += toks[len(toks)-1].Position + 1
		}
	}
	return out
}
