// Package filter compiles the filter expression language (§4.5, §6) into
// a doc-id bitmap: `&&`/`||`, grouping, field comparisons
// (`:`, `:=`, `:!=`, `:<`, `:>`, `:<=`, `:>=`), and the geo predicate
// grammar (point radius, polygon, legacy point-radius, combined union).
package filter

import (
	"math"
	"strconv"
	"strings"

	"github.com/antflydb/antfly/antflyerr"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tNumber
	tString
	tLParen
	tRParen
	tLBrack
	tRBrack
	tColon
	tColonEq
	tNe
	tLe
	tGe
	tLt
	tGt
	tAnd
	tOr
	tComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			l.toks = append(l.toks, token{kind: tEOF})
			return l.toks, nil
		}
		c := l.src[l.pos]
		switch {
		case c == '(':
			l.emit(tLParen, "(")
		case c == ')':
			l.emit(tRParen, ")")
		case c == '[':
			l.emit(tLBrack, "[")
		case c == ']':
			l.emit(tRBrack, "]")
		case c == ',':
			l.emit(tComma, ",")
		case c == ':':
			l.lexColonOp()
		case c == '&' && l.peek(1) == '&':
			l.pos += 2
			l.toks = append(l.toks, token{kind: tAnd, text: "&&"})
		case c == '|' && l.peek(1) == '|':
			l.pos += 2
			l.toks = append(l.toks, token{kind: tOr, text: "||"})
		case c == '"':
			if err := l.lexString(); err != nil {
				return nil, err
			}
		case isNumberStart(c):
			l.lexNumber()
		default:
			l.lexIdent()
		}
	}
}

func (l *lexer) emit(k tokenKind, text string) {
	l.pos++
	l.toks = append(l.toks, token{kind: k, text: text})
}

func (l *lexer) peek(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n') {
		l.pos++
	}
}

func (l *lexer) lexColonOp() {
	rest := l.src[l.pos:]
	switch {
	case strings.HasPrefix(rest, ":!="):
		l.toks = append(l.toks, token{kind: tNe, text: ":!="})
		l.pos += 3
	case strings.HasPrefix(rest, ":<="):
		l.toks = append(l.toks, token{kind: tLe, text: ":<="})
		l.pos += 3
	case strings.HasPrefix(rest, ":>="):
		l.toks = append(l.toks, token{kind: tGe, text: ":>="})
		l.pos += 3
	case strings.HasPrefix(rest, ":="):
		l.toks = append(l.toks, token{kind: tColonEq, text: ":="})
		l.pos += 2
	case strings.HasPrefix(rest, ":<"):
		l.toks = append(l.toks, token{kind: tLt, text: ":<"})
		l.pos += 2
	case strings.HasPrefix(rest, ":>"):
		l.toks = append(l.toks, token{kind: tGt, text: ":>"})
		l.pos += 2
	default:
		l.toks = append(l.toks, token{kind: tColon, text: ":"})
		l.pos++
	}
}

func (l *lexer) lexString() error {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) && l.src[l.pos] != '"' {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return antflyerr.New(antflyerr.InvalidFilter, "unterminated string literal at %d", start)
	}
	text := l.src[start+1 : l.pos]
	l.pos++
	l.toks = append(l.toks, token{kind: tString, text: text})
	return nil
}

func isNumberStart(c byte) bool {
	return c >= '0' && c <= '9' || c == '-' || c == '+' || c == '.'
}

func isIdentChar(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '(', ')', '[', ']', ':', ',', '&', '|', '"':
		return false
	default:
		return true
	}
}

func (l *lexer) lexNumber() {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) && (isDigitOrDot(l.src[l.pos]) || l.src[l.pos] == 'e' || l.src[l.pos] == 'E' ||
		((l.src[l.pos] == '+' || l.src[l.pos] == '-') && l.pos > start && (l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E'))) {
		l.pos++
	}
	text := l.src[start:l.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		// Not actually numeric (e.g. a bare "-" in an identifier); fall back
		// to an identifier token covering the same span.
		l.toks = append(l.toks, token{kind: tIdent, text: text})
		return
	}
	l.toks = append(l.toks, token{kind: tNumber, text: text, num: f})
}

func isDigitOrDot(c byte) bool { return (c >= '0' && c <= '9') || c == '.' }

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]
	if text == "" {
		// Unrecognized character; skip it to avoid looping forever.
		l.pos++
		return
	}
	switch strings.ToLower(text) {
	case "nan":
		l.toks = append(l.toks, token{kind: tNumber, text: text, num: math.NaN()})
	default:
		l.toks = append(l.toks, token{kind: tIdent, text: text})
	}
}
