package filter

import (
	"github.com/antflydb/antfly/antflyerr"
)

type parser struct {
	toks []token
	pos  int
}

// Parse compiles a filter expression string into an Expr tree.
func Parse(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tEOF {
		return nil, antflyerr.New(antflyerr.InvalidFilter, "unexpected token %q", p.cur().text)
	}
	return expr, nil
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.cur().kind != k {
		return token{}, antflyerr.New(antflyerr.InvalidFilter, "expected %s, got %q", what, p.cur().text)
	}
	return p.advance(), nil
}

func (p *parser) parseOr() (Expr, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []Expr{first}
	for p.cur().kind == tOr {
		p.advance()
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return Or{Children: children}, nil
}

func (p *parser) parseAnd() (Expr, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	children := []Expr{first}
	for p.cur().kind == tAnd {
		p.advance()
		next, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return And{Children: children}, nil
}

func (p *parser) parseTerm() (Expr, error) {
	if p.cur().kind == tLParen {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	fieldTok, err := p.expect(tIdent, "field name")
	if err != nil {
		return nil, err
	}
	field := fieldTok.text

	op := p.cur().kind
	switch op {
	case tColonEq:
		p.advance()
		return p.parseRHS(field, OpEq)
	case tNe:
		p.advance()
		return p.parseRHS(field, OpNe)
	case tLt:
		p.advance()
		return p.parseRHS(field, OpLt)
	case tGt:
		p.advance()
		return p.parseRHS(field, OpGt)
	case tLe:
		p.advance()
		return p.parseRHS(field, OpLe)
	case tGe:
		p.advance()
		return p.parseRHS(field, OpGe)
	case tColon:
		p.advance()
		return p.parseColonRHS(field)
	default:
		return nil, antflyerr.New(antflyerr.InvalidFilter, "expected comparison operator after field %q", field)
	}
}

// parseColonRHS handles bare `field:...`, which may be a plain value, a
// value list, or (if the body looks like a geo predicate) a geo clause.
func (p *parser) parseColonRHS(field string) (Expr, error) {
	switch p.cur().kind {
	case tLParen:
		pred, err := p.parseGeoBody(field)
		if err != nil {
			return nil, err
		}
		return GeoCompare{Field: field, Predicates: []GeoPredicate{*pred}}, nil
	case tLBrack:
		return p.parseBracketRHS(field)
	default:
		return p.parseRHS(field, OpEq)
	}
}

// parseBracketRHS disambiguates the combined geo-union form
// `field:[ (p1), (p2) ]` from a plain value list `field:[v1,v2]`.
func (p *parser) parseBracketRHS(field string) (Expr, error) {
	p.advance() // consume '['
	if p.cur().kind == tLParen {
		var preds []GeoPredicate
		for {
			if _, err := p.expect(tLParen, "'('"); err != nil {
				return nil, err
			}
			pred, err := p.parseGeoBodyInner(field)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tRParen, "')'"); err != nil {
				return nil, err
			}
			preds = append(preds, *pred)
			if p.cur().kind == tComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tRBrack, "']'"); err != nil {
			return nil, err
		}
		return GeoCompare{Field: field, Predicates: preds}, nil
	}

	var values []Value
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.cur().kind == tComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tRBrack, "']'"); err != nil {
		return nil, err
	}
	return Compare{Field: field, Op: OpEq, Values: values}, nil
}

func (p *parser) parseRHS(field string, op Op) (Expr, error) {
	if p.cur().kind == tLBrack {
		p.advance()
		var values []Value
		for {
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			if p.cur().kind == tComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tRBrack, "']'"); err != nil {
			return nil, err
		}
		return Compare{Field: field, Op: op, Values: values}, nil
	}
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return Compare{Field: field, Op: op, Values: []Value{v}}, nil
}

func (p *parser) parseValue() (Value, error) {
	t := p.cur()
	switch t.kind {
	case tNumber:
		p.advance()
		return Value{Num: t.num, IsNum: true}, nil
	case tString, tIdent:
		p.advance()
		return Value{Str: t.text}, nil
	default:
		return Value{}, antflyerr.New(antflyerr.InvalidFilter, "expected a value, got %q", t.text)
	}
}

// parseGeoBody parses `( ... )` for field, consuming both parens.
func (p *parser) parseGeoBody(field string) (*GeoPredicate, error) {
	if _, err := p.expect(tLParen, "'('"); err != nil {
		return nil, err
	}
	pred, err := p.parseGeoBodyInner(field)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}
	return pred, nil
}

// parseGeoBodyInner parses the content between a geo clause's parens,
// covering the bracketed form, the legacy bare form, and the bare
// (lat,lng) containment-test form.
func (p *parser) parseGeoBodyInner(field string) (*GeoPredicate, error) {
	if p.cur().kind == tLBrack {
		p.advance()
		var nums []float64
		for {
			n, err := p.expectNumber(field)
			if err != nil {
				return nil, err
			}
			nums = append(nums, n)
			if p.cur().kind == tComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tRBrack, "']'"); err != nil {
			return nil, geoGrammarError(field)
		}

		if p.cur().kind == tComma {
			p.advance()
			return p.parseRadiusClause(field, nums)
		}
		switch {
		case len(nums) == 2:
			return &GeoPredicate{Shape: GeoPoint, Lat: nums[0], Lng: nums[1]}, nil
		case len(nums) >= 6 && len(nums)%2 == 0:
			return &GeoPredicate{Shape: GeoPolygon, Vertices: nums}, nil
		default:
			return nil, geoGrammarError(field)
		}
	}

	lat, err := p.expectNumber(field)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tComma, "','"); err != nil {
		return nil, geoGrammarError(field)
	}
	lng, err := p.expectNumber(field)
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tComma {
		return &GeoPredicate{Shape: GeoPoint, Lat: lat, Lng: lng}, nil
	}
	p.advance()
	return p.parseRadiusClause(field, []float64{lat, lng})
}

// parseRadiusClause parses the `radius: N unit` (and optional
// `exact_filter_radius: N unit`) tail shared by both the bracketed and
// legacy geo grammars; nums must already hold exactly [lat, lng].
func (p *parser) parseRadiusClause(field string, nums []float64) (*GeoPredicate, error) {
	if len(nums) != 2 {
		return nil, geoGrammarError(field)
	}
	if tok := p.cur(); tok.kind != tIdent || tok.text != "radius" {
		return nil, geoGrammarError(field)
	}
	p.advance()
	if _, err := p.expect(tColon, "':'"); err != nil {
		return nil, geoGrammarError(field)
	}
	radius, err := p.expectNumber(field)
	if err != nil {
		return nil, err
	}
	unit, err := p.expectUnit(field)
	if err != nil {
		return nil, err
	}
	radiusKm := unit.toKm(radius)

	pred := &GeoPredicate{Shape: GeoRadius, Lat: nums[0], Lng: nums[1], RadiusKm: radiusKm, ExactFilterRadiusKm: -1}
	if p.cur().kind == tComma {
		p.advance()
		if tok := p.cur(); tok.kind != tIdent || tok.text != "exact_filter_radius" {
			return nil, geoGrammarError(field)
		}
		p.advance()
		if _, err := p.expect(tColon, "':'"); err != nil {
			return nil, geoGrammarError(field)
		}
		efr, err := p.expectNumber(field)
		if err != nil {
			return nil, err
		}
		efrUnit, err := p.expectUnit(field)
		if err != nil {
			return nil, err
		}
		pred.ExactFilterRadiusKm = efrUnit.toKm(efr)
	}
	return pred, nil
}

type distanceUnit int

const (
	unitKm distanceUnit = iota
	unitMi
)

func (u distanceUnit) toKm(v float64) float64 {
	if u == unitMi {
		return v * 1.609344
	}
	return v
}

func (p *parser) expectUnit(field string) (distanceUnit, error) {
	tok := p.cur()
	if tok.kind != tIdent {
		return 0, geoGrammarError(field)
	}
	switch tok.text {
	case "km":
		p.advance()
		return unitKm, nil
	case "mi":
		p.advance()
		return unitMi, nil
	default:
		return 0, antflyerr.New(antflyerr.InvalidFilter,
			"Value of filter field %s: unit must be km or mi", field)
	}
}

func (p *parser) expectNumber(field string) (float64, error) {
	tok := p.cur()
	if tok.kind != tNumber {
		return 0, geoGrammarError(field)
	}
	p.advance()
	if isNaN(tok.num) {
		return 0, geoGrammarError(field)
	}
	return tok.num, nil
}

func isNaN(f float64) bool { return f != f }

func geoGrammarError(field string) error {
	return antflyerr.New(antflyerr.InvalidFilter,
		"Value of filter field %s: must be in the "+
			"([lat,lng], radius: X km|mi) or ([lat1,lng1, lat2,lng2, ...]) or "+
			"([lat,lng], radius: X km|mi, exact_filter_radius: Y km|mi) format.", field)
}
