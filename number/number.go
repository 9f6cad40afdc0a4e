// Package number implements the runtime-variant numeric scalar used across
// the numeric index, the document coercion path, and the scoring
// tie-breakers: a tagged int64-or-float64 value with a total order, ported
// from the original engine's number_t (see original_source/include/number.h).
// Kinds never mix silently; comparisons between an int and a float promote
// the int side to float64 first.
package number

import "fmt"

// Kind tags which arm of Number is populated.
type Kind uint8

const (
	KindInt64 Kind = iota
	KindFloat64
)

// Number is a tagged int64|float64 scalar with a total order.
type Number struct {
	kind Kind
	i    int64
	f    float64
}

func Int(v int64) Number   { return Number{kind: KindInt64, i: v} }
func Float(v float64) Number { return Number{kind: KindFloat64, f: v} }

func (n Number) Kind() Kind { return n.kind }
func (n Number) IsFloat() bool { return n.kind == KindFloat64 }

// Int64 returns the integer value, truncating a float value.
func (n Number) Int64() int64 {
	if n.kind == KindInt64 {
		return n.i
	}
	return int64(n.f)
}

// Float64 returns the value promoted to float64.
func (n Number) Float64() float64 {
	if n.kind == KindFloat64 {
		return n.f
	}
	return float64(n.i)
}

// Equal reports whether n == rhs after promoting int to float when the
// kinds differ.
func (n Number) Equal(rhs Number) bool {
	if n.kind == rhs.kind {
		if n.kind == KindInt64 {
			return n.i == rhs.i
		}
		return n.f == rhs.f
	}
	return n.Float64() == rhs.Float64()
}

// Less reports whether n < rhs, promoting int to float when the kinds differ.
func (n Number) Less(rhs Number) bool {
	if n.kind == rhs.kind {
		if n.kind == KindInt64 {
			return n.i < rhs.i
		}
		return n.f < rhs.f
	}
	return n.Float64() < rhs.Float64()
}

// Greater reports whether n > rhs, promoting int to float when the kinds differ.
func (n Number) Greater(rhs Number) bool {
	return rhs.Less(n)
}

// Compare returns -1, 0, or 1 as n is less than, equal to, or greater than rhs.
func (n Number) Compare(rhs Number) int {
	switch {
	case n.Less(rhs):
		return -1
	case n.Greater(rhs):
		return 1
	default:
		return 0
	}
}

// Negate returns -n, preserving the kind.
func (n Number) Negate() Number {
	if n.kind == KindInt64 {
		return Int(-n.i)
	}
	return Float(-n.f)
}

func (n Number) String() string {
	if n.kind == KindInt64 {
		return fmt.Sprintf("%d", n.i)
	}
	return fmt.Sprintf("%g", n.f)
}
