// Package schema defines the collection schema data model (§3 of the
// spec): fields, kinds, flags, the insert coercion modes, and the wildcard
// dynamic-field inference rule.
package schema

import (
	"fmt"
	"strconv"

	"github.com/antflydb/antfly/antflyerr"
)

// Kind enumerates the field kinds a schema can declare.
type Kind string

const (
	KindString        Kind = "string"
	KindStringArray    Kind = "string[]"
	KindInt32         Kind = "int32"
	KindInt64         Kind = "int64"
	KindFloat         Kind = "float"
	KindBool          Kind = "bool"
	KindGeopoint      Kind = "geopoint"
	KindGeopointArray Kind = "geopoint[]"
	KindGeopolygon    Kind = "geopolygon"
	KindAuto          Kind = "auto"
)

// WildcardFieldName is the special field name that activates dynamic field
// inference when its Kind is KindAuto. At most one may exist per schema.
const WildcardFieldName = ".*"

// Field describes one schema field.
type Field struct {
	Name     string
	Kind     Kind
	Indexed  bool
	Faceted  bool
	Sortable bool
	Optional bool
	Infix    bool
}

// Mode is the per-insert coercion policy (§3, §9).
type Mode string

const (
	Reject        Mode = "reject"
	CoerceOrReject Mode = "coerce-or-reject"
	CoerceOrDrop  Mode = "coerce-or-drop"
	Drop          Mode = "drop"
)

// Schema is the ordered set of fields for a collection. Fields may only be
// added or dropped, never have their Kind changed in place (§3).
type Schema struct {
	Fields        []Field
	byName        map[string]int
	WildcardField *Field // nil unless a `.* : auto` field was declared
	DefaultSort   string // collection's configured default sort field (§4.6 step e)
}

// New builds a Schema from an ordered field list, validating uniqueness and
// the at-most-one-wildcard invariant.
func New(fields []Field, defaultSort string) (*Schema, error) {
	s := &Schema{byName: make(map[string]int, len(fields)), DefaultSort: defaultSort}
	for _, f := range fields {
		if err := s.addField(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Schema) addField(f Field) error {
	if _, exists := s.byName[f.Name]; exists {
		return antflyerr.New(antflyerr.Conflict, "duplicate field %q", f.Name)
	}
	if f.Name == WildcardFieldName {
		if f.Kind != KindAuto {
			return antflyerr.New(antflyerr.SchemaViolation, "wildcard field %q must have kind auto", f.Name)
		}
		if s.WildcardField != nil {
			return antflyerr.New(antflyerr.Conflict, "schema already has a wildcard field")
		}
	}
	s.Fields = append(s.Fields, f)
	s.byName[f.Name] = len(s.Fields) - 1
	if f.Name == WildcardFieldName {
		s.WildcardField = &s.Fields[len(s.Fields)-1]
	}
	return nil
}

// AddField implements the `alter: add field` operation (§4.1).
func (s *Schema) AddField(f Field) error {
	return s.addField(f)
}

// DropField implements the `alter: drop field` operation. It is not an
// error to drop a field that does not exist for idempotence under retries,
// matching the spec's "dropping a field removes its index" contract.
func (s *Schema) DropField(name string) {
	idx, ok := s.byName[name]
	if !ok {
		return
	}
	s.Fields = append(s.Fields[:idx], s.Fields[idx+1:]...)
	delete(s.byName, name)
	for n, i := range s.byName {
		if i > idx {
			s.byName[n] = i - 1
		}
	}
	if s.WildcardField != nil && s.WildcardField.Name == name {
		s.WildcardField = nil
	}
	if s.DefaultSort == name {
		s.DefaultSort = ""
	}
}

// Field looks up a field by name, returning ok=false if absent.
func (s *Schema) Field(name string) (Field, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[idx], true
}

// InferKind implements the wildcard field's dynamic type inference: the
// first document to populate a previously-unseen field under the wildcard
// freezes that field's kind based on the JSON value's Go decode type.
func InferKind(v any) (Kind, error) {
	switch val := v.(type) {
	case string:
		return KindString, nil
	case bool:
		return KindBool, nil
	case float64:
		if val == float64(int64(val)) {
			return KindInt64, nil
		}
		return KindFloat, nil
	case []any:
		if len(val) == 0 {
			return KindStringArray, nil
		}
		if _, ok := val[0].(string); ok {
			return KindStringArray, nil
		}
		return KindStringArray, nil
	default:
		return "", antflyerr.New(antflyerr.SchemaViolation, "cannot infer field kind from value %T", v)
	}
}

// Coerce converts v to the representation required by kind, following
// mode's policy. ok=false with a nil error under coerce-or-drop/drop means
// the caller should silently omit the field.
func Coerce(kind Kind, mode Mode, v any) (any, bool, error) {
	converted, err := coerceValue(kind, v)
	if err == nil {
		return converted, true, nil
	}
	switch mode {
	case Reject, CoerceOrReject:
		return nil, false, antflyerr.Wrap(err, antflyerr.SchemaViolation, "value %v is not compatible with kind %s", v, kind)
	case CoerceOrDrop, Drop:
		return nil, false, nil
	default:
		return nil, false, antflyerr.New(antflyerr.SchemaViolation, "unknown coercion mode %q", mode)
	}
}

func coerceValue(kind Kind, v any) (any, error) {
	switch kind {
	case KindString:
		switch t := v.(type) {
		case string:
			return t, nil
		case float64:
			return strconv.FormatFloat(t, 'g', -1, 64), nil
		case bool:
			return strconv.FormatBool(t), nil
		}
	case KindInt32:
		if f, ok := asFloat(v); ok && f == float64(int32(f)) {
			return int32(f), nil
		}
	case KindInt64:
		if f, ok := asFloat(v); ok && f == float64(int64(f)) {
			return int64(f), nil
		}
	case KindFloat:
		if f, ok := asFloat(v); ok {
			return f, nil
		}
	case KindBool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b, nil
			}
		}
	case KindGeopoint:
		if arr, ok := v.([]any); ok && len(arr) == 2 {
			lat, ok1 := asFloat(arr[0])
			lng, ok2 := asFloat(arr[1])
			if ok1 && ok2 {
				return [2]float64{lat, lng}, nil
			}
		}
	case KindGeopointArray:
		if arr, ok := v.([]any); ok {
			out := make([][2]float64, 0, len(arr))
			for _, e := range arr {
				pt, ok := e.([]any)
				if !ok || len(pt) != 2 {
					return nil, fmt.Errorf("array element %v is not a [lat,lng] pair", e)
				}
				lat, ok1 := asFloat(pt[0])
				lng, ok2 := asFloat(pt[1])
				if !ok1 || !ok2 {
					return nil, fmt.Errorf("array element %v is not a [lat,lng] pair", e)
				}
				out = append(out, [2]float64{lat, lng})
			}
			return out, nil
		}
	case KindGeopolygon:
		if arr, ok := v.([]any); ok && len(arr) >= 3 {
			out := make([][2]float64, 0, len(arr))
			for _, e := range arr {
				pt, ok := e.([]any)
				if !ok || len(pt) != 2 {
					return nil, fmt.Errorf("polygon vertex %v is not a [lat,lng] pair", e)
				}
				lat, ok1 := asFloat(pt[0])
				lng, ok2 := asFloat(pt[1])
				if !ok1 || !ok2 {
					return nil, fmt.Errorf("polygon vertex %v is not a [lat,lng] pair", e)
				}
				out = append(out, [2]float64{lat, lng})
			}
			return out, nil
		}
	case KindStringArray:
		if arr, ok := v.([]any); ok {
			out := make([]string, 0, len(arr))
			for _, e := range arr {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("array element %v is not a string", e)
				}
				out = append(out, s)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to %s", v, v, kind)
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}
