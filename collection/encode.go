package collection

import (
	"encoding/json"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/schema"
)

// wireSchema is schema.Schema's JSON-serializable shape; Schema itself
// carries unexported lookup maps that json can't round-trip.
type wireSchema struct {
	Fields      []schema.Field
	DefaultSort string
}

func encodeSchema(sch *schema.Schema) ([]byte, error) {
	buf, err := json.Marshal(wireSchema{Fields: sch.Fields, DefaultSort: sch.DefaultSort})
	if err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "encode schema")
	}
	return buf, nil
}

func decodeSchema(buf []byte) (*schema.Schema, error) {
	var w wireSchema
	if err := json.Unmarshal(buf, &w); err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "decode schema")
	}
	sch, err := schema.New(w.Fields, w.DefaultSort)
	if err != nil {
		return nil, err
	}
	return sch, nil
}

// decodeDoc parses a stored document blob (the coerced field map, JSON
// encoded) back into its in-memory representation.
func decodeDoc(buf []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "decode document blob")
	}
	return doc, nil
}

func encodeDoc(doc map[string]any) ([]byte, error) {
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, antflyerr.Wrap(err, antflyerr.BackendFailure, "encode document blob")
	}
	return buf, nil
}
